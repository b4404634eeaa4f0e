package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atelierforma/formabot/internal/agent"
	"github.com/atelierforma/formabot/internal/config"
	"github.com/atelierforma/formabot/internal/gateway"
	"github.com/atelierforma/formabot/internal/store"
	"github.com/atelierforma/formabot/internal/tools"
	"github.com/spf13/cobra"
)

// AskOptions for running the local agent with custom IO in tests
type AskOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "formabot",
	Short: "formabot - assistant conversationnel du catalogue de formations Atelier Forma",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (web widget, telegram, cron jobs)",
	RunE:  runServe,
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Talk to the local agent in single message or REPL mode",
	RunE:  runAsk,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and seed the course catalog",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show formabot status",
	RunE:  runStatus,
}

var (
	messageFlag string
	courseFlag  string
)

func init() {
	askCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	askCmd.Flags().StringVar(&courseFlag, "course", "", "Course id scoping the conversation")
	rootCmd.AddCommand(serveCmd, askCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runAsk(cmd *cobra.Command, args []string) error {
	return runAskWithOptions(AskOptions{})
}

// runAskWithOptions runs the local agent with injectable IO for testing
func runAskWithOptions(opts AskOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open course store: %w", err)
	}
	defer st.Close()

	if count, err := st.CountCourses(); err == nil && count == 0 {
		if cfg.Store.SeedPath != "" {
			err = st.SeedFromFile(cfg.Store.SeedPath)
		} else {
			err = st.SeedDefault()
		}
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	registry := tools.NewRegistry()
	if err := tools.NewToolset(st).RegisterAll(registry); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	orch := agent.NewOrchestrator(agent.NewContext(courseFlag, cfg.Agent.Language), registry)

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	// Single message mode
	if messageFlag != "" {
		resp := orch.ProcessMessage(messageFlag)
		fmt.Fprintln(stdout, resp.Message)
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "formabot ask (type 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp := orch.ProcessMessage(input)
		fmt.Fprintln(stdout, resp.Message)
	}
	return nil
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open course store: %w", err)
	}
	defer st.Close()

	count, err := st.CountCourses()
	if err != nil {
		return fmt.Errorf("inspect course store: %w", err)
	}
	if count == 0 {
		if cfg.Store.SeedPath != "" {
			err = st.SeedFromFile(cfg.Store.SeedPath)
		} else {
			err = st.SeedDefault()
		}
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		count, _ = st.CountCourses()
		fmt.Printf("Catalog seeded: %d formations\n", count)
	} else {
		fmt.Printf("Catalog already populated: %d formations\n", count)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to enable the remote service or set an API key\n", cfgPath)
	fmt.Println("  2. Run 'formabot ask -m \"bonjour\"' to test the local agent")
	fmt.Println("  3. Run 'formabot serve' to start the widget endpoint")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Database: %s\n", cfg.Store.DBPath)
	fmt.Printf("Remote service: enabled=%v url=%s\n", cfg.Remote.Enabled, cfg.Remote.URL)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("LLM API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("LLM API Key: set")
	} else {
		fmt.Println("LLM API Key: not set")
	}
	fmt.Printf("WebUI: enabled=%v (%s:%d)\n", cfg.Channels.WebUI.Enabled, cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		fmt.Printf("Catalog: error (%v)\n", err)
		return nil
	}
	defer st.Close()

	courses, _ := st.CountCourses()
	regs, _ := st.CountRegistrations()
	fmt.Printf("Catalog: %d formations, %d inscriptions\n", courses, regs)

	return nil
}
