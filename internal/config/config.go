package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultLanguage        = "fr"
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 18420
	DefaultBufSize         = 100
	DefaultRemoteTimeout   = 20
	DefaultLLMModel        = "claude-3-5-haiku-latest"
	DefaultLLMMaxTokens    = 1024
	DefaultHistoryWindow   = 10
	DefaultDigestSchedule  = "0 0 8 * * *"
	DefaultRefreshSchedule = "0 */30 * * * *"
)

type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Remote   RemoteConfig   `json:"remote"`
	Provider ProviderConfig `json:"provider"`
	Store    StoreConfig    `json:"store"`
	Channels ChannelsConfig `json:"channels"`
	Gateway  GatewayConfig  `json:"gateway"`
	Cron     CronConfig     `json:"cron"`
}

type AgentConfig struct {
	Language      string `json:"language"`
	HistoryWindow int    `json:"historyWindow"`
}

// RemoteConfig points at the advanced remote agent service tried before
// any local backend.
type RemoteConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	Timeout int    `json:"timeout"` // seconds
}

// ProviderConfig configures the hosted language-model backend. Left empty,
// the gateway skips straight to the local agent.
type ProviderConfig struct {
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

type StoreConfig struct {
	DBPath   string `json:"dbPath,omitempty"`
	SeedPath string `json:"seedPath,omitempty"`
}

type ChannelsConfig struct {
	WebUI    WebUIConfig    `json:"webui"`
	Telegram TelegramConfig `json:"telegram"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type CronConfig struct {
	DigestEnabled  bool   `json:"digestEnabled"`
	DigestSchedule string `json:"digestSchedule,omitempty"`
	DigestChannel  string `json:"digestChannel,omitempty"`
	DigestChatID   string `json:"digestChatId,omitempty"`
	RefreshEnabled bool   `json:"refreshEnabled"`
	RefreshExpr    string `json:"refreshExpr,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Language:      DefaultLanguage,
			HistoryWindow: DefaultHistoryWindow,
		},
		Remote: RemoteConfig{
			Timeout: DefaultRemoteTimeout,
		},
		Provider: ProviderConfig{
			Model:     DefaultLLMModel,
			MaxTokens: DefaultLLMMaxTokens,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(ConfigDir(), "data", "catalog.db"),
		},
		Channels: ChannelsConfig{
			WebUI: WebUIConfig{Enabled: true},
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Cron: CronConfig{
			DigestSchedule: DefaultDigestSchedule,
			RefreshExpr:    DefaultRefreshSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".formabot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("FORMABOT_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("FORMABOT_REMOTE_URL"); url != "" {
		cfg.Remote.URL = url
		cfg.Remote.Enabled = true
	}
	if timeout := os.Getenv("FORMABOT_REMOTE_TIMEOUT"); timeout != "" {
		if parsed, err := strconv.Atoi(timeout); err == nil {
			cfg.Remote.Timeout = parsed
		}
	}
	if token := os.Getenv("FORMABOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("FORMABOT_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if seedPath := os.Getenv("FORMABOT_SEED_PATH"); seedPath != "" {
		cfg.Store.SeedPath = seedPath
	}

	if cfg.Agent.Language == "" {
		cfg.Agent.Language = DefaultLanguage
	}
	if cfg.Agent.HistoryWindow <= 0 {
		cfg.Agent.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = DefaultRemoteTimeout
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultLLMModel
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = DefaultConfig().Store.DBPath
	}
	if cfg.Cron.DigestSchedule == "" {
		cfg.Cron.DigestSchedule = DefaultDigestSchedule
	}
	if cfg.Cron.RefreshExpr == "" {
		cfg.Cron.RefreshExpr = DefaultRefreshSchedule
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
