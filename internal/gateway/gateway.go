package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierforma/formabot/internal/bus"
	"github.com/atelierforma/formabot/internal/channel"
	"github.com/atelierforma/formabot/internal/config"
	"github.com/atelierforma/formabot/internal/cron"
	"github.com/atelierforma/formabot/internal/store"
	"github.com/atelierforma/formabot/internal/tools"
)

// Options for creating a Gateway
type Options struct {
	Backends   []Backend      // overrides the configured chain, for testing
	SignalChan chan os.Signal // for testing signal handling
}

// Gateway is the serving process: it owns the knowledge store, the tool
// registry, the fallback chain, the channels and the cron jobs, and moves
// turns between them through the message bus.
type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	store      *store.Store
	registry   *tools.Registry
	chain      *Chain
	sessions   *sessionLog
	channels   *channel.ChannelManager
	cron       *cron.Service
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open course store: %w", err)
	}
	g.store = st

	count, err := st.CountCourses()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("inspect course store: %w", err)
	}
	if count == 0 {
		if cfg.Store.SeedPath != "" {
			err = st.SeedFromFile(cfg.Store.SeedPath)
		} else {
			err = st.SeedDefault()
		}
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		log.Printf("[gateway] seeded empty catalog")
	}

	g.registry = tools.NewRegistry()
	if err := tools.NewToolset(st).RegisterAll(g.registry); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	if len(opts.Backends) > 0 {
		g.chain = NewChain(opts.Backends...)
	} else {
		g.chain = NewChain(g.buildBackends()...)
	}
	log.Printf("[gateway] backend chain: %v", g.chain.Backends())

	window := cfg.Agent.HistoryWindow
	if window <= 0 {
		window = config.DefaultHistoryWindow
	}
	g.sessions = newSessionLog(window)

	g.signalChan = opts.SignalChan

	g.cron = cron.NewService()
	if err := g.registerJobs(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("register cron jobs: %w", err)
	}

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Gateway, g.bus, g.askFunc())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

// buildBackends assembles the fallback chain from config: remote agent
// service first, hosted LLM when an API key is set, local agent always.
func (g *Gateway) buildBackends() []Backend {
	var backends []Backend
	if g.cfg.Remote.Enabled && g.cfg.Remote.URL != "" {
		backends = append(backends, NewRemoteBackend(g.cfg.Remote.URL, time.Duration(g.cfg.Remote.Timeout)*time.Second))
	}
	if g.cfg.Provider.APIKey != "" {
		backends = append(backends, NewLLMBackend(g.cfg.Provider, g.cfg.Agent.HistoryWindow))
	}
	backends = append(backends, NewLocalBackend(g.registry, g.cfg.Agent.Language))
	return backends
}

// Ask runs one turn through the fallback chain. It never fails. When the
// caller did not supply history, the session log fills in the recent turns
// so the remote and hosted-LLM backends stay context-aware; the turn is
// recorded afterwards whichever backend answered.
func (g *Gateway) Ask(ctx context.Context, req ChatRequest) *ChatResponse {
	if req.SessionID != "" && len(req.History) == 0 {
		req.History = g.sessions.Recent(req.SessionID)
	}
	resp := g.chain.Ask(ctx, req)
	if req.SessionID != "" {
		g.sessions.Record(req.SessionID, req.Message, resp.Response)
	}
	return resp
}

func (g *Gateway) askFunc() channel.AskFunc {
	return func(ctx context.Context, req channel.AskRequest) channel.AskResponse {
		resp := g.Ask(ctx, ChatRequest{
			SessionID: req.SessionID,
			Message:   req.Message,
			CourseID:  req.CourseID,
		})
		out := channel.AskResponse{
			Success:    resp.Success,
			Response:   resp.Response,
			Confidence: resp.Confidence,
			Source:     resp.Metadata.Source,
			Fallback:   resp.Metadata.Fallback,
		}
		for _, tc := range resp.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, channel.AskToolCall{Name: tc.Name, Success: tc.Success})
		}
		return out
	}
}

func (g *Gateway) registerJobs() error {
	if g.cfg.Cron.DigestEnabled {
		if err := g.cron.AddJob("registration-digest", g.cfg.Cron.DigestSchedule, g.runDigest); err != nil {
			return err
		}
	}
	if g.cfg.Cron.RefreshEnabled {
		if err := g.cron.AddJob("catalog-refresh", g.cfg.Cron.RefreshExpr, g.refreshCatalog); err != nil {
			return err
		}
	}
	return nil
}

// runDigest sends the last day's registrations to the configured channel.
func (g *Gateway) runDigest() error {
	since := time.Now().Add(-24 * time.Hour)
	regs, err := g.store.RegistrationsSince(since)
	if err != nil {
		return err
	}
	digest := cron.BuildDigest(regs, since)

	if g.cfg.Cron.DigestChannel == "" {
		log.Printf("[gateway] digest (no delivery channel configured):\n%s", digest)
		return nil
	}
	g.bus.Outbound <- bus.OutboundMessage{
		Channel: g.cfg.Cron.DigestChannel,
		ChatID:  g.cfg.Cron.DigestChatID,
		Content: digest,
	}
	return nil
}

// refreshCatalog reloads the catalog counters so drift in the database
// shows up in the logs between deployments.
func (g *Gateway) refreshCatalog() error {
	courses, err := g.store.CountCourses()
	if err != nil {
		return err
	}
	regs, err := g.store.CountRegistrations()
	if err != nil {
		return err
	}
	log.Printf("[gateway] catalog: %d formations, %d inscriptions", courses, regs)
	return nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	g.cron.Start()

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			resp := g.Ask(ctx, ChatRequest{
				SessionID: msg.SessionKey(),
				Message:   msg.Content,
				CourseID:  msg.CourseID,
			})
			if resp.Metadata.Fallback {
				log.Printf("[gateway] degraded reply for %s (source=%s)", msg.SessionKey(), resp.Metadata.Source)
			}

			g.bus.Outbound <- bus.OutboundMessage{
				Channel:  msg.Channel,
				ChatID:   msg.ChatID,
				Content:  resp.Response,
				Metadata: outboundMetadata(resp),
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			log.Printf("[gateway] close store warning: %v", err)
		}
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

// outboundMetadata carries a reply's provenance to the channels so the
// websocket path reports the same confidence and fallback marker as the
// REST endpoint.
func outboundMetadata(resp *ChatResponse) map[string]any {
	meta := map[string]any{
		"confidence": resp.Confidence,
		"source":     resp.Metadata.Source,
		"fallback":   resp.Metadata.Fallback,
	}
	if len(resp.ToolCalls) > 0 {
		calls := make([]channel.AskToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			calls = append(calls, channel.AskToolCall{Name: tc.Name, Success: tc.Success})
		}
		meta["toolCalls"] = calls
	}
	return meta
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
