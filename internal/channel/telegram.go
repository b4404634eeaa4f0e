package channel

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/atelierforma/formabot/internal/bus"
	"github.com/atelierforma/formabot/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramChannelName = "telegram"

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramChannel lets prospects talk to the same assistant from
// Telegram. Replies flow back through the bus like any other channel.
type TelegramChannel struct {
	BaseChannel
	token      string
	bot        TelegramBot
	proxy      string
	httpClient *http.Client
	cancel     context.CancelFunc
	botFactory BotFactory
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, b, defaultBotFactory)
}

func NewTelegramChannelWithFactory(cfg config.TelegramConfig, b *bus.MessageBus, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse telegram proxy: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel(telegramChannelName, b, cfg.AllowFrom),
		token:       cfg.Token,
		proxy:       cfg.Proxy,
		httpClient:  httpClient,
		botFactory:  factory,
	}, nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	bot, err := t.botFactory(t.token, t.httpClient)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := bot.GetUpdatesChan(updateCfg)

	go t.pollLoop(runCtx, updates)
	return nil
}

func (t *TelegramChannel) pollLoop(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}

			senderID := strconv.FormatInt(update.Message.From.ID, 10)
			if !t.IsAllowed(senderID) {
				log.Printf("[telegram] rejected message from %s", senderID)
				continue
			}

			t.bus.Inbound <- bus.InboundMessage{
				Channel:   telegramChannelName,
				SenderID:  senderID,
				ChatID:    strconv.FormatInt(update.Message.Chat.ID, 10),
				Content:   update.Message.Text,
				Timestamp: time.Now(),
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse telegram chat id %q: %w", msg.ChatID, err)
	}
	out := tgbotapi.NewMessage(chatID, msg.Content)
	if _, err := t.bot.Send(out); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	log.Printf("[telegram] stopped")
	return nil
}
