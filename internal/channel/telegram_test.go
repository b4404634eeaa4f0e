package channel

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/atelierforma/formabot/internal/bus"
	"github.com/atelierforma/formabot/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBot struct {
	updates chan tgbotapi.Update
	sent    []tgbotapi.Chattable
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	close(f.updates)
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "formabot_test"}
}

func newFakeTelegram(t *testing.T, cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, *fakeBot) {
	t.Helper()
	fake := &fakeBot{updates: make(chan tgbotapi.Update, 4)}
	ch, err := NewTelegramChannelWithFactory(cfg, b, func(string, *http.Client) (TelegramBot, error) {
		return fake, nil
	})
	if err != nil {
		t.Fatalf("new telegram channel: %v", err)
	}
	return ch, fake
}

func textUpdate(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestTelegram_RequiresToken(t *testing.T) {
	_, err := NewTelegramChannel(config.TelegramConfig{}, bus.NewMessageBus(1))
	if err == nil {
		t.Fatal("empty token must be rejected")
	}
}

func TestTelegram_InboundMessage(t *testing.T) {
	b := bus.NewMessageBus(4)
	ch, fake := newFakeTelegram(t, config.TelegramConfig{Token: "tok"}, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	fake.updates <- textUpdate(42, 100, "quelles formations ?")

	select {
	case msg := <-b.Inbound:
		if msg.Channel != "telegram" || msg.SenderID != "42" || msg.ChatID != "100" {
			t.Errorf("inbound = %+v", msg)
		}
		if msg.Content != "quelles formations ?" {
			t.Errorf("content = %q", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("inbound message never reached the bus")
	}
}

func TestTelegram_AllowListRejects(t *testing.T) {
	b := bus.NewMessageBus(4)
	ch, fake := newFakeTelegram(t, config.TelegramConfig{Token: "tok", AllowFrom: []string{"42"}}, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	fake.updates <- textUpdate(99, 100, "bonjour")
	fake.updates <- textUpdate(42, 100, "bonjour")

	select {
	case msg := <-b.Inbound:
		if msg.SenderID != "42" {
			t.Errorf("unlisted sender got through: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("allowed sender's message never arrived")
	}
}

func TestTelegram_Send(t *testing.T) {
	b := bus.NewMessageBus(1)
	ch, fake := newFakeTelegram(t, config.TelegramConfig{Token: "tok"}, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	if err := ch.Send(bus.OutboundMessage{ChatID: "100", Content: "Voici nos formations."}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(fake.sent))
	}

	if err := ch.Send(bus.OutboundMessage{ChatID: "not-a-number", Content: "x"}); err == nil {
		t.Error("invalid chat id must be an error")
	}
}
