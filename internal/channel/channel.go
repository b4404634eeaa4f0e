package channel

import (
	"context"

	"github.com/atelierforma/formabot/internal/bus"
)

// Channel is one conversation surface (web widget, Telegram, ...).
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// AskRequest/AskResponse carry a synchronous turn through the webui REST
// endpoint. The gateway injects an AskFunc so channels never import it.
type AskRequest struct {
	SessionID string
	Message   string
	CourseID  string
}

type AskToolCall struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

type AskResponse struct {
	Success    bool          `json:"success"`
	Response   string        `json:"response"`
	Confidence float64       `json:"confidence"`
	ToolCalls  []AskToolCall `json:"toolCalls,omitempty"`
	Source     string        `json:"source"`
	Fallback   bool          `json:"fallback,omitempty"`
}

type AskFunc func(ctx context.Context, req AskRequest) AskResponse

// BaseChannel carries the name, bus handle and sender allow-list shared
// by every channel implementation.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]bool
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	var allowed map[string]bool
	if len(allowFrom) > 0 {
		allowed = make(map[string]bool, len(allowFrom))
		for _, id := range allowFrom {
			allowed[id] = true
		}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (c *BaseChannel) Name() string { return c.name }

// IsAllowed reports whether a sender may talk to the bot. An empty
// allow-list means everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if c.allowFrom == nil {
		return true
	}
	return c.allowFrom[senderID]
}
