package gateway

import (
	"sync"
	"time"

	"github.com/atelierforma/formabot/internal/agent"
	"github.com/google/uuid"
)

// sessionLog records completed turns per session so backends that hold no
// conversation state of their own (remote agent service, hosted LLM) still
// receive the recent history on every request.
type sessionLog struct {
	mu       sync.Mutex
	window   int
	sessions map[string]*agent.ConversationContext
}

func newSessionLog(window int) *sessionLog {
	return &sessionLog{
		window:   window,
		sessions: make(map[string]*agent.ConversationContext),
	}
}

// Recent returns a copy of the session's last messages, oldest first.
func (l *sessionLog) Recent(sessionID string) []agent.ConversationMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, ok := l.sessions[sessionID]
	if !ok {
		return nil
	}
	recent := ctx.Recent(l.window)
	out := make([]agent.ConversationMessage, len(recent))
	copy(out, recent)
	return out
}

// Record appends one completed turn: the user message and the reply that
// was sent back, whichever backend produced it.
func (l *sessionLog) Record(sessionID, userText, assistantText string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, ok := l.sessions[sessionID]
	if !ok {
		ctx = agent.NewContext("", "")
		l.sessions[sessionID] = ctx
	}
	now := time.Now().UTC()
	ctx.Append(agent.ConversationMessage{
		ID:        uuid.NewString(),
		Role:      agent.RoleUser,
		Content:   userText,
		Timestamp: now,
	})
	ctx.Append(agent.ConversationMessage{
		ID:        uuid.NewString(),
		Role:      agent.RoleAssistant,
		Content:   assistantText,
		Timestamp: now,
	})
}
