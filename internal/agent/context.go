package agent

import (
	"encoding/json"
	"fmt"
)

// ConversationContext is the per-session state: the course under
// discussion (immutable for the session), the visitor's language, and the
// append-only message history. A context belongs to exactly one
// orchestrator and is never shared across sessions.
type ConversationContext struct {
	CourseID string                `json:"courseId,omitempty"`
	Language string                `json:"language"`
	History  []ConversationMessage `json:"history"`
}

func NewContext(courseID, language string) *ConversationContext {
	if language == "" {
		language = "fr"
	}
	return &ConversationContext{CourseID: courseID, Language: language}
}

func (c *ConversationContext) Append(msg ConversationMessage) {
	c.History = append(c.History, msg)
}

// Recent returns the last n messages in chronological order.
func (c *ConversationContext) Recent(n int) []ConversationMessage {
	if n <= 0 || len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// Snapshot serializes the context so the host can persist it wherever it
// wants (the web widget keeps it client-side).
func (c *ConversationContext) Snapshot() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("snapshot context: %w", err)
	}
	return data, nil
}

func RestoreContext(data []byte) (*ConversationContext, error) {
	var c ConversationContext
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("restore context: %w", err)
	}
	if c.Language == "" {
		c.Language = "fr"
	}
	return &c, nil
}
