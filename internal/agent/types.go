package agent

import (
	"time"

	"github.com/atelierforma/formabot/internal/tools"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is one immutable turn of a session.
type ConversationMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ToolCall records one tool invocation of a turn. Result stays nil until
// the registry has executed the call; Error carries the failure marker
// when the handler raised.
type ToolCall struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Parameters tools.Params `json:"parameters,omitempty"`
	Result     any          `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
}

func (tc *ToolCall) Failed() bool { return tc.Error != "" }

// AgentResponse is the orchestrator's output contract.
type AgentResponse struct {
	Message    string         `json:"message"`
	ToolCalls  []ToolCall     `json:"toolCalls,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
