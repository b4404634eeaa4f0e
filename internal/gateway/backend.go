package gateway

import (
	"context"
	"time"

	"github.com/atelierforma/formabot/internal/agent"
)

// ChatRequest is one user turn as seen by the fallback chain.
type ChatRequest struct {
	SessionID string
	Message   string
	CourseID  string
	History   []agent.ConversationMessage
}

type ToolCallSummary struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

type ResponseMetadata struct {
	CourseID  string    `json:"courseId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Fallback  bool      `json:"fallback,omitempty"`
}

// ChatResponse is the outbound contract towards the UI.
type ChatResponse struct {
	Success    bool              `json:"success"`
	Response   string            `json:"response"`
	Confidence float64           `json:"confidence"`
	ToolCalls  []ToolCallSummary `json:"toolCalls,omitempty"`
	Metadata   ResponseMetadata  `json:"metadata"`
}

// Backend is one response source in the fallback chain. A backend either
// returns a successful response or an error; the chain treats any error
// as "try the next source".
type Backend interface {
	Name() string
	Respond(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
