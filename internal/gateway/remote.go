package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atelierforma/formabot/internal/agent"
)

const remoteHistoryWindow = 10

// RemoteBackend calls the advanced remote agent service. A reply counts
// as success only when the HTTP status is 2xx and the body carries an
// explicit success flag.
type RemoteBackend struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewRemoteBackend(url string, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *RemoteBackend) Name() string { return "remote_agent" }

type remoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type remoteRequest struct {
	Message             string          `json:"message"`
	CourseID            string          `json:"course_id,omitempty"`
	ConversationHistory []remoteMessage `json:"conversation_history"`
}

type remoteResponse struct {
	Success    bool     `json:"success"`
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence"`
	ToolsUsed  []string `json:"tools_used"`
	Error      string   `json:"error,omitempty"`
}

func (b *RemoteBackend) Respond(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := remoteRequest{
		Message:             req.Message,
		CourseID:            req.CourseID,
		ConversationHistory: toRemoteHistory(req.History),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal remote request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build remote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote service unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("remote service status %d", httpResp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode remote response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("remote service reported failure: %s", parsed.Error)
	}

	resp := &ChatResponse{
		Success:    true,
		Response:   parsed.Response,
		Confidence: parsed.Confidence,
		Metadata: ResponseMetadata{
			CourseID:  req.CourseID,
			Timestamp: time.Now().UTC(),
			Source:    b.Name(),
		},
	}
	for _, name := range parsed.ToolsUsed {
		resp.ToolCalls = append(resp.ToolCalls, ToolCallSummary{Name: name, Success: true})
	}
	return resp, nil
}

func toRemoteHistory(history []agent.ConversationMessage) []remoteMessage {
	if len(history) > remoteHistoryWindow {
		history = history[len(history)-remoteHistoryWindow:]
	}
	out := make([]remoteMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, remoteMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}
