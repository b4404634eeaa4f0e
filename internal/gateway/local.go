package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/atelierforma/formabot/internal/agent"
	"github.com/atelierforma/formabot/internal/tools"
)

// LocalBackend runs the in-process orchestrator, one per session. The
// orchestrator never lets an error escape ProcessMessage, so this backend
// only fails when something outside a turn goes wrong.
type LocalBackend struct {
	registry *tools.Registry
	language string

	mu       sync.Mutex
	sessions map[string]*agent.Orchestrator
}

func NewLocalBackend(registry *tools.Registry, language string) *LocalBackend {
	return &LocalBackend{
		registry: registry,
		language: language,
		sessions: make(map[string]*agent.Orchestrator),
	}
}

func (b *LocalBackend) Name() string { return "local_agent" }

func (b *LocalBackend) Respond(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	orch := b.session(req.SessionID, req.CourseID)
	result := orch.ProcessMessage(req.Message)

	resp := &ChatResponse{
		Success:    true,
		Response:   result.Message,
		Confidence: result.Confidence,
		Metadata: ResponseMetadata{
			CourseID:  req.CourseID,
			Timestamp: time.Now().UTC(),
			Source:    b.Name(),
		},
	}
	for i := range result.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCallSummary{
			Name:    result.ToolCalls[i].Name,
			Success: !result.ToolCalls[i].Failed(),
		})
	}
	return resp, nil
}

// session returns the orchestrator for a session key, creating it on
// first use. The course focus is fixed at creation, like the widget that
// opens one chat per course page.
func (b *LocalBackend) session(sessionID, courseID string) *agent.Orchestrator {
	b.mu.Lock()
	defer b.mu.Unlock()

	if orch, ok := b.sessions[sessionID]; ok {
		return orch
	}
	orch := agent.NewOrchestrator(agent.NewContext(courseID, b.language), b.registry)
	b.sessions[sessionID] = orch
	return orch
}

// SessionCount reports how many conversations are alive; used by status.
func (b *LocalBackend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// SessionHistory exposes a session's history snapshot for the host.
func (b *LocalBackend) SessionHistory(sessionID string) ([]byte, bool) {
	b.mu.Lock()
	orch, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return nil, false
	}
	data, err := orch.Context().Snapshot()
	if err != nil {
		return nil, false
	}
	return data, true
}
