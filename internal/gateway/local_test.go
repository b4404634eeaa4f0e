package gateway

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/atelierforma/formabot/internal/store"
	"github.com/atelierforma/formabot/internal/tools"
)

type memCourseStore struct {
	courses []store.Course
}

func (m *memCourseStore) CourseByID(id string) (*store.Course, error) {
	for i := range m.courses {
		if m.courses[i].ID == id {
			c := m.courses[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrCourseNotFound, id)
}

func (m *memCourseStore) ListCourses() ([]store.CourseSummary, error) {
	out := make([]store.CourseSummary, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, store.CourseSummary{ID: c.ID, Label: c.Label, Level: c.Level})
	}
	return out, nil
}

func (m *memCourseStore) AllCourses() ([]store.Course, error) {
	return m.courses, nil
}

func (m *memCourseStore) CreateRegistration(reg store.NewRegistration) (*store.Registration, error) {
	if _, err := m.CourseByID(reg.CourseID); err != nil {
		return nil, err
	}
	return &store.Registration{ID: "reg-1", CourseID: reg.CourseID}, nil
}

func newLocalBackend(t *testing.T) *LocalBackend {
	t.Helper()
	ms := &memCourseStore{courses: []store.Course{
		{ID: "python", Label: "Formation Python", Level: "Niveau débutant", Description: "Apprenez Python."},
	}}
	registry := tools.NewRegistry()
	if err := tools.NewToolset(ms).RegisterAll(registry); err != nil {
		t.Fatalf("register toolset: %v", err)
	}
	return NewLocalBackend(registry, "fr")
}

func TestLocalBackend_Respond(t *testing.T) {
	b := newLocalBackend(t)

	resp, err := b.Respond(context.Background(), ChatRequest{
		SessionID: "webui:1",
		Message:   "Quel est le programme ?",
		CourseID:  "python",
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !resp.Success {
		t.Error("local backend reply should be successful")
	}
	if resp.Metadata.Source != "local_agent" {
		t.Errorf("source = %s", resp.Metadata.Source)
	}
	if !strings.Contains(resp.Response, "Formation Python") {
		t.Errorf("reply not grounded: %q", resp.Response)
	}
	if len(resp.ToolCalls) != 1 || !resp.ToolCalls[0].Success {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
}

func TestLocalBackend_SessionReuse(t *testing.T) {
	b := newLocalBackend(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.Respond(ctx, ChatRequest{SessionID: "webui:1", Message: "bonjour"}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	if _, err := b.Respond(ctx, ChatRequest{SessionID: "telegram:42", Message: "bonjour"}); err != nil {
		t.Fatal(err)
	}

	if got := b.SessionCount(); got != 2 {
		t.Errorf("sessions = %d, want 2", got)
	}

	snapshot, ok := b.SessionHistory("webui:1")
	if !ok {
		t.Fatal("missing session history")
	}
	// Three turns: three user messages plus three assistant messages.
	if n := strings.Count(string(snapshot), `"role":"user"`); n != 3 {
		t.Errorf("user messages in history = %d, want 3", n)
	}
}

func TestLocalBackend_UnknownSessionHistory(t *testing.T) {
	b := newLocalBackend(t)
	if _, ok := b.SessionHistory("missing"); ok {
		t.Error("unknown session should report not found")
	}
}
