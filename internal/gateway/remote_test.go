package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atelierforma/formabot/internal/agent"
)

func TestRemoteBackend_Success(t *testing.T) {
	var received remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(remoteResponse{
			Success:    true,
			Response:   "Voici le programme de la formation.",
			Confidence: 0.92,
			ToolsUsed:  []string{"get_course_info"},
		})
	}))
	defer srv.Close()

	b := NewRemoteBackend(srv.URL, 5*time.Second)
	resp, err := b.Respond(context.Background(), ChatRequest{
		Message:  "quel est le programme ?",
		CourseID: "python",
		History: []agent.ConversationMessage{
			{Role: agent.RoleUser, Content: "bonjour"},
			{Role: agent.RoleAssistant, Content: "Bonjour !"},
		},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	if resp.Response != "Voici le programme de la formation." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.Confidence != 0.92 {
		t.Errorf("confidence = %.2f", resp.Confidence)
	}
	if resp.Metadata.Source != "remote_agent" {
		t.Errorf("source = %s", resp.Metadata.Source)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "get_course_info" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}

	if received.Message != "quel est le programme ?" || received.CourseID != "python" {
		t.Errorf("wire request = %+v", received)
	}
	if len(received.ConversationHistory) != 2 || received.ConversationHistory[0].Role != "user" {
		t.Errorf("history = %+v", received.ConversationHistory)
	}
}

func TestRemoteBackend_ReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteResponse{Success: false, Error: "model overloaded"})
	}))
	defer srv.Close()

	b := NewRemoteBackend(srv.URL, 5*time.Second)
	if _, err := b.Respond(context.Background(), ChatRequest{Message: "bonjour"}); err == nil {
		t.Fatal("success=false body must be an error")
	}
}

func TestRemoteBackend_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewRemoteBackend(srv.URL, 5*time.Second)
	if _, err := b.Respond(context.Background(), ChatRequest{Message: "bonjour"}); err == nil {
		t.Fatal("5xx status must be an error")
	}
}

func TestRemoteBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	b := NewRemoteBackend(srv.URL, time.Second)
	if _, err := b.Respond(context.Background(), ChatRequest{Message: "bonjour"}); err == nil {
		t.Fatal("closed server must be an error")
	}
}

func TestRemoteBackend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so net/http can watch the connection and cancel
		// the request context when the client times out and disconnects.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	b := NewRemoteBackend(srv.URL, 50*time.Millisecond)
	if _, err := b.Respond(context.Background(), ChatRequest{Message: "bonjour"}); err == nil {
		t.Fatal("slow server must time out")
	}
}

func TestRemoteBackend_HistoryWindow(t *testing.T) {
	history := make([]agent.ConversationMessage, 25)
	for i := range history {
		history[i] = agent.ConversationMessage{Role: agent.RoleUser, Content: "msg"}
	}
	wire := toRemoteHistory(history)
	if len(wire) != remoteHistoryWindow {
		t.Errorf("wire history = %d messages, want %d", len(wire), remoteHistoryWindow)
	}
}
