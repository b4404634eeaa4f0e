package gateway

import (
	"testing"

	"github.com/atelierforma/formabot/internal/agent"
	"github.com/atelierforma/formabot/internal/config"
)

func TestLLMBackend_BuildMessages(t *testing.T) {
	b := NewLLMBackend(config.ProviderConfig{APIKey: "sk-test", Model: "claude-3-5-haiku-latest", MaxTokens: 1024}, 4)

	history := []agent.ConversationMessage{
		{Role: agent.RoleUser, Content: "u1"},
		{Role: agent.RoleAssistant, Content: "a1"},
		{Role: agent.RoleUser, Content: "u2"},
		{Role: agent.RoleAssistant, Content: "a2"},
		{Role: agent.RoleUser, Content: "u3"},
		{Role: agent.RoleAssistant, Content: "a3"},
	}

	messages := b.buildMessages(ChatRequest{
		Message:  "quel est le programme ?",
		CourseID: "python",
		History:  history,
	})

	// Windowed history (4) plus the current prompt.
	if len(messages) != 5 {
		t.Fatalf("messages = %d, want 5", len(messages))
	}
}

func TestLLMBackend_BuildMessagesWithoutHistory(t *testing.T) {
	b := NewLLMBackend(config.ProviderConfig{APIKey: "sk-test"}, 10)

	messages := b.buildMessages(ChatRequest{Message: "bonjour"})
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want the prompt only", len(messages))
	}
}

func TestLLMBackend_Name(t *testing.T) {
	b := NewLLMBackend(config.ProviderConfig{APIKey: "sk-test"}, 10)
	if b.Name() != "hosted_llm" {
		t.Errorf("name = %q", b.Name())
	}
}
