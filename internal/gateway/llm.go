package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/atelierforma/formabot/internal/agent"
	"github.com/atelierforma/formabot/internal/config"
)

const llmConfidence = 0.75

const llmSystemPrompt = "Tu es l'assistant virtuel d'Atelier Forma, un organisme de formation technique " +
	"(Python, AWS, Docker, sécurité applicative, IA générative, Terraform). " +
	"Réponds en français, de façon brève et factuelle, aux questions des prospects sur les formations. " +
	"Si tu ne connais pas une information (tarif précis, date de session), invite le visiteur à contacter l'équipe."

// LLMBackend answers through a hosted language model when the remote
// agent service is down. It has no tool access, only the system prompt
// and the conversation history.
type LLMBackend struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	window    int
}

func NewLLMBackend(cfg config.ProviderConfig, historyWindow int) *LLMBackend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &LLMBackend{
		client:    &client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		window:    historyWindow,
	}
}

func (b *LLMBackend) Name() string { return "hosted_llm" }

func (b *LLMBackend) Respond(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := b.buildMessages(req)

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: llmSystemPrompt}},
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return nil, fmt.Errorf("llm returned an empty reply")
	}

	return &ChatResponse{
		Success:    true,
		Response:   reply,
		Confidence: llmConfidence,
		Metadata: ResponseMetadata{
			CourseID:  req.CourseID,
			Timestamp: time.Now().UTC(),
			Source:    b.Name(),
		},
	}, nil
}

func (b *LLMBackend) buildMessages(req ChatRequest) []anthropic.MessageParam {
	history := req.History
	if b.window > 0 && len(history) > b.window {
		history = history[len(history)-b.window:]
	}

	var messages []anthropic.MessageParam
	for _, msg := range history {
		switch msg.Role {
		case agent.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case agent.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	prompt := req.Message
	if req.CourseID != "" {
		prompt = fmt.Sprintf("[Formation consultée : %s]\n%s", req.CourseID, req.Message)
	}
	return append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
}
