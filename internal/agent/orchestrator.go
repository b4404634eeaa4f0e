package agent

import (
	"errors"
	"log"
	"time"

	"github.com/atelierforma/formabot/internal/tools"
	"github.com/google/uuid"
)

const apologyConfidence = 0.1

const apologyMessage = "Je suis désolé, une erreur inattendue s'est produite. Pouvez-vous reformuler votre question ?"

// Orchestrator owns one conversation and drives the route → execute →
// compose pipeline for each turn. It is not safe for concurrent turns on
// the same session; the UI never issues two at once.
type Orchestrator struct {
	ctx      *ConversationContext
	registry *tools.Registry
	router   *Router
	composer *Composer
}

type Option func(*Orchestrator)

func WithRouter(r *Router) Option {
	return func(o *Orchestrator) { o.router = r }
}

func WithComposer(c *Composer) Option {
	return func(o *Orchestrator) { o.composer = c }
}

func NewOrchestrator(ctx *ConversationContext, registry *tools.Registry, opts ...Option) *Orchestrator {
	if ctx == nil {
		ctx = NewContext("", "")
	}
	o := &Orchestrator{
		ctx:      ctx,
		registry: registry,
		router:   NewRouter(),
		composer: NewComposer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Context() *ConversationContext {
	return o.ctx
}

// ProcessMessage runs one turn: append the user message, route, execute
// each tool call in emitted order, compose, append the assistant message.
// Individual tool failures are recorded on their call and never abort the
// turn; anything else unexpected degrades to a low-confidence apology.
func (o *Orchestrator) ProcessMessage(text string) (resp AgentResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] recovered from turn failure: %v", r)
			resp = AgentResponse{
				Message:    apologyMessage,
				Confidence: apologyConfidence,
				Metadata:   map[string]any{"mode": "error"},
			}
		}
	}()

	o.ctx.Append(ConversationMessage{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	})

	calls := o.router.Route(text, o.ctx)
	executed := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		result, err := o.registry.Invoke(call.Name, call.Parameters)
		if err != nil {
			if errors.Is(err, tools.ErrUnknownTool) {
				// A rule referencing an unregistered tool is a no-op.
				log.Printf("[agent] skipping unknown tool %s", call.Name)
				continue
			}
			call.Error = err.Error()
		} else {
			call.Result = result
		}
		executed = append(executed, call)
	}

	resp = o.composer.Compose(text, o.ctx, executed)

	o.ctx.Append(ConversationMessage{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   resp.Message,
		Timestamp: time.Now().UTC(),
		ToolCalls: executed,
	})
	return resp
}
