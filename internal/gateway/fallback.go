package gateway

import (
	"context"
	"log"
	"time"
)

const (
	// FallbackConfidence is pinned low so the caller can see the reply
	// came from the static source.
	FallbackConfidence = 0.25

	FallbackMessage = "Je suis désolé, je rencontre des difficultés techniques. " +
		"Veuillez réessayer dans quelques instants ou nous contacter directement à contact@atelierforma.fr."
)

// Chain tries each backend in strict order until one answers. No backend
// failure ever reaches the caller: the worst case is the static fallback
// message.
type Chain struct {
	backends []Backend
}

func NewChain(backends ...Backend) *Chain {
	return &Chain{backends: backends}
}

// Ask returns a response from the first backend that succeeds, or the
// static fallback when every source failed.
func (c *Chain) Ask(ctx context.Context, req ChatRequest) *ChatResponse {
	for _, backend := range c.backends {
		resp, err := func() (resp *ChatResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[gateway] backend %s panicked: %v", backend.Name(), r)
					resp, err = nil, context.Canceled
				}
			}()
			return backend.Respond(ctx, req)
		}()
		if err != nil {
			log.Printf("[gateway] backend %s failed: %v", backend.Name(), err)
			continue
		}
		if resp == nil || !resp.Success {
			log.Printf("[gateway] backend %s returned no usable response", backend.Name())
			continue
		}
		return resp
	}

	return &ChatResponse{
		Success:    true,
		Response:   FallbackMessage,
		Confidence: FallbackConfidence,
		Metadata: ResponseMetadata{
			CourseID:  req.CourseID,
			Timestamp: time.Now().UTC(),
			Source:    "static_fallback",
			Fallback:  true,
		},
	}
}

// Backends lists the configured source names in priority order.
func (c *Chain) Backends() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return names
}
