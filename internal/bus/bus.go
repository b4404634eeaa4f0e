package bus

import (
	"context"
	"log"
	"sync"
)

// MessageBus decouples channels from the gateway: channels push user turns
// onto Inbound, the gateway pushes replies onto Outbound, and DispatchOutbound
// routes each reply back to the channel that subscribed under its name.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu   sync.RWMutex
	subs map[string]func(OutboundMessage)
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		Outbound: make(chan OutboundMessage, bufSize),
		subs:     make(map[string]func(OutboundMessage)),
	}
}

func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = fn
}

func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn, ok := b.subs[msg.Channel]
			b.mu.RUnlock()
			if !ok {
				log.Printf("[bus] no subscriber for channel %s, dropping message", msg.Channel)
				continue
			}
			fn(msg)
		case <-ctx.Done():
			return
		}
	}
}
