// Package bus connects channels to the gateway through buffered queues.
package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]func(OutboundMessage)
	log         *zap.Logger
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:     make(chan InboundMessage, bufSize),
		Outbound:    make(chan OutboundMessage, bufSize),
		subscribers: make(map[string]func(OutboundMessage)),
		log:         zap.NewNop(),
	}
}

// SetLogger replaces the no-op logger.
func (b *MessageBus) SetLogger(log *zap.Logger) {
	if log != nil {
		b.log = log
	}
}

// SubscribeOutbound registers the sender for one channel name.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = fn
}

// Publish queues msg for delivery, giving up when ctx ends.
func (b *MessageBus) Publish(ctx context.Context, msg OutboundMessage) error {
	select {
	case b.Outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DispatchOutbound delivers outbound messages to their channel's subscriber
// until ctx is done. Messages for unknown channels are dropped.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn, ok := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			if !ok {
				b.log.Warn("no subscriber for outbound message", zap.String("channel", msg.Channel))
				continue
			}
			fn(msg)
		case <-ctx.Done():
			return
		}
	}
}
