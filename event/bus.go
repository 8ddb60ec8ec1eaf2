package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyncBus is the default in-process Bus. Publish delivers to subscribers
// synchronously, in subscription order, on the caller's goroutine.
type SyncBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

var _ Bus = (*SyncBus)(nil)

func NewSyncBus() *SyncBus {
	return &SyncBus{
		handlers: make(map[string][]Handler),
	}
}

func (b *SyncBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *SyncBus) Publish(ctx context.Context, topic string, fields map[string]any) error {
	b.mu.RLock()
	subscribed := make([]Handler, len(b.handlers[topic]))
	copy(subscribed, b.handlers[topic])
	b.mu.RUnlock()

	evt := Event{
		ID:        uuid.New(),
		Topic:     topic,
		CreatedAt: time.Now(),
		Fields:    fields,
	}

	for _, h := range subscribed {
		h(ctx, evt)
	}

	return nil
}
