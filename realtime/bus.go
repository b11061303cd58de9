package realtime

import (
	"context"
	"sync"
)

// Bus is the cross-process publish/subscribe channel between gateway
// instances. It is transport only: the store stays the single source of
// truth and a dropped broadcast is recovered by the next history fetch.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

const busBuffer = 256

// MemoryBus is the single-process Bus: the deployment fallback when no
// Redis is configured, and the double the tests run on.
type MemoryBus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
			// Slow subscriber; broadcast is at-least-once, not guaranteed.
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(chan Event, busBuffer)
	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
	return nil
}
