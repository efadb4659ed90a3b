package events

import (
	"context"
	"sync"
	"time"

	"github.com/orvane/docflow-backend/internal/logger"
)

// MemoryBus is an in-process Bus for single-node deployments and tests.
// Events are fanned out to subscribers on a dispatch goroutine so a slow
// handler never blocks the publisher.
type MemoryBus struct {
	log      *logger.Logger
	mu       sync.RWMutex
	handlers []Handler
	ch       chan Event
	done     chan struct{}
	closeOne sync.Once
}

func NewMemoryBus(log *logger.Logger) *MemoryBus {
	b := &MemoryBus{
		log:  log.With("service", "MemoryEventBus"),
		ch:   make(chan Event, 256),
		done: make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish never blocks. Handlers may themselves publish (a transition fired
// by an event trigger publishes workflow.transitioned from the dispatch
// goroutine), so a full queue drops the event instead of deadlocking the
// consumer.
func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case b.ch <- ev:
	case <-b.done:
	default:
		b.log.Warn("Event queue full, dropping event", "event_type", ev.Type)
	}
	return nil
}

func (b *MemoryBus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

func (b *MemoryBus) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.ch:
			b.mu.RLock()
			handlers := make([]Handler, len(b.handlers))
			copy(handlers, b.handlers)
			b.mu.RUnlock()
			for _, h := range handlers {
				func() {
					defer func() {
						if r := recover(); r != nil {
							b.log.Error("Event handler panic", "event_type", ev.Type, "panic", r)
						}
					}()
					h(context.Background(), ev)
				}()
			}
		}
	}
}

// Drain blocks until the queue is empty. Test helper.
func (b *MemoryBus) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(b.ch) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// one more beat so the in-flight handler finishes
	time.Sleep(10 * time.Millisecond)
}

func (b *MemoryBus) Close() error {
	b.closeOne.Do(func() { close(b.done) })
	return nil
}
