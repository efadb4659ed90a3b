package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/testutil"
)

func collectEvents(bus *MemoryBus) (*sync.Mutex, *[]Event) {
	var mu sync.Mutex
	var got []Event
	bus.Subscribe(func(_ context.Context, ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	return &mu, &got
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(testutil.Logger(t))
	t.Cleanup(func() { _ = bus.Close() })
	mu, got := collectEvents(bus)

	docID := uuid.New()
	first := Event{Type: TypeDocumentCreated, DocumentID: docID}
	second := Event{Type: TypeWorkflowTransition, DocumentID: docID, Label: "Submit"}
	if err := bus.Publish(context.Background(), first); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(context.Background(), second); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.Drain(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 2 {
		t.Fatalf("delivered: want=2 got=%d", len(*got))
	}
	if (*got)[0].Type != TypeDocumentCreated || (*got)[1].Type != TypeWorkflowTransition {
		t.Fatalf("order: got=[%s %s]", (*got)[0].Type, (*got)[1].Type)
	}
	if (*got)[0].At.IsZero() {
		t.Fatalf("publish did not stamp At")
	}
}

func TestMemoryBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewMemoryBus(testutil.Logger(t))
	t.Cleanup(func() { _ = bus.Close() })
	muA, gotA := collectEvents(bus)
	muB, gotB := collectEvents(bus)

	if err := bus.Publish(context.Background(), Event{Type: TypeDocumentCreated, DocumentID: uuid.New()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.Drain(time.Second)

	muA.Lock()
	nA := len(*gotA)
	muA.Unlock()
	muB.Lock()
	nB := len(*gotB)
	muB.Unlock()
	if nA != 1 || nB != 1 {
		t.Fatalf("fan-out: want 1/1 got %d/%d", nA, nB)
	}
}

func TestMemoryBusPublishFromHandlerNeverBlocks(t *testing.T) {
	bus := NewMemoryBus(testutil.Logger(t))
	t.Cleanup(func() { _ = bus.Close() })

	// park the dispatch goroutine inside a handler, then overfill the queue
	// the way a handler that republishes would
	gate := make(chan struct{})
	bus.Subscribe(func(_ context.Context, _ Event) { <-gate })
	t.Cleanup(func() { close(gate) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(bus.ch)+10; i++ {
			if err := bus.Publish(context.Background(), Event{Type: TypeWorkflowTransition, DocumentID: uuid.New()}); err != nil {
				t.Errorf("Publish: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}
}

func TestMemoryBusSurvivesHandlerPanic(t *testing.T) {
	bus := NewMemoryBus(testutil.Logger(t))
	t.Cleanup(func() { _ = bus.Close() })

	bus.Subscribe(func(context.Context, Event) { panic("handler bug") })
	mu, got := collectEvents(bus)

	if err := bus.Publish(context.Background(), Event{Type: TypeDocumentCreated, DocumentID: uuid.New()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.Drain(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != 1 {
		t.Fatalf("panic in one handler starved the next: got=%d", len(*got))
	}
}
