package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls []string
	bus.Subscribe("quotes.signed", HandlerFunc(func(_ context.Context, _ Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	}))
	bus.Subscribe("quotes.signed", HandlerFunc(func(_ context.Context, _ Event) error {
		calls = append(calls, "second")
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "quotes.signed"})
	if err == nil {
		t.Fatal("expected joined error from failing handler")
	}
	if len(calls) != 2 {
		t.Fatalf("expected both handlers to run, got %v", calls)
	}
	if calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected registration order, got %v", calls)
	}
}

func TestPublishDoesNotDeliverToOtherEventNames(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var mu sync.Mutex
	delivered := 0
	done := make(chan struct{})
	bus.Subscribe("dossiers.created", HandlerFunc(func(_ context.Context, _ Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "dossiers.deleted"})
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "dossiers.created"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked for matching event")
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Fatalf("expected exactly one delivery, got %d", delivered)
	}
}

func TestPublishSurvivesCancelledRequestContext(t *testing.T) {
	bus := NewInMemoryBus(nil)

	done := make(chan error, 1)
	bus.Subscribe("dossiers.relance.due", HandlerFunc(func(ctx context.Context, _ Event) error {
		done <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent(), name: "dossiers.relance.due"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("handler context should be detached from caller cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}
