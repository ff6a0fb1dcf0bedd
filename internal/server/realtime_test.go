package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "entity-1")
	defer cleanup()

	dispatcher.NotifyChanges("entity-1", []string{"balance", "members"})

	select {
	case received := <-stream:
		if received.EventType != RealtimeEventViewChanged {
			t.Fatalf("expected event type %s, got %s", RealtimeEventViewChanged, received.EventType)
		}
		if len(received.ViewNames) != 2 {
			t.Fatalf("expected 2 view names, got %d", len(received.ViewNames))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message within deadline")
	}
}

func TestRealtimeDispatcherIsolatedByEntity(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otherCtx, otherCancel := context.WithCancel(context.Background())
	defer otherCancel()

	entityStream, cleanup := dispatcher.Subscribe(ctx, "entity-2")
	defer cleanup()

	otherStream, otherCleanup := dispatcher.Subscribe(otherCtx, "entity-3")
	defer otherCleanup()

	dispatcher.NotifyChanges("entity-3", []string{"balance"})

	select {
	case <-entityStream:
		t.Fatal("did not expect realtime message for unrelated entity")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case message := <-otherStream:
		if message.EntityID != "entity-3" {
			t.Fatalf("unexpected entity id: %s", message.EntityID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message for subscribed entity")
	}
}

func TestRealtimeDispatcherUnsubscribesOnContextCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	stream, _ := dispatcher.Subscribe(ctx, "entity-4")
	cancel()

	deadline := time.After(500 * time.Millisecond)
	for {
		dispatcher.NotifyChanges("entity-4", []string{"balance"})
		select {
		case <-stream:
			select {
			case <-deadline:
				t.Fatal("subscriber still receiving after cancellation")
			default:
			}
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func TestRealtimeDispatcherIgnoresEmptyEntity(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()

	stream, cleanup := dispatcher.Subscribe(context.Background(), "")
	defer cleanup()

	if _, open := <-stream; open {
		t.Fatal("expected closed stream for empty entity id")
	}
}
