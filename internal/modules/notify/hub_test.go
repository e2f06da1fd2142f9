// README: Hub fan-out tests (targeting, buffering, unsubscribe).
package notify

import (
	"testing"
	"time"
)

func TestHubPublishReachesOnlyTarget(t *testing.T) {
	hub := NewHub()

	_, c1 := hub.Subscribe("c1")
	_, c2 := hub.Subscribe("c2")

	delivered := hub.Publish("c1", Event{Type: "status", Title: "hello"})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	select {
	case e := <-c1:
		if e.Title != "hello" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("c1 never received the event")
	}

	select {
	case e := <-c2:
		t.Fatalf("c2 received event for c1: %+v", e)
	default:
	}
}

func TestHubMultipleListenersPerTarget(t *testing.T) {
	hub := NewHub()

	_, a := hub.Subscribe("c1")
	_, b := hub.Subscribe("c1")
	if hub.Listeners("c1") != 2 {
		t.Fatalf("listeners = %d, want 2", hub.Listeners("c1"))
	}

	if delivered := hub.Publish("c1", Event{Type: "status"}); delivered != 2 {
		t.Fatalf("delivered = %d, want 2", delivered)
	}
	for _, ch := range []<-chan Event{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("listener missed the event")
		}
	}
}

func TestHubDropsWhenListenerFull(t *testing.T) {
	hub := NewHub()
	_, ch := hub.Subscribe("c1")

	for i := 0; i < listenerBuffer; i++ {
		if delivered := hub.Publish("c1", Event{Type: "status"}); delivered != 1 {
			t.Fatalf("fill %d: delivered = %d", i, delivered)
		}
	}
	// buffer full: the publisher must not block, the event is dropped
	if delivered := hub.Publish("c1", Event{Type: "status"}); delivered != 0 {
		t.Fatalf("overflow publish delivered = %d, want 0", delivered)
	}
	if len(ch) != listenerBuffer {
		t.Fatalf("buffered = %d, want %d", len(ch), listenerBuffer)
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	id, ch := hub.Subscribe("c1")

	hub.Unsubscribe("c1", id)
	if hub.Listeners("c1") != 0 {
		t.Fatalf("listeners = %d after unsubscribe", hub.Listeners("c1"))
	}
	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// publishing to a target with no listeners is a no-op
	if delivered := hub.Publish("c1", Event{Type: "status"}); delivered != 0 {
		t.Fatalf("delivered = %d to empty target", delivered)
	}
	// double unsubscribe is harmless
	hub.Unsubscribe("c1", id)
}

func TestServicePushLocalFallback(t *testing.T) {
	hub := NewHub()
	svc := NewService(hub, nil)

	_, ch := hub.Subscribe("c1")
	svc.Push("c1", "status", "Order update", "on the way", map[string]any{"orderId": int64(1)})

	select {
	case e := <-ch:
		if e.Type != "status" || e.Title != "Order update" {
			t.Fatalf("unexpected event: %+v", e)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Fatalf("event missing id/timestamp: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("push never reached the local hub")
	}
}
