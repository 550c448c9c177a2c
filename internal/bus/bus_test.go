package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe("backend.", 10)
	defer sub.Close()

	b.Publish(Event{Kind: "backend.message", Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-sub.C():
		if evt.Kind != "backend.message" {
			t.Errorf("got kind %q, want backend.message", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	sub := b.Subscribe("download.", 10)
	defer sub.Close()

	b.Publish(Event{Kind: "backend.message"})
	b.Publish(Event{Kind: "download.completed"})

	select {
	case evt := <-sub.C():
		if evt.Kind != "download.completed" {
			t.Errorf("got kind %q, want download.completed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the backend event was not delivered.
	select {
	case evt := <-sub.C():
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestSubscriptionClose(t *testing.T) {
	b := New()
	sub := b.Subscribe("backend.", 10)
	sub.Close()

	b.Publish(Event{Kind: "backend.message"})

	select {
	case evt := <-sub.C():
		t.Errorf("received event after close: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestSubscriptionCloseTwice(t *testing.T) {
	b := New()
	sub := b.Subscribe("backend.", 10)
	sub.Close()
	sub.Close() // must not panic or unregister someone else
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	sub := b.Subscribe("test.", 1)
	defer sub.Close()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-sub.C()
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
