package events

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := newTestHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	hub.Publish("employment.created", map[string]int64{"id": 1})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Name != "employment.created" {
				t.Errorf("expected employment.created, got %q", e.Name)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := newTestHub()

	_, cancel := hub.Subscribe()
	if got := hub.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	cancel()
	if got := hub.Subscribers(); got != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", got)
	}

	// Cancelling twice must not panic on the closed channel.
	cancel()
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := newTestHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Never read: fill the buffer and keep publishing past it.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish("employment.updated", i)
	}

	if got := len(ch); got != subscriberBuffer {
		t.Errorf("expected a full buffer of %d events, got %d", subscriberBuffer, got)
	}
}
