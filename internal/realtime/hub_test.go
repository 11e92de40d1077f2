package realtime

import (
	"testing"
	"time"

	"streakMateAPI/internal/types/identity"
)

func recv(t *testing.T, sub *Subscription) (Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}, false
	}
}

func TestPublishFansOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Publish(Event{Partition: identity.PartitionGuest, UserID: "u1"})

	for _, sub := range []*Subscription{a, b} {
		ev, ok := recv(t, sub)
		if !ok || ev.UserID != "u1" {
			t.Fatalf("subscriber got %+v (ok=%v), want u1", ev, ok)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Unsubscribe()

	// Channel is closed; a publish after unsubscribe must not panic or
	// deliver.
	hub.Publish(Event{UserID: "u2"})
	if _, ok := <-sub.C; ok {
		t.Fatal("received event after unsubscribe")
	}
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestSlowConsumerDoesNotBlockPublisher(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Unsubscribe()

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{UserID: "flood"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow consumer")
	}
}

func TestCloseTerminatesSubscriptions(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Close()

	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel after hub close")
	}
	if late := hub.Subscribe(); late.C == nil {
		t.Fatal("subscribe after close should still return a terminated subscription")
	}
	sub.Unsubscribe()
}
