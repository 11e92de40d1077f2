// Package realtime fans streak-change notifications out to in-process
// subscribers (the leaderboard WebSocket handlers). Events originate either
// from this instance's own writes or from the Postgres LISTEN bridge, so
// every instance sees every other instance's writes.
package realtime

import (
	"sync"

	"streakMateAPI/internal/types/identity"
)

// Event describes one record change in a partition. Consumers re-read the
// store rather than trusting the payload, so a dropped event only delays a
// refresh.
type Event struct {
	Partition identity.Partition `json:"partition"`
	UserID    string             `json:"user_id"`
}

// Subscription is a live handle on the hub. Callers must Unsubscribe when the
// owning session ends; an orphaned subscription would keep feeding a
// torn-down view.
type Subscription struct {
	C    chan Event
	hub  *Hub
	id   int
	once sync.Once
}

// Unsubscribe releases the subscription and closes C. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

// Subscribe registers a listener for all partitions. The channel is buffered;
// a consumer that falls behind misses events instead of blocking publishers.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{C: make(chan Event, 16), hub: h, id: h.nextID}
	h.nextID++
	if h.closed {
		close(sub.C)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers an event to every live subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		select {
		case sub.C <- ev:
		default:
		}
	}
}

// Close terminates every subscription. Used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.C)
		delete(h.subs, id)
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		close(sub.C)
		delete(h.subs, id)
	}
}
