package services

import (
	"sync"

	"salonq/models"
	"salonq/monitoring"
)

// Broadcaster fans a queue update out to whoever is listening for a salon.
// Delivery is best-effort and at-most-once; implementations must never
// block the lifecycle operation that triggered the publish.
type Broadcaster interface {
	Publish(salonID string, event models.QueueUpdateEvent)
}

// Subscription is one listener's feed of a single salon's queue updates.
// Events arrive on C; a listener that falls behind loses events and is
// expected to re-fetch the waiting list rather than rely on replay.
type Subscription struct {
	salonID string
	C       chan models.QueueUpdateEvent
}

// Hub is the in-process broadcast channel: per-salon listener sets with
// non-blocking fan-out. The WebSocket/PubNub gateways sit on top of it.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(salonID string) *Subscription {
	sub := &Subscription{
		salonID: salonID,
		C:       make(chan models.QueueUpdateEvent, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.C)
		return sub
	}

	listeners, ok := h.subs[salonID]
	if !ok {
		listeners = make(map[*Subscription]struct{})
		h.subs[salonID] = listeners
	}
	listeners[sub] = struct{}{}

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	listeners, ok := h.subs[sub.salonID]
	if !ok {
		return
	}
	if _, ok := listeners[sub]; !ok {
		return
	}

	delete(listeners, sub)
	if len(listeners) == 0 {
		delete(h.subs, sub.salonID)
	}
	close(sub.C)
}

// Publish delivers the event to every listener subscribed to the salon.
// A listener whose buffer is full simply misses the event.
func (h *Hub) Publish(salonID string, event models.QueueUpdateEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for sub := range h.subs[salonID] {
		select {
		case sub.C <- event:
			monitoring.TrackBroadcast("delivered")
		default:
			monitoring.TrackBroadcast("dropped")
		}
	}
}

// Close drops every subscription. Publish becomes a no-op afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for salonID, listeners := range h.subs {
		for sub := range listeners {
			close(sub.C)
		}
		delete(h.subs, salonID)
	}
}

// MultiBroadcast publishes the same event through several broadcasters,
// e.g. the in-process hub plus the PubNub relay.
func MultiBroadcast(broadcasters ...Broadcaster) Broadcaster {
	return multiBroadcaster(broadcasters)
}

type multiBroadcaster []Broadcaster

func (m multiBroadcaster) Publish(salonID string, event models.QueueUpdateEvent) {
	for _, b := range m {
		if b != nil {
			b.Publish(salonID, event)
		}
	}
}
