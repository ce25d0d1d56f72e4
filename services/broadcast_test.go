package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonq/models"
)

func testEvent(salonID string, waitingLen int) models.QueueUpdateEvent {
	waiting := make([]models.WaitingPosition, waitingLen)
	for i := range waiting {
		waiting[i] = models.WaitingPosition{Position: i}
	}
	return models.QueueUpdateEvent{
		Type:      "queue_update",
		SalonID:   salonID,
		Waiting:   waiting,
		Timestamp: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestHub_DeliversToSalonSubscribers(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	first := hub.Subscribe("salon001")
	second := hub.Subscribe("salon001")
	other := hub.Subscribe("salon002")

	hub.Publish("salon001", testEvent("salon001", 2))

	for _, sub := range []*Subscription{first, second} {
		select {
		case event := <-sub.C:
			assert.Equal(t, "salon001", event.SalonID)
			assert.Len(t, event.Waiting, 2)
		default:
			t.Fatal("subscriber missed the event")
		}
	}
	assert.Empty(t, other.C)
}

func TestHub_DropsWhenSubscriberFallsBehind(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	sub := hub.Subscribe("salon001")

	// buffer holds one event; the rest are dropped, publish never blocks
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish("salon001", testEvent("salon001", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	event := <-sub.C
	assert.Empty(t, event.Waiting, "only the first event fits the buffer")
	assert.Empty(t, sub.C)
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub := hub.Subscribe("salon001")
	hub.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)

	// double unsubscribe must not panic on the already-closed channel
	hub.Unsubscribe(sub)

	hub.Publish("salon001", testEvent("salon001", 1))
}

func TestHub_CloseDropsEverySubscription(t *testing.T) {
	hub := NewHub(4)

	first := hub.Subscribe("salon001")
	second := hub.Subscribe("salon002")

	hub.Close()
	hub.Close()

	for _, sub := range []*Subscription{first, second} {
		_, ok := <-sub.C
		assert.False(t, ok)
	}

	// post-close subscriptions come back already closed
	late := hub.Subscribe("salon001")
	_, ok := <-late.C
	assert.False(t, ok)

	hub.Publish("salon001", testEvent("salon001", 1))
}

func TestMultiBroadcast_FansOut(t *testing.T) {
	first := &recorder{}
	second := &recorder{}

	broadcaster := MultiBroadcast(first, nil, second)
	broadcaster.Publish("salon001", testEvent("salon001", 3))

	require.Equal(t, 1, first.count())
	require.Equal(t, 1, second.count())
	assert.Len(t, first.last().Waiting, 3)
}
