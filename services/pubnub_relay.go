package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	pubnub "github.com/pubnub/go"

	"salonq/models"
	"salonq/monitoring"
	"salonq/utils"
)

// PubNubRelay is the transport gateway: a broadcaster that republishes
// queue updates to the per-salon PubNub channel connected clients listen
// on. Publishing is asynchronous and lossy by design; a full buffer or an
// open circuit just means clients refresh the list on their next fetch.
type PubNubRelay struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker

	events   chan models.QueueUpdateEvent
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPubNubRelay(pn *pubnub.PubNub, buffer int) *PubNubRelay {
	if buffer <= 0 {
		buffer = 64
	}
	relay := &PubNubRelay{
		pn:       pn,
		breaker:  utils.NewCircuitBreaker("pubnub", 5, 30*time.Second),
		events:   make(chan models.QueueUpdateEvent, buffer),
		stopChan: make(chan struct{}),
	}

	relay.wg.Add(1)
	go relay.worker()

	return relay
}

func salonChannel(salonID string) string {
	return fmt.Sprintf("salon-%s", salonID)
}

func (r *PubNubRelay) Publish(salonID string, event models.QueueUpdateEvent) {
	select {
	case r.events <- event:
	default:
		monitoring.TrackBroadcast("dropped")
	}
}

func (r *PubNubRelay) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.events:
			r.send(event)
		case <-r.stopChan:
			return
		}
	}
}

func (r *PubNubRelay) send(event models.QueueUpdateEvent) {
	err := r.breaker.Do(func() error {
		_, _, err := r.pn.Publish().
			Channel(salonChannel(event.SalonID)).
			Message(event).
			Execute()
		return err
	})
	if err != nil {
		monitoring.TrackBroadcast("dropped")
		log.Printf("pubnub publish for salon %s: %v", event.SalonID, err)
		return
	}
	monitoring.TrackBroadcast("delivered")
}

// Shutdown stops the worker; queued events that were not sent yet are
// discarded, matching the at-most-once delivery contract.
func (r *PubNubRelay) Shutdown() {
	close(r.stopChan)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("Timeout waiting for pubnub relay to stop")
	}
}
