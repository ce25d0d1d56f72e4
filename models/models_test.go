package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQueueStatus_Valid(t *testing.T) {
	for _, st := range []QueueStatus{StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.True(t, st.Valid(), string(st))
	}
	assert.False(t, QueueStatus("pending").Valid())
	assert.False(t, QueueStatus("").Valid())
}

func TestQueueStatus_Terminal(t *testing.T) {
	assert.False(t, StatusWaiting.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusNoShow.Terminal())
}

func TestOffer_ValidAt(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	offer := Offer{
		ID:         "offer1",
		Discount:   decimal.NewFromInt(20),
		IsActive:   true,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
	}

	assert.True(t, offer.ValidAt(now))
	assert.True(t, offer.ValidAt(now.Add(-time.Hour)))
	assert.True(t, offer.ValidAt(now.Add(time.Hour)))
	assert.False(t, offer.ValidAt(now.Add(-2*time.Hour)))
	assert.False(t, offer.ValidAt(now.Add(2*time.Hour)))

	inactive := offer
	inactive.IsActive = false
	assert.False(t, inactive.ValidAt(now))

	// open-ended windows stay valid
	evergreen := Offer{IsActive: true}
	assert.True(t, evergreen.ValidAt(now))
}
