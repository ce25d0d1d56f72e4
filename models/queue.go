package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type QueueStatus string

const (
	StatusWaiting    QueueStatus = "waiting"
	StatusInProgress QueueStatus = "in_progress"
	StatusCompleted  QueueStatus = "completed"
	StatusCancelled  QueueStatus = "cancelled"
	StatusNoShow     QueueStatus = "no_show"
)

// PositionNone marks an entry that is not part of any waiting set.
const PositionNone = -1

func (s QueueStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal statuses are absorbing: no further transition is permitted.
func (s QueueStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// QueueEntry is a customer's claim on a position in a salon's queue.
// Entries are never deleted; cancellations and no-shows are terminal
// statuses so history stays available for analytics.
type QueueEntry struct {
	ID              string          `json:"id"`
	SalonID         string          `json:"salon_id"`
	UserID          string          `json:"user_id"`
	ServiceIDs      []string        `json:"service_ids"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	AppliedOfferIDs []string        `json:"applied_offer_ids"`
	Status          QueueStatus     `json:"status"`
	Position        int             `json:"position"`
	JoinedAt        time.Time       `json:"joined_at"`
	ServedAt        time.Time       `json:"served_at,omitzero"`
	ClosedAt        time.Time       `json:"closed_at,omitzero"`
}

// WaitingPosition is one row of a salon's published waiting list.
type WaitingPosition struct {
	EntryID              string `json:"entry_id"`
	UserID               string `json:"user_id"`
	Position             int    `json:"position"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
}

// StatusChange describes the transition that triggered a queue update.
type StatusChange struct {
	EntryID string      `json:"entry_id"`
	UserID  string      `json:"user_id"`
	From    QueueStatus `json:"from,omitempty"`
	To      QueueStatus `json:"to"`
}

// QueueUpdateEvent carries the full recomputed waiting list for a salon.
// It is published once per lifecycle transition, never per shifted entry,
// so listeners never observe a partial ranking.
type QueueUpdateEvent struct {
	Type      string            `json:"type"` // always "queue_update"
	SalonID   string            `json:"salon_id"`
	Change    StatusChange      `json:"change"`
	Waiting   []WaitingPosition `json:"waiting"`
	Timestamp time.Time         `json:"timestamp"`
}
