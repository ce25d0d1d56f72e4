package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Salon struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	OwnerID       string  `json:"owner_id"`
	Location      string  `json:"location"`
	Type          string  `json:"type"` // men, women, unisex
	ContactNumber string  `json:"contact_number"`
	OpeningHours  string  `json:"opening_hours"`
	Rating        float64 `json:"rating"`
}

type Service struct {
	ID       string          `json:"id"`
	SalonID  string          `json:"salon_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Duration time.Duration   `json:"duration"` // zero when the salon never set one
}

// Offer is a percentage discount with a validity window. An offer can be
// folded into a queue entry's total price only when the window contains
// the join time and the offer is active.
type Offer struct {
	ID         string          `json:"id"`
	SalonID    string          `json:"salon_id"`
	Title      string          `json:"title"`
	Discount   decimal.Decimal `json:"discount"` // percent, 0-100
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil time.Time       `json:"valid_until"`
	IsActive   bool            `json:"is_active"`
}

// ValidAt reports whether the offer may be applied at the given time.
func (o Offer) ValidAt(at time.Time) bool {
	if !o.IsActive {
		return false
	}
	if !o.ValidFrom.IsZero() && at.Before(o.ValidFrom) {
		return false
	}
	return o.ValidUntil.IsZero() || !at.After(o.ValidUntil)
}
