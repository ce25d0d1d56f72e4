package models

import "github.com/shopspring/decimal"

type ServiceBookings struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	Bookings  int    `json:"bookings"`
}

// Analytics is the owner dashboard summary, derived entirely from a
// salon's queue entry history.
type Analytics struct {
	SalonID         string            `json:"salon_id"`
	CustomersToday  int               `json:"customers_today"`
	TotalCustomers  int               `json:"total_customers"`
	AvgWaitMinutes  float64           `json:"avg_wait_time"`
	Rating          float64           `json:"rating"`
	ShowRate        float64           `json:"show_rate"` // completed / (completed + no_show)
	Revenue         decimal.Decimal   `json:"revenue"`
	PopularServices []ServiceBookings `json:"popular_services"`
}
