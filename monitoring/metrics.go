package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	waitingLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salonq_waiting_total",
			Help: "Current waiting set size per salon",
		},
		[]string{"salon_id"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonq_queue_operations_total",
			Help: "Total lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	broadcastEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salonq_broadcast_events_total",
			Help: "Queue update events fanned out to listeners",
		},
		[]string{"status"},
	)

	estimatedWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salonq_estimated_wait_minutes",
			Help:    "Estimated wait minutes published to customers",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	loyaltyPoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salonq_loyalty_points_awarded_total",
			Help: "Loyalty points awarded on completed visits",
		},
	)
)

// TrackQueueOperation counts one lifecycle operation and its outcome.
func TrackQueueOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

// SetWaitingLength records the waiting set size after a recompute.
func SetWaitingLength(salonID string, n int) {
	waitingLength.WithLabelValues(salonID).Set(float64(n))
}

// TrackBroadcast counts a fan-out attempt per listener: delivered or dropped.
func TrackBroadcast(status string) {
	broadcastEvents.WithLabelValues(status).Inc()
}

// ObserveEstimatedWait records a published wait estimate.
func ObserveEstimatedWait(minutes int) {
	estimatedWait.Observe(float64(minutes))
}

// TrackLoyaltyAward counts points handed out on completion.
func TrackLoyaltyAward(points int64) {
	loyaltyPoints.Add(float64(points))
}
