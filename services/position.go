package services

import (
	"sort"
	"time"

	"salonq/models"
)

// RecomputePositions assigns each waiting entry its 0-based rank in
// joinedAt-ascending order (ties broken by id so the ordering is total).
// Pure function: callers persist the result themselves.
func RecomputePositions(waiting []*models.QueueEntry) map[string]int {
	ordered := make([]*models.QueueEntry, len(waiting))
	copy(ordered, waiting)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].JoinedAt.Equal(ordered[j].JoinedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})

	positions := make(map[string]int, len(ordered))
	for i, entry := range ordered {
		positions[entry.ID] = i
	}
	return positions
}

// EstimateWait returns the estimated wait in whole minutes for an entry at
// the given position: position x mean duration of its services. Services
// without a configured duration fall back to the salon default. Never
// negative; position 0 always waits 0.
func EstimateWait(position int, serviceDurations []time.Duration, defaultDuration time.Duration) int {
	if position <= 0 {
		return 0
	}

	mean := meanDuration(serviceDurations, defaultDuration)
	minutes := int((mean * time.Duration(position)).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

func meanDuration(durations []time.Duration, defaultDuration time.Duration) time.Duration {
	if len(durations) == 0 {
		return defaultDuration
	}

	var total time.Duration
	for _, d := range durations {
		if d <= 0 {
			d = defaultDuration
		}
		total += d
	}
	return total / time.Duration(len(durations))
}
