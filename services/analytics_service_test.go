package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonq/internal/status"
	"salonq/models"
)

func seedEntry(t *testing.T, store *memStore, entry *models.QueueEntry) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), entry))
}

func TestSalonAnalytics_Summary(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	store := newMemStore()
	svc := NewAnalyticsService(store, testCatalog(now))
	svc.now = func() time.Time { return now }

	// completed today, 20 minute wait
	seedEntry(t, store, &models.QueueEntry{
		SalonID: testSalon, UserID: "user1",
		ServiceIDs: []string{svcHaircut},
		TotalPrice: decimal.NewFromInt(45),
		Status:     models.StatusCompleted,
		Position:   models.PositionNone,
		JoinedAt:   now.Add(-2 * time.Hour),
		ServedAt:   now.Add(-2*time.Hour + 20*time.Minute),
		ClosedAt:   now.Add(-time.Hour),
	})
	// completed yesterday, 40 minute wait
	seedEntry(t, store, &models.QueueEntry{
		SalonID: testSalon, UserID: "user2",
		ServiceIDs: []string{svcHaircut, svcColor},
		TotalPrice: decimal.NewFromInt(95),
		Status:     models.StatusCompleted,
		Position:   models.PositionNone,
		JoinedAt:   yesterday,
		ServedAt:   yesterday.Add(40 * time.Minute),
		ClosedAt:   yesterday.Add(90 * time.Minute),
	})
	// no-show today, called after 10 minutes
	seedEntry(t, store, &models.QueueEntry{
		SalonID: testSalon, UserID: "user3",
		ServiceIDs: []string{svcColor},
		TotalPrice: decimal.NewFromInt(50),
		Status:     models.StatusNoShow,
		Position:   models.PositionNone,
		JoinedAt:   now.Add(-time.Hour),
		ServedAt:   now.Add(-50 * time.Minute),
		ClosedAt:   now.Add(-30 * time.Minute),
	})
	// cancelled before being called
	seedEntry(t, store, &models.QueueEntry{
		SalonID: testSalon, UserID: "user4",
		ServiceIDs: []string{svcHaircut},
		TotalPrice: decimal.NewFromInt(45),
		Status:     models.StatusCancelled,
		Position:   models.PositionNone,
		JoinedAt:   now.Add(-30 * time.Minute),
		ClosedAt:   now.Add(-20 * time.Minute),
	})
	// still waiting
	seedEntry(t, store, &models.QueueEntry{
		SalonID: testSalon, UserID: "user5",
		ServiceIDs: []string{svcHaircut},
		TotalPrice: decimal.NewFromInt(45),
		Status:     models.StatusWaiting,
		JoinedAt:   now.Add(-15 * time.Minute),
	})
	// another salon's history stays out of the numbers
	seedEntry(t, store, &models.QueueEntry{
		SalonID: otherSalon, UserID: "user6",
		ServiceIDs: []string{svcElsewhere},
		TotalPrice: decimal.NewFromInt(20),
		Status:     models.StatusCompleted,
		Position:   models.PositionNone,
		JoinedAt:   now.Add(-time.Hour),
		ServedAt:   now.Add(-55 * time.Minute),
		ClosedAt:   now.Add(-40 * time.Minute),
	})

	analytics, err := svc.SalonAnalytics(context.Background(), testSalon)
	require.NoError(t, err)

	assert.Equal(t, testSalon, analytics.SalonID)
	assert.Equal(t, 5, analytics.TotalCustomers)
	assert.Equal(t, 4, analytics.CustomersToday)
	assert.InDelta(t, (20.0+40.0+10.0)/3.0, analytics.AvgWaitMinutes, 0.01)
	assert.InDelta(t, 200.0/3.0, analytics.ShowRate, 0.01) // 2 of 3 served showed up
	assert.True(t, analytics.Revenue.Equal(decimal.NewFromInt(140)),
		"got %s", analytics.Revenue)

	require.Len(t, analytics.PopularServices, 2)
	assert.Equal(t, svcHaircut, analytics.PopularServices[0].ServiceID)
	assert.Equal(t, "Haircut", analytics.PopularServices[0].Name)
	assert.Equal(t, 2, analytics.PopularServices[0].Bookings)
	assert.Equal(t, svcColor, analytics.PopularServices[1].ServiceID)
	assert.Equal(t, 1, analytics.PopularServices[1].Bookings)
}

func TestSalonAnalytics_EmptyHistory(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	svc := NewAnalyticsService(newMemStore(), testCatalog(now))
	svc.now = func() time.Time { return now }

	analytics, err := svc.SalonAnalytics(context.Background(), testSalon)
	require.NoError(t, err)

	assert.Zero(t, analytics.TotalCustomers)
	assert.Zero(t, analytics.CustomersToday)
	assert.Zero(t, analytics.AvgWaitMinutes)
	assert.Zero(t, analytics.ShowRate)
	assert.True(t, analytics.Revenue.IsZero())
	assert.Empty(t, analytics.PopularServices)
}

func TestSalonAnalytics_UnknownSalon(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	svc := NewAnalyticsService(newMemStore(), testCatalog(now))

	_, err := svc.SalonAnalytics(context.Background(), "missing")
	assert.ErrorIs(t, err, status.ErrNotFound)
}
