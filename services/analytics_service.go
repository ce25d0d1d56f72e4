package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salonq/models"
)

// AnalyticsService derives the owner dashboard from queue entry history.
// Nothing here is stored; terminal entries are the source of truth.
type AnalyticsService struct {
	store   QueueStore
	catalog Catalog
	now     func() time.Time
}

func NewAnalyticsService(store QueueStore, catalog Catalog) *AnalyticsService {
	return &AnalyticsService{
		store:   store,
		catalog: catalog,
		now:     time.Now,
	}
}

const popularServicesLimit = 5

func (s *AnalyticsService) SalonAnalytics(ctx context.Context, salonID string) (*models.Analytics, error) {
	salon, err := s.catalog.Salon(ctx, salonID)
	if err != nil {
		return nil, err
	}

	statuses := []models.QueueStatus{
		models.StatusWaiting,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusNoShow,
	}

	var all []*models.QueueEntry
	counts := map[models.QueueStatus]int{}
	for _, st := range statuses {
		entries, err := s.store.ListBySalonAndStatus(ctx, salonID, st)
		if err != nil {
			return nil, err
		}
		counts[st] = len(entries)
		all = append(all, entries...)
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	analytics := &models.Analytics{
		SalonID:        salonID,
		TotalCustomers: len(all),
		Rating:         salon.Rating,
		Revenue:        decimal.Zero,
	}

	var waitedMinutes float64
	var waitedCount int
	serviceBookings := map[string]int{}

	for _, entry := range all {
		if !entry.JoinedAt.Before(midnight) {
			analytics.CustomersToday++
		}
		if !entry.ServedAt.IsZero() {
			waitedMinutes += entry.ServedAt.Sub(entry.JoinedAt).Minutes()
			waitedCount++
		}
		if entry.Status == models.StatusCompleted {
			analytics.Revenue = analytics.Revenue.Add(entry.TotalPrice)
			for _, serviceID := range entry.ServiceIDs {
				serviceBookings[serviceID]++
			}
		}
	}

	if waitedCount > 0 {
		analytics.AvgWaitMinutes = waitedMinutes / float64(waitedCount)
	}

	served := counts[models.StatusCompleted] + counts[models.StatusNoShow]
	if served > 0 {
		analytics.ShowRate = float64(counts[models.StatusCompleted]) / float64(served) * 100
	}

	analytics.PopularServices = s.popularServices(ctx, salonID, serviceBookings)
	return analytics, nil
}

func (s *AnalyticsService) popularServices(ctx context.Context, salonID string, bookings map[string]int) []models.ServiceBookings {
	if len(bookings) == 0 {
		return nil
	}

	names := map[string]string{}
	if services, err := s.catalog.SalonServices(ctx, salonID, nil); err == nil {
		for _, svc := range services {
			names[svc.ID] = svc.Name
		}
	}

	popular := make([]models.ServiceBookings, 0, len(bookings))
	for serviceID, count := range bookings {
		popular = append(popular, models.ServiceBookings{
			ServiceID: serviceID,
			Name:      names[serviceID],
			Bookings:  count,
		})
	}

	sort.Slice(popular, func(i, j int) bool {
		if popular[i].Bookings == popular[j].Bookings {
			return popular[i].ServiceID < popular[j].ServiceID
		}
		return popular[i].Bookings > popular[j].Bookings
	})

	if len(popular) > popularServicesLimit {
		popular = popular[:popularServicesLimit]
	}
	return popular
}
