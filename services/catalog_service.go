package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"salonq/internal/status"
	"salonq/models"
)

// Catalog supplies the salon/service/offer lookups the lifecycle manager
// validates against. Identity of the salon owner comes from here too.
type Catalog interface {
	Salon(ctx context.Context, salonID string) (*models.Salon, error)
	// SalonServices returns the salon's services; with a non-nil ids filter
	// only the matching ones come back, in no particular order.
	SalonServices(ctx context.Context, salonID string, ids []string) ([]*models.Service, error)
	SalonOffers(ctx context.Context, salonID string, ids []string) ([]*models.Offer, error)
}

// LoyaltyLedger credits customers for completed visits.
type LoyaltyLedger interface {
	AwardPoints(ctx context.Context, userID string, points int64) error
}

// RecordCatalog reads the salons/services/offers collections.
type RecordCatalog struct {
	app core.App
}

func NewRecordCatalog(app core.App) *RecordCatalog {
	return &RecordCatalog{app: app}
}

func (c *RecordCatalog) Salon(ctx context.Context, salonID string) (*models.Salon, error) {
	record, err := c.app.FindRecordById("salons", salonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: salon %s", status.ErrNotFound, salonID)
		}
		return nil, storageErr(err)
	}

	return &models.Salon{
		ID:            record.Id,
		Name:          record.GetString("name"),
		OwnerID:       record.GetString("owner"),
		Location:      record.GetString("location"),
		Type:          record.GetString("type"),
		ContactNumber: record.GetString("contact_number"),
		OpeningHours:  record.GetString("opening_hours"),
		Rating:        record.GetFloat("rating"),
	}, nil
}

func (c *RecordCatalog) SalonServices(ctx context.Context, salonID string, ids []string) ([]*models.Service, error) {
	filter := dbx.HashExp{"salon": salonID}
	if ids != nil {
		filter["id"] = idList(ids)
	}

	var records []*core.Record
	err := c.app.RecordQuery("services").AndWhere(filter).All(&records)
	if err != nil {
		return nil, storageErr(err)
	}

	services := make([]*models.Service, 0, len(records))
	for _, record := range records {
		services = append(services, &models.Service{
			ID:       record.Id,
			SalonID:  record.GetString("salon"),
			Name:     record.GetString("name"),
			Price:    decimal.NewFromFloat(record.GetFloat("price")),
			Duration: time.Duration(record.GetInt("duration")) * time.Minute,
		})
	}
	return services, nil
}

func (c *RecordCatalog) SalonOffers(ctx context.Context, salonID string, ids []string) ([]*models.Offer, error) {
	filter := dbx.HashExp{"salon": salonID}
	if ids != nil {
		filter["id"] = idList(ids)
	}

	var records []*core.Record
	err := c.app.RecordQuery("offers").AndWhere(filter).All(&records)
	if err != nil {
		return nil, storageErr(err)
	}

	offers := make([]*models.Offer, 0, len(records))
	for _, record := range records {
		offers = append(offers, &models.Offer{
			ID:         record.Id,
			SalonID:    record.GetString("salon"),
			Title:      record.GetString("title"),
			Discount:   decimal.NewFromFloat(record.GetFloat("discount")),
			ValidFrom:  record.GetDateTime("valid_from").Time(),
			ValidUntil: record.GetDateTime("valid_until").Time(),
			IsActive:   record.GetBool("is_active"),
		})
	}
	return offers, nil
}

func idList(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// RecordLoyaltyLedger keeps loyalty points on the users auth collection.
type RecordLoyaltyLedger struct {
	app core.App
}

func NewRecordLoyaltyLedger(app core.App) *RecordLoyaltyLedger {
	return &RecordLoyaltyLedger{app: app}
}

func (l *RecordLoyaltyLedger) AwardPoints(ctx context.Context, userID string, points int64) error {
	if points <= 0 {
		return nil
	}

	record, err := l.app.FindRecordById("users", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: user %s", status.ErrNotFound, userID)
		}
		return storageErr(err)
	}

	record.Set("loyalty_points", record.GetInt("loyalty_points")+int(points))
	if err := l.app.Save(record); err != nil {
		return storageErr(err)
	}
	return nil
}
