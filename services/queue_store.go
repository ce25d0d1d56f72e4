package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"salonq/internal/status"
	"salonq/models"
)

// EntryMutation is one element of an all-or-nothing batch update.
type EntryMutation struct {
	ID     string
	Mutate func(*models.QueueEntry)
}

// QueueStore is the durable table of queue entries. Mutations are atomic
// per entry; AppendAndShift and UpdateBatch apply an insert or multi-entry
// position shift as one logical unit so readers never observe a
// partially-shifted waiting set.
type QueueStore interface {
	AppendAndShift(ctx context.Context, entry *models.QueueEntry, muts []EntryMutation) error
	Get(ctx context.Context, id string) (*models.QueueEntry, error)
	ListBySalonAndStatus(ctx context.Context, salonID string, st models.QueueStatus) ([]*models.QueueEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*models.QueueEntry, error)
	Update(ctx context.Context, id string, mutate func(*models.QueueEntry)) (*models.QueueEntry, error)
	UpdateBatch(ctx context.Context, muts []EntryMutation) error
}

const queueCollection = "queue_entries"

// RecordQueueStore keeps queue entries in the queue_entries collection.
type RecordQueueStore struct {
	app core.App
}

func NewRecordQueueStore(app core.App) *RecordQueueStore {
	return &RecordQueueStore{app: app}
}

// AppendAndShift inserts the entry and applies the accompanying position
// repairs in the same transaction: either the whole new ordering becomes
// visible or the entry was never added.
func (s *RecordQueueStore) AppendAndShift(ctx context.Context, entry *models.QueueEntry, muts []EntryMutation) error {
	collection, err := s.app.FindCollectionByNameOrId(queueCollection)
	if err != nil {
		return storageErr(err)
	}

	record := core.NewRecord(collection)
	applyEntry(record, entry)
	record.Set("joined_at", entry.JoinedAt)
	record.Set("salon", entry.SalonID)
	record.Set("user", entry.UserID)
	record.Set("services", entry.ServiceIDs)
	record.Set("applied_offers", entry.AppliedOfferIDs)
	record.Set("total_price", entry.TotalPrice.InexactFloat64())

	err = s.app.RunInTransaction(func(txApp core.App) error {
		if err := txApp.Save(record); err != nil {
			return err
		}
		return applyMutations(txApp, muts)
	})
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return err
		}
		return storageErr(err)
	}

	entry.ID = record.Id
	return nil
}

func (s *RecordQueueStore) Get(ctx context.Context, id string) (*models.QueueEntry, error) {
	record, err := s.app.FindRecordById(queueCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s", status.ErrNotFound, id)
		}
		return nil, storageErr(err)
	}
	return entryFromRecord(record), nil
}

func (s *RecordQueueStore) ListBySalonAndStatus(ctx context.Context, salonID string, st models.QueueStatus) ([]*models.QueueEntry, error) {
	var records []*core.Record
	err := s.app.RecordQuery(queueCollection).
		AndWhere(dbx.HashExp{"salon": salonID, "status": string(st)}).
		OrderBy("joined_at ASC", "id ASC").
		All(&records)
	if err != nil {
		return nil, storageErr(err)
	}

	entries := make([]*models.QueueEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, entryFromRecord(record))
	}
	return entries, nil
}

func (s *RecordQueueStore) ListByUser(ctx context.Context, userID string) ([]*models.QueueEntry, error) {
	var records []*core.Record
	err := s.app.RecordQuery(queueCollection).
		AndWhere(dbx.HashExp{"user": userID}).
		OrderBy("joined_at DESC").
		All(&records)
	if err != nil {
		return nil, storageErr(err)
	}

	entries := make([]*models.QueueEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, entryFromRecord(record))
	}
	return entries, nil
}

func (s *RecordQueueStore) Update(ctx context.Context, id string, mutate func(*models.QueueEntry)) (*models.QueueEntry, error) {
	record, err := s.app.FindRecordById(queueCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s", status.ErrNotFound, id)
		}
		return nil, storageErr(err)
	}

	entry := entryFromRecord(record)
	mutate(entry)
	applyEntry(record, entry)

	if err := s.app.Save(record); err != nil {
		return nil, storageErr(err)
	}
	return entry, nil
}

// UpdateBatch runs every mutation inside a single transaction: either the
// whole shifted waiting set becomes visible or none of it does.
func (s *RecordQueueStore) UpdateBatch(ctx context.Context, muts []EntryMutation) error {
	if len(muts) == 0 {
		return nil
	}

	err := s.app.RunInTransaction(func(txApp core.App) error {
		return applyMutations(txApp, muts)
	})
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return err
		}
		return storageErr(err)
	}
	return nil
}

func applyMutations(txApp core.App, muts []EntryMutation) error {
	for _, mut := range muts {
		record, err := txApp.FindRecordById(queueCollection, mut.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: entry %s", status.ErrNotFound, mut.ID)
			}
			return err
		}

		entry := entryFromRecord(record)
		mut.Mutate(entry)
		applyEntry(record, entry)

		if err := txApp.Save(record); err != nil {
			return err
		}
	}
	return nil
}

// WaitingSalons lists the ids of salons that currently have a non-empty
// waiting set. Used to warm the snapshot cache on boot.
func (s *RecordQueueStore) WaitingSalons(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.app.DB().
		Select("salon").
		Distinct(true).
		From(queueCollection).
		Where(dbx.HashExp{"status": string(models.StatusWaiting)}).
		Column(&ids)
	if err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

func entryFromRecord(record *core.Record) *models.QueueEntry {
	return &models.QueueEntry{
		ID:              record.Id,
		SalonID:         record.GetString("salon"),
		UserID:          record.GetString("user"),
		ServiceIDs:      record.GetStringSlice("services"),
		TotalPrice:      decimal.NewFromFloat(record.GetFloat("total_price")),
		AppliedOfferIDs: record.GetStringSlice("applied_offers"),
		Status:          models.QueueStatus(record.GetString("status")),
		Position:        record.GetInt("position"),
		JoinedAt:        record.GetDateTime("joined_at").Time(),
		ServedAt:        record.GetDateTime("served_at").Time(),
		ClosedAt:        record.GetDateTime("closed_at").Time(),
	}
}

// applyEntry writes back the fields the lifecycle manager may change.
// Identity fields (salon, user, services, price) are immutable after join.
func applyEntry(record *core.Record, entry *models.QueueEntry) {
	record.Set("status", string(entry.Status))
	record.Set("position", entry.Position)
	if !entry.ServedAt.IsZero() {
		record.Set("served_at", entry.ServedAt)
	}
	if !entry.ClosedAt.IsZero() {
		record.Set("closed_at", entry.ClosedAt)
	}
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", status.ErrStorageUnavailable, err)
}
