package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salonq/internal/status"
	"salonq/models"
	"salonq/monitoring"
)

// loyaltyDivisor: one point per full 10 currency units spent.
var loyaltyDivisor = decimal.NewFromInt(10)

// QueueService is the lifecycle manager for queue entries. It owns the
// state machine (waiting -> in_progress -> completed / cancelled / no_show),
// keeps every salon's waiting set contiguous, and publishes exactly one
// broadcast per transition, after the store write committed.
type QueueService struct {
	store           QueueStore
	catalog         Catalog
	loyalty         LoyaltyLedger
	broadcaster     Broadcaster
	cache           *SnapshotCache
	defaultDuration time.Duration

	now func() time.Time

	// Per-salon mutual exclusion: every operation that reads the waiting
	// set and writes positions back must hold the salon's lock, otherwise
	// two concurrent joins would compute the same tail position.
	salonLocks sync.Map
}

func NewQueueService(store QueueStore, catalog Catalog, loyalty LoyaltyLedger, broadcaster Broadcaster, cache *SnapshotCache, defaultDuration time.Duration) *QueueService {
	if defaultDuration <= 0 {
		defaultDuration = 30 * time.Minute
	}
	return &QueueService{
		store:           store,
		catalog:         catalog,
		loyalty:         loyalty,
		broadcaster:     broadcaster,
		cache:           cache,
		defaultDuration: defaultDuration,
		now:             time.Now,
	}
}

func (s *QueueService) lockSalon(salonID string) func() {
	v, _ := s.salonLocks.LoadOrStore(salonID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

type JoinRequest struct {
	SalonID    string   `json:"salon_id"`
	UserID     string   `json:"-"`
	ServiceIDs []string `json:"service_ids"`
	OfferIDs   []string `json:"offer_ids"`
}

// Join validates the selection, prices it, appends the entry at the tail
// of the salon's waiting set and broadcasts the new ordering.
func (s *QueueService) Join(ctx context.Context, req JoinRequest) (*models.QueueEntry, error) {
	if _, err := s.catalog.Salon(ctx, req.SalonID); err != nil {
		return nil, s.fail("join", err)
	}

	serviceIDs := dedupe(req.ServiceIDs)
	if len(serviceIDs) == 0 {
		return nil, s.fail("join", fmt.Errorf("%w: no services selected", status.ErrInvalidServiceSelection))
	}

	services, err := s.catalog.SalonServices(ctx, req.SalonID, serviceIDs)
	if err != nil {
		return nil, s.fail("join", err)
	}
	if len(services) != len(serviceIDs) {
		return nil, s.fail("join", fmt.Errorf("%w: service not in salon catalog", status.ErrInvalidServiceSelection))
	}

	now := s.now()
	total := decimal.Zero
	for _, svc := range services {
		total = total.Add(svc.Price)
	}

	offerIDs := dedupe(req.OfferIDs)
	if len(offerIDs) > 0 {
		offers, err := s.catalog.SalonOffers(ctx, req.SalonID, offerIDs)
		if err != nil {
			return nil, s.fail("join", err)
		}
		if len(offers) != len(offerIDs) {
			return nil, s.fail("join", fmt.Errorf("%w: offer not in salon catalog", status.ErrInvalidServiceSelection))
		}
		for _, offer := range offers {
			if !offer.ValidAt(now) {
				return nil, s.fail("join", fmt.Errorf("%w: offer %s expired", status.ErrInvalidServiceSelection, offer.ID))
			}
			total = applyDiscount(total, offer.Discount)
		}
	}
	if total.IsNegative() {
		total = decimal.Zero
	}

	unlock := s.lockSalon(req.SalonID)
	defer unlock()

	waiting, err := s.store.ListBySalonAndStatus(ctx, req.SalonID, models.StatusWaiting)
	if err != nil {
		return nil, s.fail("join", err)
	}

	entry := &models.QueueEntry{
		SalonID:         req.SalonID,
		UserID:          req.UserID,
		ServiceIDs:      serviceIDs,
		TotalPrice:      total,
		AppliedOfferIDs: offerIDs,
		Status:          models.StatusWaiting,
		Position:        len(waiting),
		JoinedAt:        now,
	}

	// The insert and any position repair of the existing waiting set land
	// in one transaction, so a storage fault cannot commit a half-joined
	// ordering.
	if err := s.store.AppendAndShift(ctx, entry, shiftMutations(waiting)); err != nil {
		return nil, s.fail("join", err)
	}
	waiting = append(waiting, entry)

	s.publish(ctx, req.SalonID, models.StatusChange{
		EntryID: entry.ID,
		UserID:  entry.UserID,
		To:      models.StatusWaiting,
	}, waiting)

	monitoring.TrackQueueOperation("join", "success")
	return entry, nil
}

// Advance moves the entry from waiting to in_progress (the owner calls the
// customer to the chair) and compacts the remaining waiting set.
func (s *QueueService) Advance(ctx context.Context, actorID, entryID string) (*models.QueueEntry, error) {
	return s.leaveWaiting(ctx, "advance", actorID, entryID, models.StatusInProgress)
}

// Leave cancels the caller's own waiting entry.
func (s *QueueService) Leave(ctx context.Context, actorID, entryID string) (*models.QueueEntry, error) {
	return s.leaveWaiting(ctx, "leave", actorID, entryID, models.StatusCancelled)
}

// leaveWaiting is the shared waiting-set exit: the transitioned entry and
// every shifted position land in one store batch, then one broadcast.
func (s *QueueService) leaveWaiting(ctx context.Context, op, actorID, entryID string, to models.QueueStatus) (*models.QueueEntry, error) {
	entry, err := s.store.Get(ctx, entryID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	if err := s.authorize(ctx, op, actorID, entry); err != nil {
		return nil, s.fail(op, err)
	}

	unlock := s.lockSalon(entry.SalonID)
	defer unlock()

	// Re-read under the lock: the entry may have transitioned meanwhile.
	entry, err = s.store.Get(ctx, entryID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if entry.Status != models.StatusWaiting {
		return nil, s.fail(op, fmt.Errorf("%w: entry is %s", status.ErrInvalidTransition, entry.Status))
	}

	now := s.now()
	muts := []EntryMutation{{
		ID: entryID,
		Mutate: func(e *models.QueueEntry) {
			e.Status = to
			e.Position = models.PositionNone
			if to == models.StatusInProgress {
				e.ServedAt = now
			} else {
				e.ClosedAt = now
			}
		},
	}}

	waiting, err := s.store.ListBySalonAndStatus(ctx, entry.SalonID, models.StatusWaiting)
	if err != nil {
		return nil, s.fail(op, err)
	}
	remaining := waiting[:0:0]
	for _, w := range waiting {
		if w.ID != entryID {
			remaining = append(remaining, w)
		}
	}
	muts = append(muts, shiftMutations(remaining)...)

	if err := s.store.UpdateBatch(ctx, muts); err != nil {
		return nil, s.fail(op, err)
	}

	entry.Status = to
	entry.Position = models.PositionNone
	if to == models.StatusInProgress {
		entry.ServedAt = now
	} else {
		entry.ClosedAt = now
	}

	s.publish(ctx, entry.SalonID, models.StatusChange{
		EntryID: entry.ID,
		UserID:  entry.UserID,
		From:    models.StatusWaiting,
		To:      to,
	}, remaining)

	monitoring.TrackQueueOperation(op, "success")
	return entry, nil
}

// Complete closes an in_progress entry and awards loyalty points:
// floor(totalPrice / 10).
func (s *QueueService) Complete(ctx context.Context, actorID, entryID string) (*models.QueueEntry, error) {
	entry, err := s.closeInProgress(ctx, "complete", actorID, entryID, models.StatusCompleted)
	if err != nil {
		return nil, err
	}

	points := entry.TotalPrice.Div(loyaltyDivisor).Floor().IntPart()
	if points > 0 {
		if err := s.loyalty.AwardPoints(ctx, entry.UserID, points); err != nil {
			// The visit is already closed; the missing credit is the only
			// thing to report.
			log.Printf("loyalty award failed for user %s: %v", entry.UserID, err)
			return entry, s.fail("complete", err)
		}
		monitoring.TrackLoyaltyAward(points)
	}
	return entry, nil
}

// MarkNoShow closes an in_progress entry whose customer never showed up.
func (s *QueueService) MarkNoShow(ctx context.Context, actorID, entryID string) (*models.QueueEntry, error) {
	return s.closeInProgress(ctx, "no_show", actorID, entryID, models.StatusNoShow)
}

func (s *QueueService) closeInProgress(ctx context.Context, op, actorID, entryID string, to models.QueueStatus) (*models.QueueEntry, error) {
	entry, err := s.store.Get(ctx, entryID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	if err := s.authorize(ctx, op, actorID, entry); err != nil {
		return nil, s.fail(op, err)
	}

	unlock := s.lockSalon(entry.SalonID)
	defer unlock()

	// Re-read under the lock: the entry may have transitioned meanwhile.
	entry, err = s.store.Get(ctx, entryID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if entry.Status != models.StatusInProgress {
		return nil, s.fail(op, fmt.Errorf("%w: entry is %s", status.ErrInvalidTransition, entry.Status))
	}

	now := s.now()
	entry, err = s.store.Update(ctx, entryID, func(e *models.QueueEntry) {
		e.Status = to
		e.ClosedAt = now
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	waiting, err := s.store.ListBySalonAndStatus(ctx, entry.SalonID, models.StatusWaiting)
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.publish(ctx, entry.SalonID, models.StatusChange{
		EntryID: entry.ID,
		UserID:  entry.UserID,
		From:    models.StatusInProgress,
		To:      to,
	}, waiting)

	monitoring.TrackQueueOperation(op, "success")
	return entry, nil
}

// authorize checks actor rights per operation: leave belongs to the
// entry's own user, everything else to the salon owner.
func (s *QueueService) authorize(ctx context.Context, op, actorID string, entry *models.QueueEntry) error {
	if op == "leave" {
		if actorID != entry.UserID {
			return fmt.Errorf("%w: entry belongs to another user", status.ErrUnauthorized)
		}
		return nil
	}

	salon, err := s.catalog.Salon(ctx, entry.SalonID)
	if err != nil {
		return err
	}
	if salon.OwnerID != actorID {
		return fmt.Errorf("%w: not the salon owner", status.ErrUnauthorized)
	}
	return nil
}

// WaitingList returns the salon's current ordered waiting list with
// positions and estimated waits, straight from the store.
func (s *QueueService) WaitingList(ctx context.Context, salonID string) ([]models.WaitingPosition, error) {
	if _, err := s.catalog.Salon(ctx, salonID); err != nil {
		return nil, err
	}

	waiting, err := s.store.ListBySalonAndStatus(ctx, salonID, models.StatusWaiting)
	if err != nil {
		return nil, err
	}
	return s.waitingPositions(ctx, salonID, waiting), nil
}

// MyEntries lists a user's entries, newest first.
func (s *QueueService) MyEntries(ctx context.Context, userID string) ([]*models.QueueEntry, error) {
	return s.store.ListByUser(ctx, userID)
}

// UserPosition answers the cheap polling endpoint from the snapshot cache,
// falling back to the store on a miss.
func (s *QueueService) UserPosition(ctx context.Context, salonID, userID string) (int, error) {
	if s.cache != nil {
		if position, err := s.cache.Position(ctx, salonID, userID); err == nil && position != models.PositionNone {
			return position, nil
		}
	}

	waiting, err := s.store.ListBySalonAndStatus(ctx, salonID, models.StatusWaiting)
	if err != nil {
		return models.PositionNone, err
	}
	for _, entry := range waiting {
		if entry.UserID == userID {
			return entry.Position, nil
		}
	}
	return models.PositionNone, nil
}

// WarmSnapshots rebuilds the cache for every salon with a waiting set.
// Called on boot so polls hit Redis right away after a restart.
func (s *QueueService) WarmSnapshots(ctx context.Context, salonIDs []string) {
	if s.cache == nil {
		return
	}
	for _, salonID := range salonIDs {
		waiting, err := s.store.ListBySalonAndStatus(ctx, salonID, models.StatusWaiting)
		if err != nil {
			log.Printf("snapshot warm for salon %s: %v", salonID, err)
			continue
		}
		event := models.QueueUpdateEvent{
			Type:      "queue_update",
			SalonID:   salonID,
			Waiting:   s.waitingPositions(ctx, salonID, waiting),
			Timestamp: s.now(),
		}
		if err := s.cache.Store(ctx, event); err != nil {
			log.Printf("snapshot warm for salon %s: %v", salonID, err)
		}
	}
}

// shiftMutations compares stored positions with the recomputed ranking and
// returns one mutation per entry that moved. Also fixes the in-memory
// copies so the following broadcast reflects the new ordering.
func shiftMutations(waiting []*models.QueueEntry) []EntryMutation {
	positions := RecomputePositions(waiting)

	var muts []EntryMutation
	for _, entry := range waiting {
		target := positions[entry.ID]
		if entry.Position == target {
			continue
		}
		entry.Position = target
		muts = append(muts, EntryMutation{
			ID: entry.ID,
			Mutate: func(e *models.QueueEntry) {
				e.Position = target
			},
		})
	}
	return muts
}

// publish builds the full waiting-list event, refreshes the snapshot cache
// and hands the event to the broadcaster. Runs strictly after the store
// write committed; cache or listener trouble never fails the operation.
func (s *QueueService) publish(ctx context.Context, salonID string, change models.StatusChange, waiting []*models.QueueEntry) {
	event := models.QueueUpdateEvent{
		Type:      "queue_update",
		SalonID:   salonID,
		Change:    change,
		Waiting:   s.waitingPositions(ctx, salonID, waiting),
		Timestamp: s.now(),
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, event); err != nil {
			log.Printf("snapshot cache for salon %s: %v", salonID, err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(salonID, event)
	}
	monitoring.SetWaitingLength(salonID, len(event.Waiting))
}

// waitingPositions derives the published rows: rank plus estimated wait
// from the mean duration of each entry's services. Estimated wait is
// always recomputed here, never stored.
func (s *QueueService) waitingPositions(ctx context.Context, salonID string, waiting []*models.QueueEntry) []models.WaitingPosition {
	durations := map[string]time.Duration{}
	if services, err := s.catalog.SalonServices(ctx, salonID, nil); err == nil {
		for _, svc := range services {
			durations[svc.ID] = svc.Duration
		}
	}

	out := make([]models.WaitingPosition, 0, len(waiting))
	for _, entry := range waiting {
		var entryDurations []time.Duration
		for _, id := range entry.ServiceIDs {
			entryDurations = append(entryDurations, durations[id])
		}
		wait := EstimateWait(entry.Position, entryDurations, s.defaultDuration)
		monitoring.ObserveEstimatedWait(wait)
		out = append(out, models.WaitingPosition{
			EntryID:              entry.ID,
			UserID:               entry.UserID,
			Position:             entry.Position,
			EstimatedWaitMinutes: wait,
		})
	}
	sortWaitingPositions(out)
	return out
}

func sortWaitingPositions(positions []models.WaitingPosition) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Position < positions[j].Position
	})
}

func (s *QueueService) fail(op string, err error) error {
	monitoring.TrackQueueOperation(op, "error")
	return err
}

// applyDiscount folds one percentage discount into the running total.
func applyDiscount(total, percent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(percent).Div(hundred)
	if factor.IsNegative() {
		return decimal.Zero
	}
	return total.Mul(factor).Round(2)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
