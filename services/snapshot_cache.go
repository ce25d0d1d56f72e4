package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salonq/models"
)

// SnapshotCache keeps the most recently published waiting list per salon
// in Redis so position polls and the metrics scrape never touch the
// document store. The cache is derived state with a TTL; the Queue Store
// stays authoritative and clients fall back to it on a miss.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{redis: redisClient, ttl: ttl}
}

func snapshotKey(salonID string) string {
	return fmt.Sprintf("queue:snapshot:%s", salonID)
}

func positionKey(salonID, userID string) string {
	return fmt.Sprintf("queue:position:%s:%s", salonID, userID)
}

// Store caches the event's waiting list plus one position key per waiting
// user, and clears the position keys of users who dropped out of the set
// since the previous snapshot so a just-served user never polls their old
// rank for the rest of the TTL. Errors are returned for logging only;
// callers treat the cache as best-effort.
func (c *SnapshotCache) Store(ctx context.Context, event models.QueueUpdateEvent) error {
	data, err := json.Marshal(event.Waiting)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(event.Waiting))
	for _, wp := range event.Waiting {
		current[wp.UserID] = struct{}{}
	}

	departed := make(map[string]struct{})
	if previous, ok, err := c.Waiting(ctx, event.SalonID); err == nil && ok {
		for _, wp := range previous {
			if _, stays := current[wp.UserID]; !stays {
				departed[wp.UserID] = struct{}{}
			}
		}
	}
	// The previous snapshot may have expired; the triggering change still
	// names the user who left the set.
	if id := event.Change.UserID; id != "" {
		if _, stays := current[id]; !stays {
			departed[id] = struct{}{}
		}
	}

	pipe := c.redis.TxPipeline()
	pipe.Set(ctx, snapshotKey(event.SalonID), data, c.ttl)
	for _, wp := range event.Waiting {
		pipe.Set(ctx, positionKey(event.SalonID, wp.UserID), wp.Position, c.ttl)
	}
	for userID := range departed {
		pipe.Del(ctx, positionKey(event.SalonID, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot cache store: %w", err)
	}
	return nil
}

// Waiting returns the cached list, or ok=false on a miss.
func (c *SnapshotCache) Waiting(ctx context.Context, salonID string) ([]models.WaitingPosition, bool, error) {
	data, err := c.redis.Get(ctx, snapshotKey(salonID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("snapshot cache read: %w", err)
	}

	var waiting []models.WaitingPosition
	if err := json.Unmarshal(data, &waiting); err != nil {
		return nil, false, err
	}
	return waiting, true, nil
}

// Position returns a user's cached position for a salon, -1 when unknown.
func (c *SnapshotCache) Position(ctx context.Context, salonID, userID string) (int, error) {
	position, err := c.redis.Get(ctx, positionKey(salonID, userID)).Int()
	if err == redis.Nil {
		return models.PositionNone, nil
	} else if err != nil {
		return models.PositionNone, fmt.Errorf("snapshot cache read: %w", err)
	}
	return position, nil
}
