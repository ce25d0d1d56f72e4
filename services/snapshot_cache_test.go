package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonq/models"
)

func snapshotEvent() models.QueueUpdateEvent {
	return models.QueueUpdateEvent{
		Type:    "queue_update",
		SalonID: "salon001",
		Waiting: []models.WaitingPosition{
			{EntryID: "entry001", UserID: "user1", Position: 0},
			{EntryID: "entry002", UserID: "user2", Position: 1, EstimatedWaitMinutes: 30},
		},
		Timestamp: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotCache_StoreWritesListAndPositions(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	event := snapshotEvent()
	data, err := json.Marshal(event.Waiting)
	require.NoError(t, err)

	mock.ExpectGet("queue:snapshot:salon001").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectSet("queue:snapshot:salon001", data, 30*time.Second).SetVal("OK")
	mock.ExpectSet("queue:position:salon001:user1", 0, 30*time.Second).SetVal("OK")
	mock.ExpectSet("queue:position:salon001:user2", 1, 30*time.Second).SetVal("OK")
	mock.ExpectTxPipelineExec()

	require.NoError(t, cache.Store(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache_StoreClearsDepartedPositions(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	previous, err := json.Marshal([]models.WaitingPosition{
		{EntryID: "entry001", UserID: "user1", Position: 0},
		{EntryID: "entry002", UserID: "user2", Position: 1},
	})
	require.NoError(t, err)

	// user1 was advanced to the chair; only user2 remains waiting
	event := models.QueueUpdateEvent{
		Type:    "queue_update",
		SalonID: "salon001",
		Change: models.StatusChange{
			EntryID: "entry001", UserID: "user1",
			From: models.StatusWaiting, To: models.StatusInProgress,
		},
		Waiting: []models.WaitingPosition{
			{EntryID: "entry002", UserID: "user2", Position: 0},
		},
		Timestamp: time.Date(2026, 5, 2, 9, 5, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event.Waiting)
	require.NoError(t, err)

	mock.ExpectGet("queue:snapshot:salon001").SetVal(string(previous))
	mock.ExpectTxPipeline()
	mock.ExpectSet("queue:snapshot:salon001", data, 30*time.Second).SetVal("OK")
	mock.ExpectSet("queue:position:salon001:user2", 0, 30*time.Second).SetVal("OK")
	mock.ExpectDel("queue:position:salon001:user1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, cache.Store(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache_StoreClearsTransitionedUserOnColdCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	// no previous snapshot to diff against; the change still names the
	// user who left the waiting set
	event := models.QueueUpdateEvent{
		Type:    "queue_update",
		SalonID: "salon001",
		Change: models.StatusChange{
			EntryID: "entry001", UserID: "user1",
			From: models.StatusWaiting, To: models.StatusCancelled,
		},
		Waiting:   nil,
		Timestamp: time.Date(2026, 5, 2, 9, 5, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event.Waiting)
	require.NoError(t, err)

	mock.ExpectGet("queue:snapshot:salon001").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectSet("queue:snapshot:salon001", data, 30*time.Second).SetVal("OK")
	mock.ExpectDel("queue:position:salon001:user1").SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, cache.Store(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache_WaitingHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	event := snapshotEvent()
	data, err := json.Marshal(event.Waiting)
	require.NoError(t, err)

	mock.ExpectGet("queue:snapshot:salon001").SetVal(string(data))

	waiting, ok, err := cache.Waiting(context.Background(), "salon001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, waiting, 2)
	assert.Equal(t, "user2", waiting[1].UserID)
	assert.Equal(t, 30, waiting[1].EstimatedWaitMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache_WaitingMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	mock.ExpectGet("queue:snapshot:salon001").RedisNil()

	waiting, ok, err := cache.Waiting(context.Background(), "salon001")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, waiting)
}

func TestSnapshotCache_Position(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	mock.ExpectGet("queue:position:salon001:user2").SetVal("1")

	position, err := cache.Position(context.Background(), "salon001", "user2")
	require.NoError(t, err)
	assert.Equal(t, 1, position)
}

func TestSnapshotCache_PositionMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	mock.ExpectGet("queue:position:salon001:stranger").RedisNil()

	position, err := cache.Position(context.Background(), "salon001", "stranger")
	require.NoError(t, err)
	assert.Equal(t, models.PositionNone, position)
}

func TestSnapshotCache_PositionRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewSnapshotCache(db, 30*time.Second)

	mock.ExpectGet("queue:position:salon001:user1").SetErr(errors.New("connection refused"))

	position, err := cache.Position(context.Background(), "salon001", "user1")
	assert.Error(t, err)
	assert.Equal(t, models.PositionNone, position)
}
