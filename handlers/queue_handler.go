package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"salonq/internal/status"
	"salonq/models"
	"salonq/services"
)

type QueueHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		app:          app,
		queueService: queueService,
	}
}

// Join handles POST /api/queues.
func (h *QueueHandler) Join(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.JoinRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.UserID = e.Auth.Id

	entry, err := h.queueService.Join(e.Request.Context(), req)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusCreated, entry)
}

// Leave handles DELETE /api/queues/{id}.
func (h *QueueHandler) Leave(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entry, err := h.queueService.Leave(e.Request.Context(), e.Auth.Id, e.Request.PathValue("id"))
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// Advance handles POST /api/queues/{id}/advance (owner serves the customer).
func (h *QueueHandler) Advance(e *core.RequestEvent) error {
	return h.ownerTransition(e, h.queueService.Advance)
}

// Complete handles POST /api/queues/{id}/complete.
func (h *QueueHandler) Complete(e *core.RequestEvent) error {
	return h.ownerTransition(e, h.queueService.Complete)
}

// MarkNoShow handles POST /api/queues/{id}/no-show.
func (h *QueueHandler) MarkNoShow(e *core.RequestEvent) error {
	return h.ownerTransition(e, h.queueService.MarkNoShow)
}

func (h *QueueHandler) ownerTransition(e *core.RequestEvent, op func(ctx context.Context, actorID, entryID string) (*models.QueueEntry, error)) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entry, err := op(e.Request.Context(), e.Auth.Id, e.Request.PathValue("id"))
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// WaitingList handles GET /api/salons/{salonId}/queue: the current ordered
// waiting list with positions and estimated waits. Public.
func (h *QueueHandler) WaitingList(e *core.RequestEvent) error {
	waiting, err := h.queueService.WaitingList(e.Request.Context(), e.Request.PathValue("salonId"))
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"salon_id": e.Request.PathValue("salonId"),
		"waiting":  waiting,
	})
}

// MyEntries handles GET /api/queues/my.
func (h *QueueHandler) MyEntries(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entries, err := h.queueService.MyEntries(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, entries)
}

// Position handles GET /api/salons/{salonId}/queue/position: the calling
// user's current position, served from the snapshot cache when warm.
func (h *QueueHandler) Position(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	position, err := h.queueService.UserPosition(e.Request.Context(), e.Request.PathValue("salonId"), e.Auth.Id)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"position": position})
}

func mapQueueError(err error) error {
	switch {
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError("Not allowed", err)
	case errors.Is(err, status.ErrInvalidTransition):
		return apis.NewBadRequestError("Invalid transition", err)
	case errors.Is(err, status.ErrInvalidServiceSelection):
		return apis.NewBadRequestError("Invalid service selection", err)
	case errors.Is(err, status.ErrStorageUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Storage unavailable", err)
	default:
		return apis.NewBadRequestError("Request failed", err)
	}
}
