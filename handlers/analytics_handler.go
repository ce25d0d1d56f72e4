package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"salonq/services"
)

type AnalyticsHandler struct {
	app       *pocketbase.PocketBase
	analytics *services.AnalyticsService
	catalog   services.Catalog
}

func NewAnalyticsHandler(app *pocketbase.PocketBase, analytics *services.AnalyticsService, catalog services.Catalog) *AnalyticsHandler {
	return &AnalyticsHandler{
		app:       app,
		analytics: analytics,
		catalog:   catalog,
	}
}

// SalonAnalytics handles GET /api/analytics/{salonId}. Owner only.
func (h *AnalyticsHandler) SalonAnalytics(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	salonID := e.Request.PathValue("salonId")
	salon, err := h.catalog.Salon(e.Request.Context(), salonID)
	if err != nil {
		return mapQueueError(err)
	}
	if salon.OwnerID != e.Auth.Id {
		return apis.NewForbiddenError("Not the salon owner", nil)
	}

	analytics, err := h.analytics.SalonAnalytics(e.Request.Context(), salonID)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, analytics)
}
