package handler

import (
	"log/slog"
	"net/http"

	"github.com/polywatch/polywatch/internal/domain"
)

// ActivityHandler serves the persisted activity history endpoints.
type ActivityHandler struct {
	logger *slog.Logger
	store  domain.ActivityStore
}

// NewActivityHandler creates an ActivityHandler backed by the given store.
func NewActivityHandler(store domain.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{logger: logger, store: store}
}

// ListActivities returns the most recently announced activities, newest first.
// GET /api/activities?limit=50
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	activities, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list activities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []domain.Activity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(activities),
		"activities": activities,
	})
}
