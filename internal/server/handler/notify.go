package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polywatch/polywatch/internal/domain"
	"github.com/polywatch/polywatch/internal/pipeline"
)

// NotifyHandler serves the manual notification trigger endpoint.
type NotifyHandler struct {
	logger    *slog.Logger
	notifier  *pipeline.ActivityNotifier
	triggerCh chan<- struct{} // when non-nil, sending triggers one full cycle
}

// NewNotifyHandler creates a NotifyHandler with the given logger and notifier.
func NewNotifyHandler(notifier *pipeline.ActivityNotifier, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{logger: logger, notifier: notifier}
}

// WithTriggerChannel sets the channel to send on when a whole-roster trigger
// is requested. The orchestrator loop must receive from this channel.
func (h *NotifyHandler) WithTriggerChannel(ch chan<- struct{}) *NotifyHandler {
	h.triggerCh = ch
	return h
}

// triggerRequest is the optional JSON body of the trigger endpoint. An
// explicit address runs the pipeline synchronously for that address only.
type triggerRequest struct {
	Address string `json:"address"`
	Limit   int    `json:"limit"`
}

// Trigger runs one notification cycle. With an address in the body the cycle
// runs synchronously for that address and the response reflects its outcome;
// without one a full-roster cycle is enqueued for the orchestrator.
// POST /api/notify/trigger
func (h *NotifyHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Address != "" {
		if !common.IsHexAddress(req.Address) {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidAddress.Error())
			return
		}
		h.logger.InfoContext(r.Context(), "handler: manual notify requested",
			slog.String("address", req.Address),
		)
		if err := h.notifier.NotifyAddress(r.Context(), req.Address, req.Limit); err != nil {
			h.logger.ErrorContext(r.Context(), "handler: manual notify failed",
				slog.String("address", req.Address),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "notification run failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"address": req.Address,
		})
		return
	}

	h.logger.InfoContext(r.Context(), "handler: notify trigger requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":       "accepted",
			"requested_at": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if err := h.notifier.NotifyNewActivities(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: notify cycle failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "notification run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
