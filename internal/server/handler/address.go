package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polywatch/polywatch/internal/domain"
)

// AddressHandler serves the tracked-address registry endpoints.
type AddressHandler struct {
	logger *slog.Logger
	store  domain.AddressStore
}

// NewAddressHandler creates an AddressHandler backed by the given store.
func NewAddressHandler(store domain.AddressStore, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{logger: logger, store: store}
}

// ListAddresses returns all tracked addresses.
// GET /api/addresses
func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list addresses failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list addresses")
		return
	}
	if addresses == nil {
		addresses = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
}

// addAddressRequest is the body of the add-address endpoint.
type addAddressRequest struct {
	Address string `json:"address"`
}

// AddAddress registers a new tracked address.
// POST /api/addresses
func (h *AddressHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var req addAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAddress.Error())
		return
	}

	if err := h.store.Add(r.Context(), req.Address); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "address already tracked")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: add address failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add address")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"address": req.Address})
}

// RemoveAddress unregisters a tracked address.
// DELETE /api/addresses/{address}
func (h *AddressHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAddress.Error())
		return
	}

	if err := h.store.Remove(r.Context(), address); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "address not tracked")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: remove address failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove address")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
