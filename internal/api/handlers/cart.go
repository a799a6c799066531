package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/orders"
)

type CartHandler struct {
	inventory    *inventory.Service
	orders       *orders.Service
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewCartHandler(inv *inventory.Service, ord *orders.Service, pollInterval time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{inventory: inv, orders: ord, pollInterval: pollInterval, logger: logger}
}

// List handles GET /api/v1/cart
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	entries, err := h.inventory.ListCart(r.Context(), s)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Count handles GET /api/v1/cart/count, which clients poll.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	n, err := h.inventory.CartCount(r.Context(), s)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CartCountResponse{
		Count:               n,
		PollIntervalSeconds: int(h.pollInterval.Seconds()),
	})
}

// Add handles POST /api/v1/cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.AddToCartRequest
	if !decode(w, r, &req) {
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid item ID"})
		return
	}

	entry, err := h.inventory.DuplicateToCart(r.Context(), s, itemID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Remove handles DELETE /api/v1/cart/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "cart item")
	if !ok {
		return
	}

	if err := h.inventory.RemoveFromCart(r.Context(), s, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCounter handles PUT /api/v1/cart/{id}/counter
func (h *CartHandler) SetCounter(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "cart item")
	if !ok {
		return
	}
	var req dto.DeltaRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.orders.SetCounter(r.Context(), s, id, req.Delta)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Confirm handles POST /api/v1/orders/confirm. An empty body confirms the
// stored counters as they are.
func (h *CartHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.ConfirmRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	result, err := h.orders.ConfirmOrder(r.Context(), s, req.Overrides())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
