package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/inventory"
)

type InventoryHandler struct {
	inventory *inventory.Service
	logger    *slog.Logger
}

func NewInventoryHandler(inv *inventory.Service, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inv, logger: logger}
}

// List handles GET /api/v1/inventory. ?owner= selects a teammate's items.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	items, err := h.inventory.ListFor(r.Context(), s, r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/v1/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.ItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.inventory.Add(r.Context(), s, req.Input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/v1/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "item")
	if !ok {
		return
	}
	var req dto.ItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.inventory.Edit(r.Context(), s, id, req.Input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "item")
	if !ok {
		return
	}

	if err := h.inventory.Delete(r.Context(), s, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adjust handles POST /api/v1/inventory/{id}/adjust
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "item")
	if !ok {
		return
	}
	var req dto.DeltaRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.inventory.AdjustQuantity(r.Context(), s, id, req.Delta)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
