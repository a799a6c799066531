package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/history"
)

type HistoryHandler struct {
	history  *history.Service
	location *time.Location
	logger   *slog.Logger
}

// NewHistoryHandler reads date ranges in loc unless a request names its own
// zone with ?tz=.
func NewHistoryHandler(svc *history.Service, loc *time.Location, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: svc, location: loc, logger: logger}
}

// History handles GET /api/v1/history?range=&start=&end=&tz=
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	rng, loc, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	view, err := h.history.History(r.Context(), s, rng, loc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Dashboard handles GET /api/v1/dashboard
func (h *HistoryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	rng, loc, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	d, err := h.history.Dashboard(r.Context(), s, rng, loc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Export handles GET /api/v1/dashboard/export
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	rng, loc, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	d, err := h.history.Dashboard(r.Context(), s, rng, loc)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// buffered so a write failure can still become a 500
	var buf bytes.Buffer
	if err := history.ExportCSV(&buf, d); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	name := "dashboard"
	if rng.Kind != history.RangeAll {
		name += "-" + string(rng.Kind)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *HistoryHandler) parseRange(w http.ResponseWriter, r *http.Request) (history.DateRange, *time.Location, bool) {
	q := r.URL.Query()

	rng, err := history.ParseDateRange(q.Get("range"), q.Get("start"), q.Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return history.DateRange{}, nil, false
	}
	loc, err := history.ParseLocation(q.Get("tz"), h.location)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return history.DateRange{}, nil, false
	}
	return rng, loc, true
}
