package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
)

type validatable interface {
	Validate() map[string]string
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into req and runs its validation. It writes the
// 400 response itself and reports false when the handler should stop.
func decode(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to its status. Anything that is not a
// user-facing kind is logged here, once, with the request id.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, status, dto.ErrorResponse{Error: apperr.Message(apperr.Store("request", err))})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Error: apperr.Message(err)})
}

// session returns the caller's identity. Routes are mounted behind Auth, so
// a missing session only happens on misconfiguration.
func session(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := middleware.GetSession(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return auth.Session{}, false
	}
	return s, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func teamNumParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	num, err := strconv.Atoi(chi.URLParam(r, "num"))
	if err != nil || num < 1 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid team number"})
		return 0, false
	}
	return num, true
}
