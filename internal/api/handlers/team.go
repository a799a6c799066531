package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/team"
)

type TeamHandler struct {
	teams  *team.Service
	logger *slog.Logger
}

func NewTeamHandler(teams *team.Service, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

// Get handles GET /api/v1/team
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	view, err := h.teams.GetTeamView(r.Context(), s)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Create handles POST /api/v1/team
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	row, err := h.teams.CreateTeam(r.Context(), s)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// Disband handles DELETE /api/v1/team/{num}
func (h *TeamHandler) Disband(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	num, ok := teamNumParam(w, r)
	if !ok {
		return
	}

	removed, err := h.teams.DisbandTeam(r.Context(), s, num)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DisbandResponse{Removed: removed})
}

// Invite handles POST /api/v1/team/invites. Inviting without a team founds
// one first.
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.InviteRequest
	if !decode(w, r, &req) {
		return
	}

	row, err := h.teams.InviteMember(r.Context(), s, req.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// Respond handles POST /api/v1/team/invites/{num}/respond
func (h *TeamHandler) Respond(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	num, ok := teamNumParam(w, r)
	if !ok {
		return
	}
	var req dto.RespondRequest
	if !decode(w, r, &req) {
		return
	}

	row, err := h.teams.RespondToInvite(r.Context(), s, num, *req.Approve)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if row == nil {
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Invite rejected"})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// RemoveMember handles DELETE /api/v1/team/{num}/members/{email}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	num, ok := teamNumParam(w, r)
	if !ok {
		return
	}

	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid email"})
		return
	}

	if err := h.teams.RemoveMember(r.Context(), s, num, email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

// Leave handles POST /api/v1/team/{num}/leave
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	num, ok := teamNumParam(w, r)
	if !ok {
		return
	}

	if err := h.teams.LeaveTeam(r.Context(), s, num); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left team"})
}
