package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService  *auth.Service
	google       auth.GoogleSignIn
	tokenTTL     time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(authService *auth.Service, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, tokenTTL: tokenTTL, logger: logger}
}

// WithGoogle enables the Google sign-in routes.
func (h *AuthHandler) WithGoogle(g auth.GoogleSignIn) *AuthHandler {
	h.google = g
	return h
}

// WithSecureCookies marks issued cookies Secure, for HTTPS deployments.
func (h *AuthHandler) WithSecureCookies(secure bool) *AuthHandler {
	h.secureCookie = secure
	return h
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, authResponse(resp))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, authResponse(resp))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// GoogleLogin redirects to the consent screen with a one-time state bound
// to a short-lived cookie.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Google sign-in is not configured"})
		return
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Google sign-in is not configured"})
		return
	}

	state := r.URL.Query().Get("state")
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid OAuth state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Missing authorization code"})
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("google exchange failed", "error", err)
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Google sign-in failed"})
		return
	}

	resp, err := h.authService.LoginWithGoogle(r.Context(), gu)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, authResponse(resp))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), s.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

// UpdateMe handles PUT /api/v1/me. Only the username is editable.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.authService.UpdateUsername(r.Context(), s, req.Username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *AuthHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req dto.PlanRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.authService.SetPlan(r.Context(), s, models.Plan(req.Plan))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

// ListUsers handles GET /api/v1/admin/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	users, total, err := h.authService.ListUsers(r.Context(), pagination.Offset(), pagination.PerPage)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	data := make([]dto.UserDTO, len(users))
	for i := range users {
		data[i] = dto.NewUserDTO(&users[i])
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: pagination.TotalPages(total),
	})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
}

func authResponse(resp *auth.AuthResponse) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     resp.Token,
		User:      dto.NewUserDTO(resp.User),
		NeedsPlan: resp.NeedsPlan(),
	}
}
