package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/go-stockroom/internal/api"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/history"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/orders"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, tc *testutil.TestSetup, rateLimit int) *api.Router {
	t.Helper()
	logger := testutil.DiscardLogger()
	teams := team.NewService(tc.DB, team.DefaultCapacity, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:            tc.DB,
		Logger:        logger,
		JWTService:    tc.JWTService,
		AuthService:   auth.NewService(tc.DB, tc.JWTService),
		Teams:         teams,
		Inventory:     inventory.NewService(tc.DB, teams, logger),
		Orders:        orders.NewService(tc.DB, logger),
		History:       history.NewService(tc.DB, teams, logger),
		Location:      time.UTC,
		PollInterval:  3 * time.Second,
		RateLimitReqs: rateLimit,
		RateLimitSecs: 60,
	})
	t.Cleanup(router.Close)
	return router
}

func TestRouter_PublicAndProtected(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := newTestRouter(t, tc, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "GET", "/api/v1/cart/count", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", "/api/v1/cart/count", nil, tc.Token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"poll_interval_seconds":3}`, rr.Body.String())
}

func TestRouter_AdminListingRequiresAdmin(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := newTestRouter(t, tc, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/users", nil, tc.Token))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin, _ := tc.AddUser(t, "admin@example.com")
	require.NoError(t, tc.DB.Model(admin).Update("role", models.RoleAdmin).Error)
	admin.Role = models.RoleAdmin
	adminToken := testutil.GenerateTestToken(t, tc.JWTService, admin)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "GET", "/api/v1/admin/users", nil, adminToken))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_SignUpCannotClaimAdmin(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := newTestRouter(t, tc, 0)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/register", map[string]string{
		"email":    "mallory@example.com",
		"password": "securepassword123",
		"username": "Mallory",
		"role":     "admin",
	}))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var count int64
	require.NoError(t, tc.DB.Model(&models.User{}).Where("email = ?", "mallory@example.com").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRouter_CookieMutationsNeedCSRF(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := newTestRouter(t, tc, 0)
	tokenCookie := &http.Cookie{Name: middleware.TokenCookie, Value: tc.Token}

	get := httptest.NewRequest("GET", "/api/v1/team", nil)
	get.AddCookie(tokenCookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, get)
	require.Equal(t, http.StatusOK, rr.Code)

	var csrf *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrf = c
		}
	}
	require.NotNil(t, csrf)

	post := httptest.NewRequest("POST", "/api/v1/team", nil)
	post.AddCookie(tokenCookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, post)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	post = httptest.NewRequest("POST", "/api/v1/team", nil)
	post.AddCookie(tokenCookie)
	post.Header.Set("X-CSRF-Token", csrf.Value)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, post)
	assert.Equal(t, http.StatusCreated, rr.Code)

	// bearer clients are not cookie-authenticated and skip the check
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, "POST", "/api/v1/team", nil, tc.Token))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRouter_RateLimited(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := newTestRouter(t, tc, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/ready", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
