package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hugh/go-stockroom/internal/api/dto"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupRouter(t)

	t.Run("successful registration", func(t *testing.T) {
		body := map[string]string{
			"email":    "NewUser@Example.com",
			"password": "securepassword123",
			"username": "New User",
			"role":     "coadmin",
		}
		rr := env.do(t, "POST", "/api/v1/auth/register", body, "")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "New User", resp.User.Username)
		assert.Equal(t, "coadmin", resp.User.Role)
		assert.True(t, resp.NeedsPlan)

		c := tokenCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, resp.Token, c.Value)
		assert.True(t, c.HttpOnly)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := map[string]string{
			"email":    env.User.Email,
			"password": "securepassword123",
			"username": "Again",
		}
		rr := env.do(t, "POST", "/api/v1/auth/register", body, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("validation errors", func(t *testing.T) {
		body := map[string]string{
			"email":    "not-an-email",
			"password": "short",
			"role":     "owner",
		}
		rr := env.do(t, "POST", "/api/v1/auth/register", body, "")
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "email")
		assert.Contains(t, resp.Details, "password")
		assert.Contains(t, resp.Details, "role")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/auth/register", nil)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupRouter(t)

	t.Run("valid credentials", func(t *testing.T) {
		body := map[string]string{"email": env.User.Email, "password": "testpassword123"}
		rr := env.do(t, "POST", "/api/v1/auth/login", body, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.False(t, resp.NeedsPlan)
		assert.Equal(t, 4, resp.User.MaxUsers)
		assert.NotNil(t, tokenCookie(rr))
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{"email": env.User.Email, "password": "wrongpassword"}
		rr := env.do(t, "POST", "/api/v1/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "invalid credentials", resp.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/v1/auth/login", map[string]string{}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupRouter(t)

	rr := env.do(t, "POST", "/api/v1/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	c := tokenCookie(rr)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestAuthHandler_Profile(t *testing.T) {
	env := setupRouter(t)

	t.Run("me", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/me", nil, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.Equal(t, env.User.Email, user.Email)
		assert.Equal(t, "starter", user.Plan)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/v1/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("update username", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/v1/me", map[string]string{"username": "  Renamed  "}, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.Equal(t, "Renamed", user.Username)
	})

	t.Run("blank username", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/v1/me", map[string]string{"username": "   "}, env.Token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("set plan", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/v1/me/plan", map[string]string{"plan": "premium"}, env.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var user dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &user)
		assert.Equal(t, "premium", user.Plan)
		assert.Equal(t, 10, user.MaxUsers)
	})

	t.Run("unknown plan", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/v1/me/plan", map[string]string{"plan": "enterprise"}, env.Token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_ListUsers(t *testing.T) {
	env := setupRouter(t)
	env.AddUser(t, "a@example.com")
	env.AddUser(t, "b@example.com")

	rr := env.do(t, "GET", "/api/v1/admin/users?page=1&per_page=2", nil, env.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.PaginatedResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.PerPage)
	assert.Equal(t, 2, resp.TotalPages)

	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 2)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "a@example.com", first["email"])
}

type fakeGoogle struct {
	user *auth.GoogleUser
	err  error
}

func (f *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeGoogle) Exchange(ctx context.Context, code string) (*auth.GoogleUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func TestAuthHandler_Google(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := setupRouter(t)
		rr := env.do(t, "GET", "/api/v1/auth/google/login", nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	google := &fakeGoogle{user: &auth.GoogleUser{
		ID:            "g-123",
		Email:         "gopher@example.com",
		VerifiedEmail: true,
		Name:          "Gopher",
	}}
	env := setupRouterWithGoogle(t, google)

	login := env.do(t, "GET", "/api/v1/auth/google/login", nil, "")
	require.Equal(t, http.StatusTemporaryRedirect, login.Code)

	var state *http.Cookie
	for _, c := range login.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)
	loc, err := url.Parse(login.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, loc.Query().Get("state"))

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/google/callback?code=abc&state=forged", nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("exchange failure", func(t *testing.T) {
		google.err = errors.New("boom")
		defer func() { google.err = nil }()

		req := httptest.NewRequest("GET", "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state.Value), nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("creates the user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state.Value), nil)
		req.AddCookie(state)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "gopher@example.com", resp.User.Email)
		assert.Equal(t, "Gopher", resp.User.Username)
		assert.True(t, resp.NeedsPlan)
		assert.NotNil(t, tokenCookie(rr))

		var count int64
		env.DB.Model(&models.User{}).Where("email = ?", "gopher@example.com").Count(&count)
		assert.Equal(t, int64(1), count)
	})
}
