package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-stockroom/internal/api/handlers"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/history"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/orders"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/hugh/go-stockroom/internal/testutil"
)

type testEnv struct {
	*testutil.TestSetup
	Router http.Handler
}

// setupRouter mounts every workflow handler behind Auth, the way the API
// router does, without the global middleware.
func setupRouter(t *testing.T) *testEnv {
	return setupRouterWithGoogle(t, nil)
}

func setupRouterWithGoogle(t *testing.T, google auth.GoogleSignIn) *testEnv {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := testutil.DiscardLogger()
	authService := auth.NewService(tc.DB, tc.JWTService)
	teams := team.NewService(tc.DB, team.DefaultCapacity, logger)
	inv := inventory.NewService(tc.DB, teams, logger)
	ord := orders.NewService(tc.DB, logger)
	hist := history.NewService(tc.DB, teams, logger)

	authHandler := handlers.NewAuthHandler(authService, tc.JWTService.Expiry(), logger)
	if google != nil {
		authHandler.WithGoogle(google)
	}
	teamHandler := handlers.NewTeamHandler(teams, logger)
	inventoryHandler := handlers.NewInventoryHandler(inv, logger)
	cartHandler := handlers.NewCartHandler(inv, ord, 5*time.Second, logger)
	historyHandler := handlers.NewHistoryHandler(hist, time.UTC, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/google/login", authHandler.GoogleLogin)
		r.Get("/auth/google/callback", authHandler.GoogleCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tc.JWTService))

			r.Get("/me", authHandler.Me)
			r.Put("/me", authHandler.UpdateMe)
			r.Put("/me/plan", authHandler.SetPlan)
			r.Get("/admin/users", authHandler.ListUsers)

			r.Get("/team", teamHandler.Get)
			r.Post("/team", teamHandler.Create)
			r.Post("/team/invites", teamHandler.Invite)
			r.Post("/team/invites/{num}/respond", teamHandler.Respond)
			r.Delete("/team/{num}", teamHandler.Disband)
			r.Delete("/team/{num}/members/{email}", teamHandler.RemoveMember)
			r.Post("/team/{num}/leave", teamHandler.Leave)

			r.Get("/inventory", inventoryHandler.List)
			r.Post("/inventory", inventoryHandler.Create)
			r.Put("/inventory/{id}", inventoryHandler.Update)
			r.Delete("/inventory/{id}", inventoryHandler.Delete)
			r.Post("/inventory/{id}/adjust", inventoryHandler.Adjust)

			r.Get("/cart", cartHandler.List)
			r.Post("/cart", cartHandler.Add)
			r.Get("/cart/count", cartHandler.Count)
			r.Delete("/cart/{id}", cartHandler.Remove)
			r.Put("/cart/{id}/counter", cartHandler.SetCounter)
			r.Post("/orders/confirm", cartHandler.Confirm)

			r.Get("/history", historyHandler.History)
			r.Get("/dashboard", historyHandler.Dashboard)
			r.Get("/dashboard/export", historyHandler.Export)
		})
	})

	return &testEnv{TestSetup: tc, Router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.Router.ServeHTTP(rr, testutil.AuthenticatedRequest(t, method, path, body, token))
	return rr
}
