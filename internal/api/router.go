package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/go-stockroom/internal/api/handlers"
	"github.com/hugh/go-stockroom/internal/api/middleware"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/history"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/orders"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	JWTService  *auth.JWTService
	AuthService *auth.Service
	Google      auth.GoogleSignIn // nil disables Google sign-in
	Teams       *team.Service
	Inventory   *inventory.Service
	Orders      *orders.Service
	History     *history.Service

	Location       *time.Location // default zone for history ranges
	PollInterval   time.Duration  // advertised cart count poll interval
	AllowedOrigins []string       // CORS allowed origins
	RateLimitReqs  int            // Rate limit requests per window
	RateLimitSecs  int            // Rate limit window in seconds
	SecureCookies  bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(cfg.Logger))

	var userLimiter *middleware.RateLimiter
	if cfg.RateLimitReqs > 0 {
		ipLimiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		userLimiter = middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		router.limiters = append(router.limiters, ipLimiter, userLimiter)
		r.Use(middleware.RateLimit(ipLimiter))
	}

	// CORS - restrict to configured origins, or allow local clients in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.JWTService.Expiry(), cfg.Logger).
		WithSecureCookies(cfg.SecureCookies)
	if cfg.Google != nil {
		authHandler.WithGoogle(cfg.Google)
	}
	teamHandler := handlers.NewTeamHandler(cfg.Teams, cfg.Logger)
	inventoryHandler := handlers.NewInventoryHandler(cfg.Inventory, cfg.Logger)
	cartHandler := handlers.NewCartHandler(cfg.Inventory, cfg.Orders, pollInterval, cfg.Logger)
	historyHandler := handlers.NewHistoryHandler(cfg.History, location, cfg.Logger)

	csrfStore := middleware.NewCSRFStore()

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/google/login", authHandler.GoogleLogin)
		r.Get("/auth/google/callback", authHandler.GoogleCallback)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if userLimiter != nil {
				r.Use(middleware.RateLimitByUser(userLimiter))
			}
			r.Use(middleware.CSRF(csrfStore))

			r.Get("/me", authHandler.Me)
			r.Put("/me", authHandler.UpdateMe)
			r.Put("/me/plan", authHandler.SetPlan)

			r.Route("/team", func(r chi.Router) {
				r.Get("/", teamHandler.Get)
				r.Post("/", teamHandler.Create)
				r.Post("/invites", teamHandler.Invite)
				r.Post("/invites/{num}/respond", teamHandler.Respond)
				r.Delete("/{num}", teamHandler.Disband)
				r.Delete("/{num}/members/{email}", teamHandler.RemoveMember)
				r.Post("/{num}/leave", teamHandler.Leave)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", inventoryHandler.List)
				r.Post("/", inventoryHandler.Create)
				r.Put("/{id}", inventoryHandler.Update)
				r.Delete("/{id}", inventoryHandler.Delete)
				r.Post("/{id}/adjust", inventoryHandler.Adjust)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.List)
				r.Post("/", cartHandler.Add)
				r.Get("/count", cartHandler.Count)
				r.Delete("/{id}", cartHandler.Remove)
				r.Put("/{id}/counter", cartHandler.SetCounter)
			})

			r.Post("/orders/confirm", cartHandler.Confirm)

			r.Get("/history", historyHandler.History)
			r.Get("/dashboard", historyHandler.Dashboard)
			r.Get("/dashboard/export", historyHandler.Export)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/admin/users", authHandler.ListUsers)
			})
		})
	})

	return router
}

// Close stops the rate limiter sweepers.
func (r *Router) Close() {
	for _, l := range r.limiters {
		l.Stop()
	}
}
