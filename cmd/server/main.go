package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/internal/api"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database"
	"github.com/hugh/go-stockroom/internal/history"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/orders"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/hugh/go-stockroom/pkg/config"
	"github.com/hugh/go-stockroom/pkg/queue"
	"github.com/hugh/go-stockroom/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, "server")
	slog.SetDefault(logger)

	logger.Info("starting Go-Stockroom server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it invite emails and cart pruning are skipped
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	location, _ := cfg.App.Location() // checked by config.Validate

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	teamService := team.NewService(db, cfg.Team.Capacity, logger)
	inventoryService := inventory.NewService(db, teamService, logger)
	orderService := orders.NewService(db, logger)
	historyService := history.NewService(db, teamService, logger)
	if asynqClient != nil {
		teamService.WithQueue(asynqClient)
		orderService.WithQueue(asynqClient)
	}

	var google auth.GoogleSignIn
	if cfg.Google.Enabled() {
		google = auth.NewGoogleProvider(cfg.Google)
	} else {
		logger.Info("google sign-in disabled, GOOGLE_CLIENT_ID not set")
	}

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		Google:         google,
		Teams:          teamService,
		Inventory:      inventoryService,
		Orders:         orderService,
		History:        historyService,
		Location:       location,
		PollInterval:   cfg.Cart.PollInterval(),
		AllowedOrigins: cfg.App.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
		SecureCookies:  !cfg.Server.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	router.Close()

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
