package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-stockroom/internal/database"
	"github.com/hugh/go-stockroom/internal/notify"
	"github.com/hugh/go-stockroom/internal/tasks"
	"github.com/hugh/go-stockroom/pkg/config"
	"github.com/hugh/go-stockroom/pkg/queue"
	"github.com/hugh/go-stockroom/pkg/util"
	"github.com/joho/godotenv"
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

	logger := util.NewLogger(cfg.Server.Env, "worker")
	slog.SetDefault(logger)

	logger.Info("starting Go-Stockroom worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	mailer := notify.NewMailer(cfg.SMTP, logger)
	if !mailer.Enabled() {
		logger.Warn("SMTP_HOST not set, invite emails will only be logged")
	}

	srv := queue.NewServer(&cfg.Redis, 10)
	mux := asynq.NewServeMux()
	tasks.NewHandler(db, logger, mailer).RegisterHandlers(mux)

	location, _ := cfg.App.Location() // checked by config.Validate
	scheduler := queue.NewScheduler(&cfg.Redis, location)
	entryID, err := tasks.RegisterPeriodic(scheduler, cfg.Cart.PruneCron)
	if err != nil {
		logger.Error("failed to register periodic tasks", "error", err)
		os.Exit(1)
	}
	next, _ := util.NextCronTime(cfg.Cart.PruneCron, time.Now().In(location))
	logger.Info("cart prune scheduled",
		"entry_id", entryID,
		"cron", cfg.Cart.PruneCron,
		"next_run", next,
	)

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
