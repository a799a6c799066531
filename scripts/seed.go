//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/team"
	"github.com/hugh/go-stockroom/pkg/config"
	"github.com/hugh/go-stockroom/pkg/util"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, "seed")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)
	teamService := team.NewService(db, cfg.Team.Capacity, logger)
	inventoryService := inventory.NewService(db, teamService, logger)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}

	admin, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Username: "Admin",
		Role:     models.RoleAdmin,
	})
	if errors.Is(err, auth.ErrUserExists) {
		fmt.Printf("Admin user already exists: %s\n", email)
		return
	}
	if err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}
	adminSession := auth.SessionFor(admin.User)
	if _, err := authService.SetPlan(ctx, adminSession, models.PlanStarter); err != nil {
		log.Fatalf("failed to set plan: %v", err)
	}

	seller, err := authService.Register(ctx, auth.RegisterInput{
		Email:    "seller@example.com",
		Password: password,
		Username: "Seller",
	})
	if err != nil {
		log.Fatalf("failed to create seller: %v", err)
	}

	// The admin founds a team and the seller accepts.
	if _, err := teamService.InviteMember(ctx, adminSession, seller.User.Email); err != nil {
		log.Fatalf("failed to invite seller: %v", err)
	}
	teamNum, err := teamService.TeamNumFor(ctx, admin.User.Email)
	if err != nil || teamNum == nil {
		log.Fatalf("failed to resolve team: %v", err)
	}
	if _, err := teamService.RespondToInvite(ctx, auth.SessionFor(seller.User), *teamNum, true); err != nil {
		log.Fatalf("failed to accept invite: %v", err)
	}

	for _, item := range []inventory.ItemInput{
		{Name: "Canvas Tote", Quantity: 25, Price: decimal.RequireFromString("18.00")},
		{Name: "Enamel Mug", Quantity: 40, Price: decimal.RequireFromString("12.50")},
		{Name: "Sticker Pack", Quantity: 120, Price: decimal.RequireFromString("4.00")},
	} {
		if _, err := inventoryService.Add(ctx, adminSession, item); err != nil {
			log.Fatalf("failed to add %s: %v", item.Name, err)
		}
	}

	fmt.Printf("Seed data created successfully!\n")
	fmt.Printf("Admin: %s (team %d)\n", admin.User.Email, *teamNum)
	fmt.Printf("Seller: %s\n", seller.User.Email)
	fmt.Printf("Token: %s\n", admin.Token)
}
