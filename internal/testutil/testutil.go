package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing. The pool is
// pinned to one connection because every new :memory: connection is a new,
// empty database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestUser creates a seller with a random email and the starter plan.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithEmail(t, db, "seller-"+uuid.New().String()[:8]+"@example.com")
}

func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        email,
		PasswordHash: hash,
		Username:     "Test Seller",
		Role:         models.RoleSeller,
		Plan:         models.PlanStarter,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// SessionFor returns the session a logged-in user would carry.
func SessionFor(user *models.User) auth.Session {
	return auth.SessionFor(user)
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// CreateTestItem creates an inventory item owned by owner.
func CreateTestItem(t *testing.T, db *gorm.DB, owner, name string, quantity int, price string) *models.InventoryItem {
	t.Helper()

	item := &models.InventoryItem{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:    owner,
		Name:     name,
		Quantity: quantity,
		Price:    decimal.RequireFromString(price),
	}

	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test item: %v", err)
	}

	return item
}

// CreateTestMembership inserts a team row directly.
func CreateTestMembership(t *testing.T, db *gorm.DB, teamNum int, email string, inviter, approved bool) *models.TeamMembership {
	t.Helper()

	m := &models.TeamMembership{
		Base: models.Base{
			ID: uuid.New(),
		},
		TeamNum:  teamNum,
		Invite:   email,
		Inviter:  inviter,
		Approved: approved,
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	return m
}

// CreateTestTeam creates an approved team founded by the first email with
// the rest as approved members.
func CreateTestTeam(t *testing.T, db *gorm.DB, teamNum int, founder string, members ...string) {
	t.Helper()

	CreateTestMembership(t, db, teamNum, founder, true, true)
	for _, m := range members {
		CreateTestMembership(t, db, teamNum, m, false, true)
	}
}

// CreateTestCartEntry carts item for viewer with the given counter.
func CreateTestCartEntry(t *testing.T, db *gorm.DB, item *models.InventoryItem, viewer string, counter int) *models.CartEntry {
	t.Helper()

	entry := &models.CartEntry{
		Base: models.Base{
			ID: uuid.New(),
		},
		InventoryID: item.ID,
		UserPrev:    viewer,
		Name:        item.Name,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Email:       item.Email,
		Counter:     counter,
	}

	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test cart entry: %v", err)
	}

	return entry
}

// CreateTestAuditLog records a deduction at a fixed time.
func CreateTestAuditLog(t *testing.T, db *gorm.DB, email, name string, quantity int, price string, at time.Time) *models.AuditLog {
	t.Helper()

	log := &models.AuditLog{
		Base: models.Base{
			ID:        uuid.New(),
			CreatedAt: at,
			UpdatedAt: at,
		},
		Name:     name,
		Email:    email,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Action:   models.ActionDeduction,
	}

	if err := db.Create(log).Error; err != nil {
		t.Fatalf("failed to create test audit log: %v", err)
	}

	return log
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	User       *models.User
	Session    auth.Session
	Token      string
}

// NewTestContext creates a complete test setup with DB, user, session and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		User:       user,
		Session:    SessionFor(user),
		Token:      token,
	}
}

// AddUser creates another user and returns it with its token.
func (ts *TestSetup) AddUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := CreateTestUserWithEmail(t, ts.DB, email)
	return user, GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
