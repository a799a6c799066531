package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrUserExists         = apperr.Conflict("user already exists")
	ErrInvalidCredentials = apperr.Auth("invalid credentials")
	ErrInvalidRole        = apperr.Validation("invalid role")
	ErrInvalidPlan        = apperr.Validation("invalid plan")
	ErrUnverifiedEmail    = apperr.Auth("google account email is not verified")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
	Role     models.Role // defaults to seller
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NeedsPlan tells the client to route through plan selection first.
func (r *AuthResponse) NeedsPlan() bool {
	return r.User != nil && r.User.NeedsPlan()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)

	role := input.Role
	if role == "" {
		role = models.RoleSeller
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Store("lookup user", err)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Username:     strings.TrimSpace(input.Username),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, apperr.Store("create user", err)
	}

	return s.issue(&user)
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Store("lookup user", err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(&user)
}

// LoginWithGoogle finds the user by Google id, then by email (linking the
// account), and otherwise creates a seller with no password.
func (s *Service) LoginWithGoogle(ctx context.Context, gu *GoogleUser) (*AuthResponse, error) {
	if !gu.VerifiedEmail {
		return nil, ErrUnverifiedEmail
	}
	email := normalizeEmail(gu.Email)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", gu.ID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			user.GoogleID = &gu.ID
			return tx.Model(&user).Update("google_id", gu.ID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			username := gu.Name
			if username == "" {
				username = strings.SplitN(email, "@", 2)[0]
			}
			user = models.User{
				Email:    email,
				Username: username,
				Role:     models.RoleSeller,
				GoogleID: &gu.ID,
			}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperr.Store("google sign-in", err)
	}

	return s.issue(&user)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Store("get user", err)
	}
	return &user, nil
}

// SetPlan records the plan picked after sign-up.
func (s *Service) SetPlan(ctx context.Context, session Session, plan models.Plan) (*models.User, error) {
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}
	return s.update(ctx, session, "plan", plan)
}

func (s *Service) UpdateUsername(ctx context.Context, session Session, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("Username is required")
	}
	return s.update(ctx, session, "username", username)
}

func (s *Service) update(ctx context.Context, session Session, column string, value interface{}) (*models.User, error) {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", session.UserID).
		Update(column, value)
	if result.Error != nil {
		return nil, apperr.Store("update user "+column, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserByID(ctx, session.UserID)
}

// ListUsers returns one page of accounts ordered by email, and the total,
// for the admin view.
func (s *Service) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Store("count users", err)
	}

	users := []models.User{}
	if err := db.Order("email ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, apperr.Store("list users", err)
	}
	return users, total, nil
}

func (s *Service) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}
