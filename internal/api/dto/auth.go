package dto

import (
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/validation"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email_addr"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"notblank,max=64"`
	// Admins are provisioned by scripts/seed.go, never through sign-up.
	Role     string `json:"role" validate:"omitempty,oneof=coadmin seller"`
}

func (r RegisterRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"notblank,max=64"`
}

func (r UpdateProfileRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type PlanRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter premium free"`
}

func (r PlanRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type AuthResponse struct {
	Token     string  `json:"token"`
	User      UserDTO `json:"user"`
	NeedsPlan bool    `json:"needs_plan"`
}

type UserDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Plan     string `json:"plan"`
	MaxUsers int    `json:"max_users,omitempty"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:       u.ID.String(),
		Email:    u.Email,
		Username: u.Username,
		Role:     string(u.Role),
		Plan:     string(u.Plan),
		MaxUsers: u.Plan.MaxUsers(),
	}
}
