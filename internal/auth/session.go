package auth

import (
	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/database/models"
)

// Session is the authenticated identity every workflow call receives.
// Email is the tenant key for nearly every query.
type Session struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

func (s Session) Valid() bool {
	return s.UserID != uuid.Nil && s.Email != ""
}

// SessionFromClaims rebuilds the session carried by a validated token.
func SessionFromClaims(c *Claims) Session {
	return Session{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   models.Role(c.Role),
	}
}

// SessionFor builds the session for a freshly loaded user.
func SessionFor(u *models.User) Session {
	return Session{UserID: u.ID, Email: u.Email, Role: u.Role}
}
