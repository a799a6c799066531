// Package inventory owns sellers' stock and the per-viewer cart that stages
// deductions from it.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNameRequired     = apperr.Validation("Item name is required.")
	ErrNegativeQuantity = apperr.Validation("Quantity cannot be negative.")
	ErrNegativePrice    = apperr.Validation("Price cannot be negative.")
	ErrInvalidImage     = apperr.Validation("Image must be an http or https URL.")
	ErrQuantityBelowOne = apperr.Validation("Quantity cannot be less than 1.")
	ErrInvalidDelta     = apperr.Validation("Quantity can only change by one at a time.")
	ErrItemNotFound     = apperr.NotFound("Item not found.")
	ErrNotVisible       = apperr.Forbidden("You cannot view this seller's inventory.")
)

// Visibility answers who may see whose inventory. *team.Service satisfies it.
type Visibility interface {
	CanView(ctx context.Context, viewerEmail, ownerEmail string) (bool, error)
	TeamNumFor(ctx context.Context, email string) (*int, error)
}

type Service struct {
	db     *gorm.DB
	teams  Visibility
	logger *slog.Logger
}

func NewService(db *gorm.DB, teams Visibility, logger *slog.Logger) *Service {
	return &Service{db: db, teams: teams, logger: logger}
}

// ItemInput carries the editable fields of an item.
type ItemInput struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Image    *string
}

func (in *ItemInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if in.Price.IsNegative() {
		return ErrNegativePrice
	}
	in.Price = in.Price.Round(2)
	if in.Image != nil {
		img := strings.TrimSpace(*in.Image)
		if img == "" {
			in.Image = nil
		} else if !validation.IsValidImageURL(img) {
			return ErrInvalidImage
		} else {
			in.Image = &img
		}
	}
	return nil
}

// ListOwn returns the caller's items sorted by name.
func (s *Service) ListOwn(ctx context.Context, session auth.Session) ([]models.InventoryItem, error) {
	return s.listByOwner(ctx, session.Email)
}

// ListFor returns ownerEmail's items if the caller may see them.
func (s *Service) ListFor(ctx context.Context, session auth.Session, ownerEmail string) ([]models.InventoryItem, error) {
	owner := validation.NormalizeEmail(ownerEmail)
	if owner == "" || owner == session.Email {
		return s.ListOwn(ctx, session)
	}

	ok, err := s.teams.CanView(ctx, session.Email, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotVisible
	}
	return s.listByOwner(ctx, owner)
}

func (s *Service) listByOwner(ctx context.Context, owner string) ([]models.InventoryItem, error) {
	items := []models.InventoryItem{}
	if err := s.db.WithContext(ctx).Where("email = ?", owner).Find(&items).Error; err != nil {
		return nil, apperr.Store("list inventory", err)
	}
	SortByName(items)
	return items, nil
}

func (s *Service) Add(ctx context.Context, session auth.Session, in ItemInput) (*models.InventoryItem, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	item := &models.InventoryItem{
		Email:    session.Email,
		Name:     in.Name,
		Quantity: in.Quantity,
		Price:    in.Price,
		Image:    in.Image,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, apperr.Store("add item", err)
	}

	s.logger.Info("item added", "item_id", item.ID, "owner", session.Email)
	return item, nil
}

// Edit replaces name, quantity, price and image on one of the caller's items.
func (s *Service) Edit(ctx context.Context, session auth.Session, id uuid.UUID, in ItemInput) (*models.InventoryItem, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	item, err := s.ownedItem(s.db.WithContext(ctx), session, id)
	if err != nil {
		return nil, err
	}

	item.Name = in.Name
	item.Quantity = in.Quantity
	item.Price = in.Price
	item.Image = in.Image
	if err := s.db.WithContext(ctx).Model(item).Select("name", "quantity", "price", "image").Updates(item).Error; err != nil {
		return nil, apperr.Store("edit item", err)
	}

	s.logger.Info("item updated", "item_id", id, "owner", session.Email)
	return item, nil
}

// Delete removes the item together with the audit logs that reference it.
func (s *Service) Delete(ctx context.Context, session auth.Session, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedItem(tx, session, id); err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&models.AuditLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.InventoryItem{}, "id = ?", id).Error
	})
	if err != nil {
		return apperr.Store("delete item", err)
	}

	s.logger.Info("item deleted", "item_id", id, "owner", session.Email)
	return nil
}

// AdjustQuantity steps quantity by +1 or -1. It reads then writes without a
// lock, so two concurrent clicks can overwrite each other.
func (s *Service) AdjustQuantity(ctx context.Context, session auth.Session, id uuid.UUID, delta int) (*models.InventoryItem, error) {
	if delta != 1 && delta != -1 {
		return nil, ErrInvalidDelta
	}

	db := s.db.WithContext(ctx)
	item, err := s.ownedItem(db, session, id)
	if err != nil {
		return nil, err
	}

	next := item.Quantity + delta
	if delta < 0 && next < 1 {
		return nil, ErrQuantityBelowOne
	}

	if err := db.Model(item).Update("quantity", next).Error; err != nil {
		return nil, apperr.Store("adjust quantity", err)
	}
	item.Quantity = next
	return item, nil
}

func (s *Service) ownedItem(db *gorm.DB, session auth.Session, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := db.Where("id = ? AND email = ?", id, session.Email).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, apperr.Store("load item", err)
	}
	return &item, nil
}
