package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrAlreadyInCart     = apperr.Validation("Item is already in cart.")
	ErrCartEntryNotFound = apperr.NotFound("Cart item not found.")
)

// DuplicateToCart snapshots a visible item into the caller's cart. The
// counter starts at 1, or 0 when nothing is in stock.
func (s *Service) DuplicateToCart(ctx context.Context, session auth.Session, itemID uuid.UUID) (*models.CartEntry, error) {
	db := s.db.WithContext(ctx)

	var item models.InventoryItem
	err := db.First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, apperr.Store("load item", err)
	}

	ok, err := s.teams.CanView(ctx, session.Email, item.Email)
	if err != nil {
		return nil, err
	}
	if !ok {
		// hide existence from outsiders
		return nil, ErrItemNotFound
	}

	teamNum, err := s.teams.TeamNumFor(ctx, session.Email)
	if err != nil {
		return nil, err
	}

	counter := 1
	if item.Quantity == 0 {
		counter = 0
	}
	entry := &models.CartEntry{
		InventoryID: item.ID,
		UserPrev:    session.Email,
		Name:        item.Name,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Email:       item.Email,
		TeamNum:     teamNum,
		Counter:     counter,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.CartEntry{}).
			Where("user_prev = ? AND (inventory_id = ? OR name = ?)", session.Email, item.ID, item.Name).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyInCart
		}
		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyInCart
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("add to cart", err)
	}

	s.logger.Info("item carted", "item_id", item.ID, "viewer", session.Email, "owner", item.Email)
	return entry, nil
}

// ListCart returns the caller's cart, oldest first.
func (s *Service) ListCart(ctx context.Context, session auth.Session) ([]models.CartEntry, error) {
	entries := []models.CartEntry{}
	if err := s.db.WithContext(ctx).
		Where("user_prev = ?", session.Email).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, apperr.Store("list cart", err)
	}
	return entries, nil
}

func (s *Service) RemoveFromCart(ctx context.Context, session auth.Session, entryID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_prev = ?", entryID, session.Email).
		Delete(&models.CartEntry{})
	if result.Error != nil {
		return apperr.Store("remove from cart", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCartEntryNotFound
	}
	return nil
}

// CartCount backs the cart badge the client polls.
func (s *Service) CartCount(ctx context.Context, session auth.Session) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&models.CartEntry{}).
		Where("user_prev = ?", session.Email).
		Count(&n).Error; err != nil {
		return 0, apperr.Store("count cart", err)
	}
	return n, nil
}
