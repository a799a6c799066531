package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-stockroom/internal/apperr"
	"github.com/hugh/go-stockroom/internal/auth"
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/hugh/go-stockroom/internal/inventory"
	"github.com/hugh/go-stockroom/internal/tasks"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoItemsSelected   = apperr.Validation("No items selected.")
	ErrMissingName       = apperr.Validation("Every selected item needs a name.")
	ErrInsufficientStock = apperr.Conflict("Not enough stock left for this order.")
	ErrInvalidDelta      = apperr.Validation("Counter can only change by one at a time.")
	ErrItemNotFound      = inventory.ErrItemNotFound
	ErrCartEntryNotFound = inventory.ErrCartEntryNotFound
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	queue  tasks.Enqueuer
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// WithQueue schedules an orphan cart sweep after each confirmed order.
func (s *Service) WithQueue(q tasks.Enqueuer) *Service {
	s.queue = q
	return s
}

// Line is one confirmed deduction.
type Line struct {
	InventoryID uuid.UUID       `json:"inventory_id"`
	Name        string          `json:"name"`
	Owner       string          `json:"owner"`
	Counter     int             `json:"counter"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Remaining   int             `json:"remaining"`
}

type Result struct {
	Total decimal.Decimal `json:"total"`
	Lines []Line          `json:"lines"`
}

// SetCounter moves a cart entry's stored counter by delta (±1), clamped to
// the entry's snapshot quantity.
func (s *Service) SetCounter(ctx context.Context, session auth.Session, entryID uuid.UUID, delta int) (*models.CartEntry, error) {
	if delta != 1 && delta != -1 {
		return nil, ErrInvalidDelta
	}

	db := s.db.WithContext(ctx)
	var entry models.CartEntry
	err := db.Where("id = ? AND user_prev = ?", entryID, session.Email).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartEntryNotFound
	}
	if err != nil {
		return nil, apperr.Store("load cart entry", err)
	}

	review := NewReview([]models.CartEntry{entry})
	review.AdjustCounter(0, delta)
	next := review.Entries[0].Counter
	if next == entry.Counter {
		return &entry, nil
	}

	if err := db.Model(&entry).Update("counter", next).Error; err != nil {
		return nil, apperr.Store("update counter", err)
	}
	entry.Counter = next
	return &entry, nil
}

// ConfirmOrder deducts every selected entry of the caller's cart from
// inventory, clears those entries and writes one DEDUCTION log per entry.
// overrides replaces stored counters by cart entry id before selection.
//
// The quantity writes, cart deletion and audit inserts share one
// transaction; any failure leaves the store untouched.
func (s *Service) ConfirmOrder(ctx context.Context, session auth.Session, overrides map[uuid.UUID]int) (*Result, error) {
	db := s.db.WithContext(ctx)

	var entries []models.CartEntry
	if err := db.Where("user_prev = ?", session.Email).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, apperr.Store("load cart", err)
	}

	review := NewReview(entries)
	for i, e := range review.Entries {
		if c, ok := overrides[e.ID]; ok {
			review.SetCounter(i, c)
		}
	}

	selected := review.Selected()
	if len(selected) == 0 {
		return nil, ErrNoItemsSelected
	}
	for _, e := range selected {
		if strings.TrimSpace(e.Name) == "" {
			return nil, ErrMissingName
		}
	}

	result := &Result{Total: review.Total()}
	err := db.Transaction(func(tx *gorm.DB) error {
		items, err := deductedItems(tx, selected)
		if err != nil {
			return err
		}

		// one statement, so the batch lands or fails as a whole
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&items).Error; err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(selected))
		logs := make([]models.AuditLog, len(selected))
		for i, e := range selected {
			ids[i] = e.ID
			itemID := e.InventoryID
			logs[i] = models.AuditLog{
				ItemID:   &itemID,
				Name:     e.Name,
				Email:    session.Email,
				Price:    e.Price,
				Quantity: e.Counter,
				Action:   models.ActionDeduction,
			}
		}

		if err := tx.Where("user_prev = ? AND id IN ?", session.Email, ids).
			Delete(&models.CartEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&logs).Error; err != nil {
			return err
		}

		remaining := make(map[uuid.UUID]int, len(items))
		for _, it := range items {
			remaining[it.ID] = it.Quantity
		}
		for _, e := range selected {
			result.Lines = append(result.Lines, Line{
				InventoryID: e.InventoryID,
				Name:        e.Name,
				Owner:       e.Email,
				Counter:     e.Counter,
				Price:       e.Price,
				Subtotal:    e.Subtotal(),
				Remaining:   remaining[e.InventoryID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Store("confirm order", err)
	}

	s.logger.Info("order confirmed",
		"viewer", session.Email,
		"lines", len(result.Lines),
		"total", result.Total.StringFixed(2),
	)
	s.enqueuePrune(ctx)
	return result, nil
}

// deductedItems locks the live rows behind the selected entries and returns
// them with the counters subtracted. The lock keeps concurrent confirms on the
// same item from both writing back a value computed from one read.
func deductedItems(tx *gorm.DB, selected []models.CartEntry) ([]models.InventoryItem, error) {
	ids := make([]uuid.UUID, 0, len(selected))
	for _, e := range selected {
		ids = append(ids, e.InventoryID)
	}

	var live []models.InventoryItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", ids).Find(&live).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.InventoryItem, len(live))
	for i := range live {
		byID[live[i].ID] = &live[i]
	}

	now := time.Now()
	for _, e := range selected {
		item, ok := byID[e.InventoryID]
		if !ok {
			return nil, ErrItemNotFound
		}
		item.Quantity -= e.Counter
		if item.Quantity < 0 {
			return nil, ErrInsufficientStock
		}
		item.UpdatedAt = now
	}
	return live, nil
}

func (s *Service) enqueuePrune(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.EnqueueContext(ctx, tasks.NewCartPruneTask()); err != nil {
		// Unique() rejects a second prune while one is queued
		s.logger.Debug("cart prune not enqueued", "error", err)
	}
}
