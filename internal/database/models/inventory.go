package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	Base
	Email    string          `gorm:"not null;index" json:"email"`
	Name     string          `gorm:"not null" json:"name"`
	Quantity int             `gorm:"not null;default:0" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Image    *string         `json:"image,omitempty"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// CartEntry snapshots an inventory item at the moment it was carted.
// UserPrev is the acting viewer; Email stays the owner of the source item.
type CartEntry struct {
	Base
	InventoryID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_user,priority:1" json:"inventory_id"`
	UserPrev    string          `gorm:"not null;uniqueIndex:idx_cart_item_user,priority:2;index" json:"user_prev"`
	Name        string          `gorm:"not null" json:"name"`
	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Email       string          `gorm:"not null" json:"email"`
	TeamNum     *int            `json:"team_num"`
	Counter     int             `gorm:"not null;default:0" json:"counter"`
}

func (CartEntry) TableName() string {
	return "cart_entries"
}

// Subtotal is counter × price.
func (c *CartEntry) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Counter)))
}
