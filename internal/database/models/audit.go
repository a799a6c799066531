package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ActionDeduction = "DEDUCTION"

// AuditLog is append-only. ItemID is kept so item deletion can clear its history.
type AuditLog struct {
	Base
	ItemID   *uuid.UUID      `gorm:"type:uuid;index" json:"item_id,omitempty"`
	Name     string          `gorm:"not null" json:"name"`
	Email    string          `gorm:"not null;index" json:"email"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Quantity int             `gorm:"not null" json:"quantity"`
	Action   string          `gorm:"not null;index" json:"action"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Amount is price × quantity.
func (a *AuditLog) Amount() decimal.Decimal {
	return a.Price.Mul(decimal.NewFromInt(int64(a.Quantity)))
}
