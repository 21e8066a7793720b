package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchantProduct is a merchant's sellable listing: current stock plus the
// unit price orders are quoted at. Stock is only mutated through the
// inventory guard so concurrent checkouts cannot oversell.
type MerchantProduct struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID uuid.UUID       `gorm:"column:merchant_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	Stock      int             `gorm:"column:stock;not null;default:0"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
