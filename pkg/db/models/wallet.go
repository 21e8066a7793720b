package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
)

// Wallet holds a merchant's balance. The only mutation path in this service
// is the settlement credit for a completed order, so the balance never goes
// negative.
type Wallet struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID     uuid.UUID             `gorm:"column:merchant_id;type:uuid;not null;uniqueIndex"`
	Balance        decimal.Decimal       `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	PayoutSchedule *enums.PayoutSchedule `gorm:"column:payout_schedule;type:text"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
