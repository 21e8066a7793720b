package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
)

// Payment is the single payment record for an order. TxRef is our reference
// and the idempotency key for gateway callbacks; GatewayRef is the gateway's
// reference, set on success.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method     enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status     enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency   enums.Currency      `gorm:"column:currency;type:text;not null;default:'NGN'"`
	TxRef      string              `gorm:"column:tx_ref;not null;uniqueIndex"`
	GatewayRef *string             `gorm:"column:gateway_ref;uniqueIndex"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	PaidAt     *time.Time          `gorm:"column:paid_at"`
	RefundedAt *time.Time          `gorm:"column:refunded_at"`
}
