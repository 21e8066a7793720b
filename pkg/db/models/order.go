package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
)

// Order is a customer purchase against a merchant product. TotalPrice is
// frozen at creation (quantity x unit price at that moment) and never
// recomputed. Paid is true only while a successful payment exists for the
// order. LastUpdated drives the settlement sweeps' cutoff queries.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID        uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	MerchantProductID uuid.UUID         `gorm:"column:merchant_product_id;type:uuid;not null;index"`
	ProductLinkID     *uuid.UUID        `gorm:"column:product_link_id;type:uuid;index"`
	Quantity          int               `gorm:"column:quantity;not null"`
	TotalPrice        decimal.Decimal   `gorm:"column:total_price;type:numeric(14,2);not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Paid              bool              `gorm:"column:paid;not null;default:false"`
	TrackingID        *string           `gorm:"column:tracking_id"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	LastUpdated       time.Time         `gorm:"column:last_updated;autoUpdateTime;index"`
}
