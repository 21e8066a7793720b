package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductLink is a shareable link pointing at a merchant product. OrderCount
// is the conversion counter bumped (best effort) when an attributed order is
// placed.
type ProductLink struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantProductID uuid.UUID `gorm:"column:merchant_product_id;type:uuid;not null;index"`
	Code              string    `gorm:"column:code;not null;uniqueIndex"`
	ClickCount        int64     `gorm:"column:click_count;not null;default:0"`
	OrderCount        int64     `gorm:"column:order_count;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
