package models

import (
	"time"

	"github.com/google/uuid"
)

// Complaint is filed by a customer against an order. An open complaint
// blocks the automatic refund sweep; resolution is a manual process handled
// outside this service.
type Complaint struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Status      string    `gorm:"column:status;not null;default:'open'"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
