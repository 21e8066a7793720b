package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	"github.com/mhizterpaul/cartlink-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and the product rows
// they are placed against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.MerchantProduct, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, filters MerchantOrderFilters, params pagination.Params) (*MerchantOrderPage, error)
	ListByProductLink(ctx context.Context, merchantID, linkID uuid.UUID) ([]models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	CASStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	FindStalePaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindDeliveredPaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}
