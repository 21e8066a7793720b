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

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.MerchantProduct, error) {
	var product models.MerchantProduct
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListByMerchant pages a merchant's orders newest first with a keyset cursor
// on (created_at, id).
func (r *repository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, filters MerchantOrderFilters, params pagination.Params) (*MerchantOrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN merchant_products mp ON mp.id = orders.merchant_product_id").
		Where("mp.merchant_id = ?", merchantID).
		Order("orders.created_at DESC, orders.id DESC")
	if filters.Status != nil {
		q = q.Where("orders.status = ?", *filters.Status)
	}
	if filters.From != nil {
		q = q.Where("orders.created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("orders.created_at < ?", *filters.To)
	}
	if cursor != nil {
		q = q.Where(
			"orders.created_at < ? OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var orders []models.Order
	if err := q.Limit(limit + 1).Find(&orders).Error; err != nil {
		return nil, err
	}

	page := &MerchantOrderPage{Orders: orders}
	if len(orders) > limit {
		page.Orders = orders[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (r *repository) ListByProductLink(ctx context.Context, merchantID, linkID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN merchant_products mp ON mp.id = orders.merchant_product_id").
		Where("mp.merchant_id = ?", merchantID).
		Where("orders.product_link_id = ?", linkID).
		Order("orders.created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.Update(ctx, orderID, map[string]any{"status": status})
}

// CASStatus flips status only when the row is still in the expected state.
// The settlement paths rely on the returned flag: a lost swap means another
// writer already settled the order.
func (r *repository) CASStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?,
			last_updated = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, to, orderID, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindStalePaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPaid).
		Where("paid = ?", true).
		Where("last_updated < ?", cutoff).
		Order("last_updated ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindDeliveredPaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusDelivered).
		Where("paid = ?", true).
		Where("last_updated < ?", cutoff).
		Order("last_updated ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
