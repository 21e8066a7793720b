package wallets

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
)

// Repository defines persistence operations for merchant wallets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error)
	FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallets repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) (*models.Wallet, error) {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *repository) FindByMerchant(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Credit adds amount to the merchant's balance in a single statement so
// concurrent settlements never lose an update. Returns the affected row
// count; zero means the wallet does not exist.
func (r *repository) Credit(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallets
		SET balance = balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE merchant_id = ?
	`, amount, merchantID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
