package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/internal/wallets"
	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type noopTracker struct{}

func (noopTracker) RecordConversion(ctx context.Context, linkID uuid.UUID) error { return nil }

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupOrdersTestDB(t)
	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0,
  payout_schedule TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec("DELETE FROM wallets").Error)
	return db
}

func newSettlementService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	walletsSvc, err := wallets.NewService(wallets.NewRepository(db))
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		gormTxRunner{db: db},
		inventory.NewGuard(),
		walletsSvc,
		noopTracker{},
		testLogger(),
	)
	require.NoError(t, err)
	return svc
}

func merchantBalance(t *testing.T, db *gorm.DB, merchantID uuid.UUID) decimal.Decimal {
	t.Helper()

	var wallet models.Wallet
	require.NoError(t, db.Where("merchant_id = ?", merchantID).First(&wallet).Error)
	return wallet.Balance
}

func TestSettlementCreditsWalletExactlyOnce(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newSettlementService(t, db)
	ctx := context.Background()

	merchantID := uuid.New()
	product := newProduct(t, db, merchantID, 10, 1500)
	require.NoError(t, db.Create(&models.Wallet{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Balance:    decimal.Zero,
	}).Error)

	order := newOrder(t, db, product, enums.OrderStatusDelivered, true, time.Now().UTC())

	credited, err := svc.SettleDelivered(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, credited)
	assert.True(t, merchantBalance(t, db, merchantID).Equal(order.TotalPrice))

	// The sweep running after the immediate payout loses the status swap.
	credited, err = svc.SettleDelivered(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, credited)
	assert.True(t, merchantBalance(t, db, merchantID).Equal(order.TotalPrice))

	found, err := NewRepository(db).FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, found.Status)
}

func TestSettlementMissingWalletRollsBack(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newSettlementService(t, db)
	ctx := context.Background()

	product := newProduct(t, db, uuid.New(), 10, 1500)
	order := newOrder(t, db, product, enums.OrderStatusDelivered, true, time.Now().UTC())

	_, err := svc.SettleDelivered(ctx, order.ID)
	require.Error(t, err)

	// The failed credit rolled the status swap back with it.
	found, findErr := NewRepository(db).FindByID(ctx, order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, enums.OrderStatusDelivered, found.Status)
}

func TestCreateReservesStockEndToEnd(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newSettlementService(t, db)
	ctx := context.Background()

	product := newProduct(t, db, uuid.New(), 3, 2000)

	order, err := svc.Create(ctx, CreateOrderInput{
		CustomerID:        uuid.New(),
		MerchantProductID: product.ID,
		Quantity:          2,
	})
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(4000)))

	var got models.MerchantProduct
	require.NoError(t, db.Where("id = ?", product.ID).First(&got).Error)
	assert.Equal(t, 1, got.Stock)

	// The second checkout asks for more than what is left and must not
	// touch the remaining stock.
	_, err = svc.Create(ctx, CreateOrderInput{
		CustomerID:        uuid.New(),
		MerchantProductID: product.ID,
		Quantity:          2,
	})
	require.Error(t, err)

	require.NoError(t, db.Where("id = ?", product.ID).First(&got).Error)
	assert.Equal(t, 1, got.Stock)
}
