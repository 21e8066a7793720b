package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/internal/orders"
	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS merchant_products (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  merchant_product_id TEXT NOT NULL,
  product_link_id TEXT,
  quantity INTEGER NOT NULL,
  total_price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  paid INTEGER NOT NULL DEFAULT 0,
  tracking_id TEXT,
  created_at DATETIME,
  last_updated DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  tx_ref TEXT NOT NULL UNIQUE,
  gateway_ref TEXT UNIQUE,
  paid_at DATETIME,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		"DELETE FROM merchant_products",
		"DELETE FROM orders",
		"DELETE FROM payments",
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newPaymentService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		inventory.NewGuard(),
		gormTxRunner{db: db},
		logg,
		enums.CurrencyNGN,
	)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, paid bool) *models.Order {
	t.Helper()

	product := &models.MerchantProduct{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		Name:       "enamel mug",
		Stock:      5,
		UnitPrice:  decimal.NewFromInt(1200),
	}
	require.NoError(t, db.Create(product).Error)

	order := &models.Order{
		ID:                uuid.New(),
		CustomerID:        uuid.New(),
		MerchantProductID: product.ID,
		Quantity:          2,
		TotalPrice:        decimal.NewFromInt(2400),
		Status:            status,
		Paid:              paid,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func currentStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()

	var stock int
	require.NoError(t, db.Raw("SELECT stock FROM merchant_products WHERE id = ?", productID).Scan(&stock).Error)
	return stock
}

func TestInitiateOpensPendingPayment(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)

	payment, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.True(t, payment.Amount.Equal(order.TotalPrice))
	assert.Equal(t, enums.CurrencyNGN, payment.Currency)
	assert.NotEmpty(t, payment.TxRef)
}

func TestInitiateDuplicateIsIdempotencyError(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)

	_, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		TxRef:   "cl-dup-1",
	})
	require.NoError(t, err)

	_, err = svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		TxRef:   "cl-dup-2",
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeIdempotency, coded.Code())
}

func TestInitiateRejectsNonPendingOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPaid,
		enums.OrderStatusCancelled,
		enums.OrderStatusCompleted,
	} {
		order := seedOrder(t, db, status, status == enums.OrderStatusPaid)
		_, err := svc.Initiate(ctx, InitiatePaymentInput{
			OrderID: order.ID,
			Method:  enums.PaymentMethodCard,
		})
		coded := pkgerrors.As(err)
		require.NotNil(t, coded, "status %s", status)
		assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code(), "status %s", status)
	}
}

func TestInitiateUnknownOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)

	_, err := svc.Initiate(context.Background(), InitiatePaymentInput{
		OrderID: uuid.New(),
		Method:  enums.PaymentMethodCard,
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestGatewaySuccessMarksOrderPaid(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)
	payment, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodBankTransfer,
		TxRef:   "cl-success-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleGatewaySuccess(ctx, payment.TxRef, "gw-123"))

	var got models.Payment
	require.NoError(t, db.Where("id = ?", payment.ID).First(&got).Error)
	assert.Equal(t, enums.PaymentStatusSuccessful, got.Status)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.GatewayRef)
	assert.Equal(t, "gw-123", *got.GatewayRef)

	var gotOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&gotOrder).Error)
	assert.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
	assert.True(t, gotOrder.Paid)
}

func TestGatewaySuccessRepeatedIsNoop(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)
	payment, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		TxRef:   "cl-repeat-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleGatewaySuccess(ctx, payment.TxRef, "gw-1"))
	require.NoError(t, svc.HandleGatewaySuccess(ctx, payment.TxRef, "gw-other"))

	var got models.Payment
	require.NoError(t, db.Where("id = ?", payment.ID).First(&got).Error)
	require.NotNil(t, got.GatewayRef)
	assert.Equal(t, "gw-1", *got.GatewayRef, "second callback must not overwrite")
}

func TestGatewaySuccessUnknownTxRefAbsorbed(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)

	require.NoError(t, svc.HandleGatewaySuccess(context.Background(), "cl-missing", "gw-1"))
	require.NoError(t, svc.HandleGatewayFailure(context.Background(), "cl-missing"))
}

func TestGatewayFailureCancelsAndRestocks(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)
	payment, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodUSSD,
		TxRef:   "cl-fail-1",
	})
	require.NoError(t, err)

	before := currentStock(t, db, order.MerchantProductID)

	require.NoError(t, svc.HandleGatewayFailure(ctx, payment.TxRef))

	var got models.Payment
	require.NoError(t, db.Where("id = ?", payment.ID).First(&got).Error)
	assert.Equal(t, enums.PaymentStatusFailed, got.Status)

	var gotOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&gotOrder).Error)
	assert.Equal(t, enums.OrderStatusCancelled, gotOrder.Status)

	assert.Equal(t, before+order.Quantity, currentStock(t, db, order.MerchantProductID))

	// A replayed failure callback must not restock a second time.
	require.NoError(t, svc.HandleGatewayFailure(ctx, payment.TxRef))
	assert.Equal(t, before+order.Quantity, currentStock(t, db, order.MerchantProductID))
}

func TestRefundOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPending, false)
	payment, err := svc.Initiate(ctx, InitiatePaymentInput{
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		TxRef:   "cl-refund-1",
	})
	require.NoError(t, err)
	require.NoError(t, svc.HandleGatewaySuccess(ctx, payment.TxRef, "gw-r1"))

	refunded, err := svc.RefundOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, refunded)

	var got models.Payment
	require.NoError(t, db.Where("id = ?", payment.ID).First(&got).Error)
	assert.Equal(t, enums.PaymentStatusRefunded, got.Status)
	require.NotNil(t, got.RefundedAt)

	var gotOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&gotOrder).Error)
	assert.Equal(t, enums.OrderStatusRefunded, gotOrder.Status)

	// The second sweep loses the status swap and leaves everything alone.
	refunded, err = svc.RefundOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, refunded)
}

func TestRefundOrderNotPaid(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)

	order := seedOrder(t, db, enums.OrderStatusShipped, true)

	refunded, err := svc.RefundOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, refunded, "only orders stuck in paid are auto refundable")
}

func TestRefundOrderWithoutSuccessfulPaymentRollsBack(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newPaymentService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusPaid, true)
	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		Method:   enums.PaymentMethodCard,
		Status:   enums.PaymentStatusPending,
		Amount:   order.TotalPrice,
		Currency: enums.CurrencyNGN,
		TxRef:    "cl-broken-1",
	}
	require.NoError(t, db.Create(payment).Error)

	_, err := svc.RefundOrder(ctx, order.ID)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeStateConflict, coded.Code())

	// The rolled back transaction leaves the order in paid.
	var gotOrder models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&gotOrder).Error)
	assert.Equal(t, enums.OrderStatusPaid, gotOrder.Status)
}
