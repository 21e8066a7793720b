package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/internal/orders"
	"github.com/mhizterpaul/cartlink-backend/pkg/db"
	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InitiatePaymentInput carries the data required to open a payment for an
// order. TxRef is optional; one is generated when the caller omits it.
type InitiatePaymentInput struct {
	OrderID uuid.UUID
	Method  enums.PaymentMethod
	TxRef   string
}

// Service defines the payment ledger operations: opening a payment and
// absorbing the gateway's terminal callbacks.
type Service interface {
	Initiate(ctx context.Context, input InitiatePaymentInput) (*models.Payment, error)
	HandleGatewaySuccess(ctx context.Context, txRef, gatewayRef string) error
	HandleGatewayFailure(ctx context.Context, txRef string) error
	RefundOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	orders   orders.Repository
	stock    inventory.Guard
	tx       txRunner
	logg     *logger.Logger
	currency enums.Currency
}

// NewService builds a payment service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, stock inventory.Guard, tx txRunner, logg *logger.Logger, currency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid currency %q", currency)
	}
	return &service{
		repo:     repo,
		orders:   ordersRepo,
		stock:    stock,
		tx:       tx,
		logg:     logg,
		currency: currency,
	}, nil
}

// Initiate opens a PENDING payment for an unpaid order. The amount is copied
// from the order's frozen total. A duplicate tx ref or a second payment for
// the same order surfaces as an idempotency error via the unique indexes.
func (s *service) Initiate(ctx context.Context, input InitiatePaymentInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	txRef := input.TxRef
	if txRef == "" {
		txRef = fmt.Sprintf("cl-%s", uuid.New())
	}

	var created *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable in its current state")
		}

		payment := &models.Payment{
			ID:       uuid.New(),
			OrderID:  order.ID,
			Method:   input.Method,
			Status:   enums.PaymentStatusPending,
			Amount:   order.TotalPrice,
			Currency: s.currency,
			TxRef:    txRef,
		}
		created, err = s.repo.WithTx(tx).Create(ctx, payment)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeIdempotency, "payment already initiated").
					WithDetails(map[string]any{"tx_ref": txRef})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// HandleGatewaySuccess marks the payment SUCCESSFUL and the order PAID in
// one transaction. Unknown tx refs are logged and absorbed, and a repeated
// callback for an already settled payment is a no-op.
func (s *service) HandleGatewaySuccess(ctx context.Context, txRef, gatewayRef string) error {
	if txRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tx ref required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.repo.WithTx(tx).FindByTxRef(ctx, txRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Warn(s.logg.WithTxRef(ctx, txRef), "success callback for unknown tx ref")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			if payment.Status != enums.PaymentStatusSuccessful {
				s.logg.Warn(s.logg.WithTxRef(ctx, txRef), fmt.Sprintf("success callback ignored in state %s", payment.Status))
			}
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":  enums.PaymentStatusSuccessful,
			"paid_at": now,
		}
		if gatewayRef != "" {
			updates["gateway_ref"] = gatewayRef
		}
		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment successful")
		}

		err = s.orders.WithTx(tx).Update(ctx, payment.OrderID, map[string]any{
			"status": enums.OrderStatusPaid,
			"paid":   true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		return nil
	})
}

// HandleGatewayFailure marks the payment FAILED, cancels the order, and
// returns the reserved stock. Same idempotency rules as the success path.
func (s *service) HandleGatewayFailure(ctx context.Context, txRef string) error {
	if txRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tx ref required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.repo.WithTx(tx).FindByTxRef(ctx, txRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logg.Warn(s.logg.WithTxRef(ctx, txRef), "failure callback for unknown tx ref")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return nil
		}

		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, map[string]any{
			"status": enums.PaymentStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}

		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		cancelled, err := ordersRepo.CASStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if cancelled {
			if err := s.stock.Restock(ctx, tx, order.MerchantProductID, order.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// RefundOrder flips a stale PAID order to REFUNDED together with its
// payment. The status swap guards against concurrent sweeps: a lost swap
// returns false with no writes.
func (s *service) RefundOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	refunded := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.orders.WithTx(tx).CASStatus(ctx, orderID, enums.OrderStatusPaid, enums.OrderStatusRefunded)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		if !won {
			return nil
		}

		payment, err := s.repo.WithTx(tx).FindByOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment for refund")
		}
		if payment.Status != enums.PaymentStatusSuccessful {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not refundable").
				WithDetails(map[string]any{"status": payment.Status.String()})
		}

		now := time.Now().UTC()
		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, map[string]any{
			"status":      enums.PaymentStatusRefunded,
			"refunded_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
		}
		refunded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return refunded, nil
}
