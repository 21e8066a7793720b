package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/internal/inventory"
	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
	"github.com/mhizterpaul/cartlink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type linkTracker interface {
	RecordConversion(ctx context.Context, linkID uuid.UUID) error
}

type walletCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, merchantID uuid.UUID, amount decimal.Decimal) error
}

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingID string) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SettleDelivered(ctx context.Context, orderID uuid.UUID) (bool, error)
	ListMerchantOrders(ctx context.Context, merchantID uuid.UUID, filters MerchantOrderFilters, params pagination.Params) (*MerchantOrderPage, error)
	ListLinkOrders(ctx context.Context, merchantID, linkID uuid.UUID) ([]models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   inventory.Guard
	wallets walletCreditor
	links   linkTracker
	logg    *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, stock inventory.Guard, wallets walletCreditor, links linkTracker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory guard required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet creditor required")
	}
	if links == nil {
		return nil, fmt.Errorf("link tracker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		stock:   stock,
		wallets: wallets,
		links:   links,
		logg:    logg,
	}, nil
}

// Create places a PENDING order: the product row is loaded and stock is
// reserved inside one transaction, and the total is frozen from the unit
// price read there. Link conversion is recorded after commit, best effort.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.MerchantProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindProduct(ctx, input.MerchantProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "merchant product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant product")
		}

		if err := s.stock.Reserve(ctx, tx, product.ID, input.Quantity); err != nil {
			return err
		}

		order := &models.Order{
			ID:                uuid.New(),
			CustomerID:        input.CustomerID,
			MerchantProductID: product.ID,
			ProductLinkID:     input.ProductLinkID,
			Quantity:          input.Quantity,
			TotalPrice:        product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
			Status:            enums.OrderStatusPending,
			Paid:              false,
		}
		created, err = repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.ProductLinkID != nil {
		if err := s.links.RecordConversion(ctx, *input.ProductLinkID); err != nil {
			lctx := s.logg.WithOrderID(ctx, created.ID.String())
			s.logg.Warn(lctx, fmt.Sprintf("record link conversion: %v", err))
		}
	}
	return created, nil
}

// UpdateStatus moves an order forward. Merchant transitions are trusted,
// except that terminal orders stay terminal.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == status {
			updated = order
			return nil
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}

		if err := repo.UpdateStatus(ctx, order.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingID string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if trackingID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state")
		}

		if err := repo.Update(ctx, order.ID, map[string]any{"tracking_id": trackingID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking id")
		}
		return nil
	})
}

// MarkDelivered sets the order DELIVERED and then immediately attempts
// settlement. The settlement runs in its own transaction and losing the
// status swap there is not an error: the sweep or a concurrent caller
// already credited the merchant.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.UpdateStatus(ctx, orderID, enums.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}

	credited, err := s.SettleDelivered(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if credited {
		order.Status = enums.OrderStatusCompleted
	}
	return order, nil
}

// SettleDelivered completes a delivered paid order and credits the merchant
// wallet in one transaction. The DELIVERED to COMPLETED swap is the single
// guard against a double credit, so the wallet update only runs when the
// swap wins.
func (s *service) SettleDelivered(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	credited := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Paid {
			return nil
		}

		won, err := repo.CASStatus(ctx, order.ID, enums.OrderStatusDelivered, enums.OrderStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if !won {
			return nil
		}

		product, err := repo.FindProduct(ctx, order.MerchantProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant product")
		}
		if err := s.wallets.Credit(ctx, tx, product.MerchantID, order.TotalPrice); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

func (s *service) ListMerchantOrders(ctx context.Context, merchantID uuid.UUID, filters MerchantOrderFilters, params pagination.Params) (*MerchantOrderPage, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	page, err := s.repo.ListByMerchant(ctx, merchantID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list merchant orders")
	}
	return page, nil
}

func (s *service) ListLinkOrders(ctx context.Context, merchantID, linkID uuid.UUID) ([]models.Order, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if linkID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "link id required")
	}

	list, err := s.repo.ListByProductLink(ctx, merchantID, linkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list link orders")
	}
	return list, nil
}
