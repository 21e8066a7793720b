package wallets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
)

// Service is the credit-only wallet surface used by order settlement. Debits
// and withdrawals live outside this service.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, merchantID uuid.UUID, amount decimal.Decimal) error
}

type service struct {
	repo Repository
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallets repository required")
	}
	return &service{repo: repo}, nil
}

// Credit runs inside the caller's settlement transaction so the wallet
// balance and the order status flip commit together.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, merchantID uuid.UUID, amount decimal.Decimal) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount cannot be negative")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet credit")
	}

	affected, err := s.repo.WithTx(tx).Credit(ctx, merchantID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found for merchant")
	}
	return nil
}
