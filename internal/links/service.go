package links

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

// Tracker bumps product-link counters. Conversion tracking is best effort:
// callers invoke it after the order transaction commits and only log
// failures.
type Tracker interface {
	RecordClick(ctx context.Context, linkID uuid.UUID) error
	RecordConversion(ctx context.Context, linkID uuid.UUID) error
}

type tracker struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewTracker builds a link tracker bound to the provided DB.
func NewTracker(db *gorm.DB, logg *logger.Logger) Tracker {
	return &tracker{db: db, logg: logg}
}

func (t *tracker) RecordClick(ctx context.Context, linkID uuid.UUID) error {
	return t.bump(ctx, linkID, "click_count")
}

func (t *tracker) RecordConversion(ctx context.Context, linkID uuid.UUID) error {
	return t.bump(ctx, linkID, "order_count")
}

func (t *tracker) bump(ctx context.Context, linkID uuid.UUID, column string) error {
	if linkID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "link id required")
	}
	res := t.db.WithContext(ctx).Exec(
		"UPDATE product_links SET "+column+" = "+column+" + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		linkID,
	)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "bump link counter")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product link not found")
	}
	return nil
}
