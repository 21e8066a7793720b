package links

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

func setupLinksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS product_links (
  id TEXT PRIMARY KEY,
  merchant_product_id TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  click_count INTEGER NOT NULL DEFAULT 0,
  order_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM product_links").Error)
	return db
}

func seedLink(t *testing.T, db *gorm.DB) *models.ProductLink {
	t.Helper()

	link := &models.ProductLink{
		ID:                uuid.New(),
		MerchantProductID: uuid.New(),
		Code:              uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func newTracker(db *gorm.DB) Tracker {
	return NewTracker(db, logger.New(logger.Options{ServiceName: "links-test", Output: io.Discard}))
}

func TestTrackerRecordClick(t *testing.T) {
	db := setupLinksTestDB(t)
	tracker := newTracker(db)
	ctx := context.Background()

	link := seedLink(t, db)

	require.NoError(t, tracker.RecordClick(ctx, link.ID))
	require.NoError(t, tracker.RecordClick(ctx, link.ID))

	var got models.ProductLink
	require.NoError(t, db.Where("id = ?", link.ID).First(&got).Error)
	assert.Equal(t, int64(2), got.ClickCount)
	assert.Equal(t, int64(0), got.OrderCount)
}

func TestTrackerRecordConversion(t *testing.T) {
	db := setupLinksTestDB(t)
	tracker := newTracker(db)
	ctx := context.Background()

	link := seedLink(t, db)

	require.NoError(t, tracker.RecordConversion(ctx, link.ID))

	var got models.ProductLink
	require.NoError(t, db.Where("id = ?", link.ID).First(&got).Error)
	assert.Equal(t, int64(1), got.OrderCount)
	assert.Equal(t, int64(0), got.ClickCount)
}

func TestTrackerUnknownLink(t *testing.T) {
	db := setupLinksTestDB(t)
	tracker := newTracker(db)

	err := tracker.RecordConversion(context.Background(), uuid.New())
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestTrackerNilLinkID(t *testing.T) {
	db := setupLinksTestDB(t)
	tracker := newTracker(db)

	err := tracker.RecordClick(context.Background(), uuid.Nil)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
