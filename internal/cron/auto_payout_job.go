package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
	"github.com/mhizterpaul/cartlink-backend/pkg/metrics"
)

const defaultPayoutAfter = 14 * 24 * time.Hour

type deliveredOrderReader interface {
	FindDeliveredPaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderSettler interface {
	SettleDelivered(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// AutoPayoutJobParams configure the delivered-order payout sweep.
type AutoPayoutJobParams struct {
	Logger          *logger.Logger
	DeliveredReader deliveredOrderReader
	Orders          orderSettler
	Metrics         *metrics.CronJobMetrics
	PayoutAfter     time.Duration
}

// NewAutoPayoutJob builds the sweep that completes delivered paid orders and
// credits the merchant wallet. Settlement uses the same status swap as the
// immediate payout path, so re-running the sweep can never pay twice.
func NewAutoPayoutJob(params AutoPayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DeliveredReader == nil {
		return nil, fmt.Errorf("delivered order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order settler required")
	}
	payoutAfter := params.PayoutAfter
	if payoutAfter <= 0 {
		payoutAfter = defaultPayoutAfter
	}
	return &autoPayoutJob{
		logg:            params.Logger,
		deliveredReader: params.DeliveredReader,
		orders:          params.Orders,
		metrics:         params.Metrics,
		payoutAfter:     payoutAfter,
		now:             time.Now,
	}, nil
}

type autoPayoutJob struct {
	logg            *logger.Logger
	deliveredReader deliveredOrderReader
	orders          orderSettler
	metrics         *metrics.CronJobMetrics
	payoutAfter     time.Duration
	now             func() time.Time
}

func (j *autoPayoutJob) Name() string { return "auto-payout" }

func (j *autoPayoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.payoutAfter)
	delivered, err := j.deliveredReader.FindDeliveredPaidBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query delivered paid orders: %w", err)
	}

	credited := 0
	skipped := 0
	var errs []error
	for _, order := range delivered {
		ok, err := j.orders.SettleDelivered(ctx, order.ID)
		if err != nil {
			octx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(octx, "auto payout failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if ok {
			credited++
		} else {
			skipped++
		}
	}

	j.metrics.AddProcessed(j.Name(), credited)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(delivered),
		"credited":   credited,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "auto payout sweep complete")
	return multierr.Combine(errs...)
}
