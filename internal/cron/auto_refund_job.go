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

const defaultRefundAfter = 14 * 24 * time.Hour

type staleOrderReader interface {
	FindStalePaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type complaintChecker interface {
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type orderRefunder interface {
	RefundOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// AutoRefundJobParams configure the stale-order refund sweep.
type AutoRefundJobParams struct {
	Logger      *logger.Logger
	StaleReader staleOrderReader
	Complaints  complaintChecker
	Payments    orderRefunder
	Metrics     *metrics.CronJobMetrics
	RefundAfter time.Duration
}

// NewAutoRefundJob builds the sweep that refunds paid orders the merchant
// never moved forward within the grace period. Orders with a complaint on
// file are left for manual resolution.
func NewAutoRefundJob(params AutoRefundJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.StaleReader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Complaints == nil {
		return nil, fmt.Errorf("complaint checker required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment refunder required")
	}
	refundAfter := params.RefundAfter
	if refundAfter <= 0 {
		refundAfter = defaultRefundAfter
	}
	return &autoRefundJob{
		logg:        params.Logger,
		staleReader: params.StaleReader,
		complaints:  params.Complaints,
		payments:    params.Payments,
		metrics:     params.Metrics,
		refundAfter: refundAfter,
		now:         time.Now,
	}, nil
}

type autoRefundJob struct {
	logg        *logger.Logger
	staleReader staleOrderReader
	complaints  complaintChecker
	payments    orderRefunder
	metrics     *metrics.CronJobMetrics
	refundAfter time.Duration
	now         func() time.Time
}

func (j *autoRefundJob) Name() string { return "auto-refund" }

// Run processes each candidate independently: one order failing never stops
// the rest of the batch, the errors are combined at the end.
func (j *autoRefundJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.refundAfter)
	stale, err := j.staleReader.FindStalePaidBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale paid orders: %w", err)
	}

	refunded := 0
	skipped := 0
	var errs []error
	for _, order := range stale {
		ok, err := j.refundOrder(ctx, order)
		if err != nil {
			octx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(octx, "auto refund failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if ok {
			refunded++
		} else {
			skipped++
		}
	}

	j.metrics.AddProcessed(j.Name(), refunded)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"refunded":   refunded,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "auto refund sweep complete")
	return multierr.Combine(errs...)
}

func (j *autoRefundJob) refundOrder(ctx context.Context, order models.Order) (bool, error) {
	disputed, err := j.complaints.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("check complaints: %w", err)
	}
	if disputed {
		return false, nil
	}
	return j.payments.RefundOrder(ctx, order.ID)
}
