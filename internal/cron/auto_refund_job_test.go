package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mhizterpaul/cartlink-backend/pkg/db/models"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

type fakeStaleReader struct {
	orders     []models.Order
	err        error
	lastCutoff time.Time
}

func (f *fakeStaleReader) FindStalePaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.lastCutoff = cutoff
	return f.orders, f.err
}

type fakeComplaints struct {
	disputed map[uuid.UUID]bool
	err      error
}

func (f *fakeComplaints) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.disputed[orderID], nil
}

type fakeRefunder struct {
	refunded []uuid.UUID
	failOn   map[uuid.UUID]error
}

func (f *fakeRefunder) RefundOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if err, ok := f.failOn[orderID]; ok {
		return false, err
	}
	f.refunded = append(f.refunded, orderID)
	return true, nil
}

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func staleOrders(n int) []models.Order {
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, models.Order{ID: uuid.New()})
	}
	return orders
}

func newRefundJob(t *testing.T, reader *fakeStaleReader, complaints *fakeComplaints, refunder *fakeRefunder) *autoRefundJob {
	t.Helper()

	if complaints == nil {
		complaints = &fakeComplaints{}
	}
	job, err := NewAutoRefundJob(AutoRefundJobParams{
		Logger:      cronTestLogger(),
		StaleReader: reader,
		Complaints:  complaints,
		Payments:    refunder,
	})
	if err != nil {
		t.Fatalf("NewAutoRefundJob: %v", err)
	}
	return job.(*autoRefundJob)
}

func TestAutoRefundJobName(t *testing.T) {
	job := newRefundJob(t, &fakeStaleReader{}, nil, &fakeRefunder{})
	if job.Name() != "auto-refund" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
}

func TestAutoRefundJobCutoff(t *testing.T) {
	reader := &fakeStaleReader{}
	job := newRefundJob(t, reader, nil, &fakeRefunder{})

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := fixed.Add(-14 * 24 * time.Hour)
	if !reader.lastCutoff.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", reader.lastCutoff, want)
	}
}

func TestAutoRefundJobRefundsStaleOrders(t *testing.T) {
	orders := staleOrders(3)
	reader := &fakeStaleReader{orders: orders}
	refunder := &fakeRefunder{}
	job := newRefundJob(t, reader, nil, refunder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(refunder.refunded) != 3 {
		t.Fatalf("expected 3 refunds, got %d", len(refunder.refunded))
	}
}

func TestAutoRefundJobSkipsDisputedOrders(t *testing.T) {
	orders := staleOrders(2)
	reader := &fakeStaleReader{orders: orders}
	complaints := &fakeComplaints{disputed: map[uuid.UUID]bool{orders[0].ID: true}}
	refunder := &fakeRefunder{}
	job := newRefundJob(t, reader, complaints, refunder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(refunder.refunded) != 1 {
		t.Fatalf("expected 1 refund, got %d", len(refunder.refunded))
	}
	if refunder.refunded[0] != orders[1].ID {
		t.Fatalf("refunded the disputed order")
	}
}

func TestAutoRefundJobContinuesPastFailures(t *testing.T) {
	orders := staleOrders(3)
	reader := &fakeStaleReader{orders: orders}
	boom := errors.New("gateway unavailable")
	refunder := &fakeRefunder{failOn: map[uuid.UUID]error{orders[1].ID: boom}}
	job := newRefundJob(t, reader, nil, refunder)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error from failed order")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if len(refunder.refunded) != 2 {
		t.Fatalf("failure must not abort the batch: got %d refunds", len(refunder.refunded))
	}
}

func TestAutoRefundJobQueryFailure(t *testing.T) {
	boom := errors.New("db down")
	reader := &fakeStaleReader{err: boom}
	refunder := &fakeRefunder{}
	job := newRefundJob(t, reader, nil, refunder)

	err := job.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected query error, got %v", err)
	}
	if len(refunder.refunded) != 0 {
		t.Fatal("no refunds expected when the query fails")
	}
}
