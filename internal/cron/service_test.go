package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLock struct {
	acquired   bool
	acquireErr error
	acquires   int
	releases   int
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return l.acquired, l.acquireErr
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

type errorJob struct {
	name string
	runs *[]string
	err  error
}

func (j errorJob) Name() string { return j.name }

func (j errorJob) Run(ctx context.Context) error {
	*j.runs = append(*j.runs, j.name)
	return j.err
}

func newCronService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: registry,
		Lock:     lock,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycleRunsJobsInOrder(t *testing.T) {
	var runs []string
	registry := NewRegistry(
		namedJob{name: "auto-refund", runs: &runs},
		namedJob{name: "auto-payout", runs: &runs},
	)
	lock := &fakeLock{acquired: true}
	svc := newCronService(t, registry, lock)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(runs) != 2 || runs[0] != "auto-refund" || runs[1] != "auto-payout" {
		t.Fatalf("unexpected run order %v", runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	var runs []string
	registry := NewRegistry(namedJob{name: "auto-refund", runs: &runs})
	lock := &fakeLock{acquired: false}
	svc := newCronService(t, registry, lock)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("jobs must not run without the lock, ran %v", runs)
	}
	if lock.releases != 0 {
		t.Fatal("a lock that was never acquired must not be released")
	}
}

func TestRunCycleLockError(t *testing.T) {
	var runs []string
	registry := NewRegistry(namedJob{name: "auto-refund", runs: &runs})
	boom := errors.New("redis down")
	lock := &fakeLock{acquireErr: boom}
	svc := newCronService(t, registry, lock)

	if !errors.Is(svc.runCycle(context.Background()), boom) {
		t.Fatal("expected lock error to surface")
	}
	if len(runs) != 0 {
		t.Fatal("jobs must not run when the lock errors")
	}
}

func TestRunCycleJobFailureDoesNotStopCycle(t *testing.T) {
	var runs []string
	registry := NewRegistry(
		errorJob{name: "auto-refund", runs: &runs, err: errors.New("sweep failed")},
		namedJob{name: "auto-payout", runs: &runs},
	)
	lock := &fakeLock{acquired: true}
	svc := newCronService(t, registry, lock)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("payout must still run after refund failure, ran %v", runs)
	}
}

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (s *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "cartlink:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "cartlink:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire = (%v, %v)", ok, err)
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second worker must not acquire a held lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release = (%v, %v)", ok, err)
	}
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	holder, err := NewRedisLock(store, "cartlink:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	bystander, err := NewRedisLock(store, "cartlink:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatal("holder failed to acquire")
	}

	// A worker that never acquired must not free the lock.
	if err := bystander.Release(ctx); err != nil {
		t.Fatalf("bystander release: %v", err)
	}
	if _, ok := store.values["cartlink:test:lock"]; !ok {
		t.Fatal("lock was freed by a non-owner")
	}
}

func TestRedisLockReleaseExpired(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	lock, err := NewRedisLock(store, "cartlink:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}

	// Simulate TTL expiry: the key is gone before release.
	delete(store.values, "cartlink:test:lock")

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release after expiry must be a no-op: %v", err)
	}
}
