package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

func (s *stubPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if s.purgeFunc != nil {
		return s.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_NilPurgerIsNoop(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(nil, time.Minute, 24*time.Hour, nil)
	if err := gc.collect(context.Background()); err != nil {
		t.Errorf("collect with nil purger: %v", err)
	}
}

func TestGarbageCollector_PassesRetentionToPurger(t *testing.T) {
	t.Parallel()

	var gotRetention atomic.Int64
	purger := &stubPurger{
		purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
			gotRetention.Store(int64(retention))
			return 3, nil
		},
	}

	gc := NewGarbageCollector(purger, time.Minute, 24*time.Hour, nil)
	if err := gc.collect(context.Background()); err != nil {
		t.Errorf("collect: %v", err)
	}
	if got := time.Duration(gotRetention.Load()); got != 24*time.Hour {
		t.Errorf("Expected retention 24h passed through, got %v", got)
	}
}

func TestGarbageCollector_SurfacesPurgerError(t *testing.T) {
	t.Parallel()

	purger := &stubPurger{
		purgeFunc: func(context.Context, time.Duration) (int, error) {
			return 0, errors.New("purge failed")
		},
	}

	gc := NewGarbageCollector(purger, time.Minute, time.Hour, nil)
	if err := gc.collect(context.Background()); err == nil {
		t.Error("Expected error from collect")
	}
}

func TestGarbageCollector_StartStopsOnCancel(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(&stubPurger{}, 24*time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gc.Start(ctx); err == nil {
		t.Error("Expected context cancellation error from Start")
	}
}
