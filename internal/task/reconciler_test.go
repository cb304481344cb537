package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	recovers atomic.Int32
	sweeps   atomic.Int32
	active   atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	err      error
}

func (s *countingSweeper) Recover(ctx context.Context) (int, error) {
	s.recovers.Add(1)
	return 0, s.err
}

func (s *countingSweeper) Sweep(ctx context.Context) (int, error) {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)

	s.sweeps.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, s.err
}

func TestReconciler_StartRunsRecoveryThenSweeps(t *testing.T) {
	t.Parallel()

	sweeper := &countingSweeper{}
	r := NewReconciler(sweeper, ReconcilerConfig{Interval: 5 * time.Millisecond}, testLogger())

	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.recovers.Load() == 1 && sweeper.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestReconciler_StartTwice(t *testing.T) {
	t.Parallel()

	r := NewReconciler(&countingSweeper{}, DefaultReconcilerConfig(), testLogger())
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.ErrorIs(t, r.Start(), ErrAlreadyStarted)
}

func TestReconciler_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	sweeper := &countingSweeper{}
	r := NewReconciler(sweeper, ReconcilerConfig{Interval: 5 * time.Millisecond}, testLogger())
	require.NoError(t, r.Start())

	r.Stop()
	r.Stop()

	after := sweeper.sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, sweeper.sweeps.Load())
}

func TestReconciler_StopBeforeStart(t *testing.T) {
	t.Parallel()

	r := NewReconciler(&countingSweeper{}, DefaultReconcilerConfig(), testLogger())
	r.Stop()
}

func TestReconciler_StopCancelsLongSweep(t *testing.T) {
	t.Parallel()

	sweeper := &countingSweeper{delay: time.Hour}
	r := NewReconciler(sweeper, ReconcilerConfig{Interval: time.Millisecond}, testLogger())
	require.NoError(t, r.Start())

	require.Eventually(t, func() bool {
		return sweeper.sweeps.Load() == 1
	}, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a sweep was running")
	}
	assert.False(t, sweeper.overlap.Load())
}

func TestReconciler_KeepsRunningAfterSweepErrors(t *testing.T) {
	t.Parallel()

	sweeper := &countingSweeper{err: errors.New("database is closed")}
	r := NewReconciler(sweeper, ReconcilerConfig{Interval: 2 * time.Millisecond}, testLogger())
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.sweeps.Load() >= 3
	}, time.Second, 2*time.Millisecond)
}

func TestReconciler_DrivesEngine(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, false)
	seedRecord(t, te.store, "T1", "u1")
	te.client.set("T1", "completed", testLocation)

	r := NewReconciler(te.Engine, ReconcilerConfig{Interval: 5 * time.Millisecond}, testLogger())
	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		rec, err := te.store.Get(context.Background(), "T1")
		return err == nil && rec.Status.IsTerminal()
	}, time.Second, 5*time.Millisecond)
}
