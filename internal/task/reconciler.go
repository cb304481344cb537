package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/synth-api/internal/redact"
)

// Sweeper is the part of the Engine driven by the Reconciler.
type Sweeper interface {
	Recover(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (int, error)
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	// Interval is the time between two sweeps.
	// If zero, defaults to one second
	Interval time.Duration
}

// DefaultReconcilerConfig returns a ReconcilerConfig with reasonable defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval: time.Second,
	}
}

// Reconciler runs a recovery sweep at startup and then one sweep per interval
// until it is stopped. Sweeps never overlap within one Reconciler; ticks that
// fire while a sweep is running are dropped.
type Reconciler struct {
	sweeper    Sweeper
	config     ReconcilerConfig
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
	stopOnce   sync.Once
	logger     *slog.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(sweeper Sweeper, config ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reconciler{
		sweeper:    sweeper,
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With("component", "reconciler"),
	}
}

// Start launches the sweep loop. It returns ErrAlreadyStarted when called
// more than once.
func (r *Reconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	r.wg.Add(1)
	go r.loop()

	r.logger.Info("reconciler started", "interval", r.config.Interval.String())
	return nil
}

// Stop cancels a running sweep and waits for the loop to exit. It is safe to
// call more than once.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.wg.Wait()
		r.logger.Info("reconciler stopped")
	})
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	if _, err := r.sweeper.Recover(r.ctx); err != nil && r.ctx.Err() == nil {
		r.logger.Error("recovery sweep failed", "error", redact.Error(err))
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			if _, err := r.sweeper.Sweep(r.ctx); err != nil && r.ctx.Err() == nil {
				r.logger.Error("sweep failed", "error", redact.Error(err))
			}
		}
	}
}
