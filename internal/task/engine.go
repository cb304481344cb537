package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/events"
	"github.com/phrazzld/synth-api/internal/platform/logger"
	"github.com/phrazzld/synth-api/internal/redact"
	"github.com/phrazzld/synth-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// ExternalTaskClient submits synthesis jobs to the external task source and
// reports their current state. It never retries.
type ExternalTaskClient interface {
	Submit(ctx context.Context, req domain.SynthesisRequest) (string, error)

	// Query returns domain.ErrRemoteTaskNotFound when the external source no
	// longer knows the task.
	Query(ctx context.Context, taskID string) (*domain.TaskSnapshot, error)
}

// URLIssuer mints time-limited access URLs for artifact locations.
type URLIssuer interface {
	Issue(ctx context.Context, location string, ttl time.Duration) (string, error)

	// Locate recovers the artifact location from a URL produced by Issue.
	Locate(accessURL string) (string, error)
}

// BlobStore removes produced artifacts.
type BlobStore interface {
	// Delete returns domain.ErrBlobNotFound if nothing is stored at location.
	Delete(ctx context.Context, location string) error
}

// PendingIndex tracks the ids of records that are still in progress, so a
// sweep does not have to scan the whole record table. It is advisory only.
type PendingIndex interface {
	Add(ctx context.Context, taskID string) error
	Remove(ctx context.Context, taskIDs ...string) error
	Members(ctx context.Context) ([]string, error)
}

// Recorder receives reconciliation outcomes.
type Recorder interface {
	RecordSweep(ctx context.Context, elapsed time.Duration, failed int)

	// RecordUntracked counts external jobs that were started but could not
	// be recorded.
	RecordUntracked(ctx context.Context)
}

// EngineConfig holds the tunables of the Engine.
type EngineConfig struct {
	// URLTTL is the lifetime of minted artifact URLs
	URLTTL time.Duration

	// Concurrency bounds how many records a sweep resolves at once
	Concurrency int

	// RecordTimeout bounds the resolution of a single record during a sweep
	RecordTimeout time.Duration

	// FullScanEvery makes every Nth sweep scan the store and backfill the
	// pending index instead of trusting it
	FullScanEvery int
}

// DefaultEngineConfig returns an EngineConfig with reasonable defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		URLTTL:        time.Hour,
		Concurrency:   4,
		RecordTimeout: 15 * time.Second,
		FullScanEvery: 60,
	}
}

// Dependencies groups the collaborators of the Engine.
// Index, Emitter and Recorder are optional.
type Dependencies struct {
	Store    store.TaskRecordStore
	Client   ExternalTaskClient
	Issuer   URLIssuer
	Blobs    BlobStore
	Index    PendingIndex
	Emitter  events.EventEmitter
	Recorder Recorder
}

// Engine owns the task state machine: inProgress moves to completed or
// failed exactly once, guarded by a conditional update in the record store.
type Engine struct {
	store    store.TaskRecordStore
	client   ExternalTaskClient
	issuer   URLIssuer
	blobs    BlobStore
	index    PendingIndex
	emitter  events.EventEmitter
	recorder Recorder
	config   EngineConfig
	logger   *slog.Logger

	sweeps     atomic.Int64
	indexStale atomic.Bool
}

// NewEngine creates an Engine. Store, Client, Issuer and Blobs are required.
func NewEngine(deps Dependencies, config EngineConfig, log *slog.Logger) (*Engine, error) {
	if deps.Store == nil {
		return nil, domain.NewValidationError("store", "cannot be nil")
	}
	if deps.Client == nil {
		return nil, domain.NewValidationError("client", "cannot be nil")
	}
	if deps.Issuer == nil {
		return nil, domain.NewValidationError("issuer", "cannot be nil")
	}
	if deps.Blobs == nil {
		return nil, domain.NewValidationError("blobs", "cannot be nil")
	}

	defaults := DefaultEngineConfig()
	if config.URLTTL <= 0 {
		config.URLTTL = defaults.URLTTL
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.RecordTimeout <= 0 {
		config.RecordTimeout = defaults.RecordTimeout
	}
	if config.FullScanEvery <= 0 {
		config.FullScanEvery = defaults.FullScanEvery
	}

	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:    deps.Store,
		client:   deps.Client,
		issuer:   deps.Issuer,
		blobs:    deps.Blobs,
		index:    deps.Index,
		emitter:  deps.Emitter,
		recorder: deps.Recorder,
		config:   config,
		logger:   log.With(slog.String("component", "task_engine")),
	}, nil
}

// Submit starts an external synthesis job and records it as inProgress.
// If the external call fails no record is created and its error is returned
// unchanged.
func (e *Engine) Submit(ctx context.Context, owner string, req domain.SynthesisRequest) (string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if owner == "" {
		return "", domain.NewValidationError("owner", "cannot be empty")
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	taskID, err := e.client.Submit(ctx, req)
	if err != nil {
		log.Warn("external task submission failed",
			"owner", owner,
			"error", redact.Error(err))
		return "", err
	}

	rec, err := domain.NewTaskRecord(taskID, owner, req)
	if err != nil {
		return "", fmt.Errorf("build record for task %s: %w", taskID, err)
	}

	if err := e.store.Create(ctx, rec); err != nil {
		log.Error("external task started but not recorded",
			"task_id", taskID,
			"owner", owner,
			"error", redact.Error(err))
		if e.recorder != nil {
			e.recorder.RecordUntracked(ctx)
		}
		return "", &UntrackedTaskError{TaskID: taskID, Err: err}
	}

	if e.index != nil {
		if err := e.index.Add(ctx, taskID); err != nil {
			e.indexStale.Store(true)
			log.Warn("failed to add task to pending index, next sweep scans the store",
				"task_id", taskID,
				"error", redact.Error(err))
		}
	}

	e.emit(ctx, events.NewTaskTransitionEvent(taskID, owner, "", domain.TaskStatusInProgress, events.SourceSubmit))

	log.Info("task submitted", "task_id", taskID, "owner", owner)
	return taskID, nil
}

// CheckOne returns the record for taskID, resolving it against the external
// source first when it is still in progress. Terminal records are returned
// without any external call. A nil scope admits every record.
func (e *Engine) CheckOne(ctx context.Context, taskID string, scope Scope) (*domain.TaskRecord, error) {
	rec, err := e.load(ctx, taskID, scope)
	if err != nil {
		return nil, err
	}

	if rec.Status.IsTerminal() {
		return rec, nil
	}

	resolved, _, err := e.resolve(ctx, rec, events.SourceCheck)
	return resolved, err
}

// List returns every record owned by owner, in no particular order.
func (e *Engine) List(ctx context.Context, owner string) ([]*domain.TaskRecord, error) {
	recs, err := e.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %w", ErrTransient, err)
	}
	return recs, nil
}

// Delete removes the artifact of a task and then its record. An artifact
// that is already gone is tolerated.
func (e *Engine) Delete(ctx context.Context, owner, taskID string) error {
	log := logger.FromContextOrDefault(ctx, e.logger).With("task_id", taskID)

	rec, err := e.load(ctx, taskID, OwnedBy(owner))
	if err != nil {
		return err
	}

	if rec.ArtifactURL != "" {
		location, err := e.issuer.Locate(rec.ArtifactURL)
		if err != nil {
			return fmt.Errorf("locate artifact of task %s: %w", taskID, err)
		}

		err = e.blobs.Delete(ctx, location)
		switch {
		case errors.Is(err, domain.ErrBlobNotFound):
			log.Info("artifact already absent", "location", redact.URL(location))
		case err != nil:
			return fmt.Errorf("%w: delete artifact of task %s: %w", ErrTransient, taskID, err)
		}
	}

	if err := e.store.Delete(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("%w: delete task %s: %w", ErrTransient, taskID, err)
	}

	if e.index != nil && !rec.Status.IsTerminal() {
		e.unindex(ctx, taskID)
	}

	log.Info("task deleted", "owner", owner)
	return nil
}

// Sweep resolves every in-progress record and returns how many transitions
// were applied. Failures of single records are logged and counted; only a
// failure to list the pending records aborts the sweep.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	recs, err := e.pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list pending tasks: %w", ErrTransient, err)
	}
	return e.sweep(ctx, recs), nil
}

// Recover sweeps every in-progress record found by a full store scan and
// backfills the pending index with the records that stay in progress. It
// is run once when the process starts.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	recs, err := e.rescan(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list pending tasks: %w", ErrTransient, err)
	}

	if len(recs) > 0 {
		e.logger.Info("recovering in-progress tasks", "count", len(recs))
	}
	return e.sweep(ctx, recs), nil
}

func (e *Engine) sweep(ctx context.Context, recs []*domain.TaskRecord) int {
	start := time.Now()
	var applied, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.config.Concurrency)

	for _, rec := range recs {
		rec := rec
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			recCtx, cancel := context.WithTimeout(ctx, e.config.RecordTimeout)
			defer cancel()

			_, ok, err := e.resolve(recCtx, rec, events.SourceSweep)
			switch {
			case err != nil:
				failed.Add(1)
				e.logger.Warn("failed to resolve task",
					"task_id", rec.TaskID,
					"error", redact.Error(err))
			case ok:
				applied.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordSweep(ctx, elapsed, int(failed.Load()))
	}

	if applied.Load() > 0 || failed.Load() > 0 {
		e.logger.Info("sweep finished",
			"pending", len(recs),
			"applied", applied.Load(),
			"failed", failed.Load(),
			"duration_ms", elapsed.Milliseconds())
	}
	return int(applied.Load())
}

// pending returns the records a sweep has to resolve. With a pending index
// the ids come from the index and stale members are pruned. The store is
// scanned instead when there is no index, when it cannot be read, after a
// failed index write and on every FullScanEvery-th sweep; a scan backfills
// the index.
func (e *Engine) pending(ctx context.Context) ([]*domain.TaskRecord, error) {
	if e.index == nil {
		return e.store.ListInProgress(ctx)
	}

	n := e.sweeps.Add(1)
	if e.indexStale.Swap(false) || n%int64(e.config.FullScanEvery) == 0 {
		return e.rescan(ctx)
	}

	ids, err := e.index.Members(ctx)
	if err != nil {
		e.logger.Warn("pending index unavailable, scanning store", "error", redact.Error(err))
		return e.rescan(ctx)
	}

	recs := make([]*domain.TaskRecord, 0, len(ids))
	var stale []string
	for _, id := range ids {
		rec, err := e.store.Get(ctx, id)
		switch {
		case errors.Is(err, store.ErrTaskRecordNotFound):
			stale = append(stale, id)
		case err != nil:
			e.logger.Warn("failed to load pending task", "task_id", id, "error", redact.Error(err))
		case rec.Status.IsTerminal():
			stale = append(stale, id)
		default:
			recs = append(recs, rec)
		}
	}

	if len(stale) > 0 {
		e.unindex(ctx, stale...)
	}
	return recs, nil
}

// resolve queries the external source for an in-progress record and applies
// the terminal transition it reports. It returns the record as stored after
// the attempt and whether this call applied the transition.
func (e *Engine) resolve(
	ctx context.Context,
	rec *domain.TaskRecord,
	source string,
) (*domain.TaskRecord, bool, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With("task_id", rec.TaskID)

	var target domain.TaskStatus
	var artifactURL string

	snap, err := e.client.Query(ctx, rec.TaskID)
	switch {
	case errors.Is(err, domain.ErrRemoteTaskNotFound):
		log.Info("external task no longer exists, marking failed")
		target = domain.TaskStatusFailed
	case err != nil:
		return nil, false, fmt.Errorf("%w: query task %s: %w", ErrTransient, rec.TaskID, err)
	default:
		switch snap.Status {
		case domain.TaskStatusInProgress:
			return rec, false, nil
		case domain.TaskStatusCompleted:
			artifactURL, err = e.issuer.Issue(ctx, snap.OutputURI, e.config.URLTTL)
			if err != nil {
				return nil, false, fmt.Errorf("%w: issue URL for task %s: %w", ErrTransient, rec.TaskID, err)
			}
			target = domain.TaskStatusCompleted
		case domain.TaskStatusFailed:
			log.Info("external task failed", "reason", snap.Reason)
			target = domain.TaskStatusFailed
		default:
			return nil, false, fmt.Errorf("%w: task %s reported status %q", ErrTransient, rec.TaskID, snap.Status)
		}
	}

	applied, err := e.store.Resolve(ctx, rec.TaskID, target, artifactURL)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return nil, false, fmt.Errorf("%w: %s", ErrTaskNotFound, rec.TaskID)
		}
		return nil, false, fmt.Errorf("%w: resolve task %s: %w", ErrTransient, rec.TaskID, err)
	}

	if !applied {
		// Another resolver won the guarded update.
		log.Debug("task already resolved elsewhere")
		winner, err := e.load(ctx, rec.TaskID, nil)
		return winner, false, err
	}

	resolved := *rec
	resolved.Status = target
	resolved.ArtifactURL = artifactURL
	resolved.UpdatedAt = time.Now().UTC()

	if e.index != nil {
		e.unindex(ctx, rec.TaskID)
	}
	e.emit(ctx, events.NewTaskTransitionEvent(rec.TaskID, rec.Owner, rec.Status, target, source))

	log.Info("task resolved", "status", target, "source", source)
	return &resolved, true, nil
}

func (e *Engine) load(ctx context.Context, taskID string, scope Scope) (*domain.TaskRecord, error) {
	rec, err := e.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("%w: load task %s: %w", ErrTransient, taskID, err)
	}

	if scope != nil && !scope(rec) {
		return nil, fmt.Errorf("%w: %s", ErrNotOwned, taskID)
	}
	return rec, nil
}

// rescan lists in-progress records from the store and adds them to the
// pending index. Index write failures mark the index stale so the next
// sweep scans again.
func (e *Engine) rescan(ctx context.Context) ([]*domain.TaskRecord, error) {
	recs, err := e.store.ListInProgress(ctx)
	if err != nil {
		if e.index != nil {
			e.indexStale.Store(true)
		}
		return nil, err
	}
	if e.index == nil {
		return recs, nil
	}

	for _, rec := range recs {
		if err := e.index.Add(ctx, rec.TaskID); err != nil {
			e.indexStale.Store(true)
			e.logger.Warn("failed to backfill pending index",
				"task_id", rec.TaskID,
				"error", redact.Error(err))
			break
		}
	}
	return recs, nil
}

func (e *Engine) unindex(ctx context.Context, taskIDs ...string) {
	if err := e.index.Remove(ctx, taskIDs...); err != nil {
		e.logger.Warn("failed to remove tasks from pending index",
			"count", len(taskIDs),
			"error", redact.Error(err))
	}
}

func (e *Engine) emit(ctx context.Context, event *events.TaskTransitionEvent) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		e.logger.Warn("failed to emit transition event",
			"task_id", event.TaskID,
			"to", event.To,
			"error", redact.Error(err))
	}
}
