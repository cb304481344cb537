package task

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/store"
)

// MockTaskRecordStore implements store.TaskRecordStore in memory for testing.
// Every method delegates to an overridable ...Fn field.
type MockTaskRecordStore struct {
	mutex   sync.RWMutex
	records map[string]*domain.TaskRecord

	CreateFn         func(ctx context.Context, rec *domain.TaskRecord) error
	GetFn            func(ctx context.Context, taskID string) (*domain.TaskRecord, error)
	ListByOwnerFn    func(ctx context.Context, owner string) ([]*domain.TaskRecord, error)
	ListInProgressFn func(ctx context.Context) ([]*domain.TaskRecord, error)
	ResolveFn        func(ctx context.Context, taskID string, status domain.TaskStatus, artifactURL string) (bool, error)
	DeleteFn         func(ctx context.Context, taskID string) error
}

var _ store.TaskRecordStore = (*MockTaskRecordStore)(nil)

// NewMockTaskRecordStore creates a new MockTaskRecordStore with default implementations
func NewMockTaskRecordStore() *MockTaskRecordStore {
	s := &MockTaskRecordStore{
		records: make(map[string]*domain.TaskRecord),
	}

	s.CreateFn = func(ctx context.Context, rec *domain.TaskRecord) error {
		if err := rec.Validate(); err != nil {
			return err
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		if _, exists := s.records[rec.TaskID]; exists {
			return store.ErrTaskRecordExists
		}
		s.records[rec.TaskID] = copyRecord(rec)
		return nil
	}

	s.GetFn = func(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()

		rec, exists := s.records[taskID]
		if !exists {
			return nil, store.ErrTaskRecordNotFound
		}
		return copyRecord(rec), nil
	}

	s.ListByOwnerFn = func(ctx context.Context, owner string) ([]*domain.TaskRecord, error) {
		return s.filter(func(rec *domain.TaskRecord) bool { return rec.Owner == owner }), nil
	}

	s.ListInProgressFn = func(ctx context.Context) ([]*domain.TaskRecord, error) {
		return s.filter(func(rec *domain.TaskRecord) bool {
			return rec.Status == domain.TaskStatusInProgress
		}), nil
	}

	s.ResolveFn = func(
		ctx context.Context,
		taskID string,
		status domain.TaskStatus,
		artifactURL string,
	) (bool, error) {
		if !status.IsTerminal() {
			return false, domain.ErrInvalidTaskStatus
		}
		if (status == domain.TaskStatusCompleted) != (artifactURL != "") {
			return false, domain.ErrArtifactURLMismatch
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		rec, exists := s.records[taskID]
		if !exists {
			return false, store.ErrTaskRecordNotFound
		}
		if rec.Status != domain.TaskStatusInProgress {
			return false, nil
		}
		rec.Status = status
		rec.ArtifactURL = artifactURL
		rec.UpdatedAt = time.Now().UTC()
		return true, nil
	}

	s.DeleteFn = func(ctx context.Context, taskID string) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		if _, exists := s.records[taskID]; !exists {
			return store.ErrTaskRecordNotFound
		}
		delete(s.records, taskID)
		return nil
	}

	return s
}

// Create inserts a record
func (s *MockTaskRecordStore) Create(ctx context.Context, rec *domain.TaskRecord) error {
	return s.CreateFn(ctx, rec)
}

// Get retrieves a record by task ID
func (s *MockTaskRecordStore) Get(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
	return s.GetFn(ctx, taskID)
}

// ListByOwner returns the records of owner
func (s *MockTaskRecordStore) ListByOwner(ctx context.Context, owner string) ([]*domain.TaskRecord, error) {
	return s.ListByOwnerFn(ctx, owner)
}

// ListInProgress returns the records that are still in progress
func (s *MockTaskRecordStore) ListInProgress(ctx context.Context) ([]*domain.TaskRecord, error) {
	return s.ListInProgressFn(ctx)
}

// Resolve applies a guarded terminal transition
func (s *MockTaskRecordStore) Resolve(
	ctx context.Context,
	taskID string,
	status domain.TaskStatus,
	artifactURL string,
) (bool, error) {
	return s.ResolveFn(ctx, taskID, status, artifactURL)
}

// Delete removes a record
func (s *MockTaskRecordStore) Delete(ctx context.Context, taskID string) error {
	return s.DeleteFn(ctx, taskID)
}

// WithTx returns the same store; the mock has no transactions
func (s *MockTaskRecordStore) WithTx(*sql.Tx) store.TaskRecordStore {
	return s
}

// Put stores rec directly, bypassing validation. Used to seed test state.
func (s *MockTaskRecordStore) Put(rec *domain.TaskRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[rec.TaskID] = copyRecord(rec)
}

// Len returns the number of stored records
func (s *MockTaskRecordStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.records)
}

func (s *MockTaskRecordStore) filter(keep func(rec *domain.TaskRecord) bool) []*domain.TaskRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*domain.TaskRecord, 0)
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

func copyRecord(rec *domain.TaskRecord) *domain.TaskRecord {
	c := *rec
	return &c
}
