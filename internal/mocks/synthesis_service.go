package mocks

import (
	"context"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/task"
	"github.com/stretchr/testify/mock"
)

// TestifyMockSynthesisService mocks the task engine operations used by the
// HTTP handlers, for use with testify/mock
type TestifyMockSynthesisService struct {
	mock.Mock
}

// Submit is a mock implementation of task.Engine.Submit
func (m *TestifyMockSynthesisService) Submit(
	ctx context.Context,
	owner string,
	req domain.SynthesisRequest,
) (string, error) {
	args := m.Called(ctx, owner, req)
	return args.String(0), args.Error(1)
}

// CheckOne is a mock implementation of task.Engine.CheckOne.
// The configured record is passed through scope, so ownership checks made
// by the caller are exercised.
func (m *TestifyMockSynthesisService) CheckOne(
	ctx context.Context,
	taskID string,
	scope task.Scope,
) (*domain.TaskRecord, error) {
	args := m.Called(ctx, taskID)
	rec, _ := args.Get(0).(*domain.TaskRecord)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if rec != nil && scope != nil && !scope(rec) {
		return nil, task.ErrNotOwned
	}
	return rec, nil
}

// List is a mock implementation of task.Engine.List
func (m *TestifyMockSynthesisService) List(ctx context.Context, owner string) ([]*domain.TaskRecord, error) {
	args := m.Called(ctx, owner)
	if recs, ok := args.Get(0).([]*domain.TaskRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete is a mock implementation of task.Engine.Delete
func (m *TestifyMockSynthesisService) Delete(ctx context.Context, owner, taskID string) error {
	args := m.Called(ctx, owner, taskID)
	return args.Error(0)
}
