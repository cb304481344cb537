package mocks

import (
	"context"
	"sync"
)

// MockVerifier implements auth.Verifier for testing
type MockVerifier struct {
	// VerifyFn allows test cases to mock the Verify behavior
	VerifyFn func(ctx context.Context, token string) (string, error)

	// Default values used when VerifyFn isn't defined
	Owner string
	Err   error

	mu     sync.Mutex
	Tokens []string
}

// Verify implements the auth.Verifier interface
func (m *MockVerifier) Verify(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	m.Tokens = append(m.Tokens, token)
	m.mu.Unlock()

	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token)
	}
	return m.Owner, m.Err
}

// Calls returns how many times Verify was called
func (m *MockVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tokens)
}
