// Package mocks provides centralized mock implementations for testing.
//
// Mocks come in two flavours: function-field mocks (MockVerifier) whose
// behaviour is set per test through ...Fn fields, and testify/mock mocks
// (TestifyMockSynthesisService) configured with expectations.
//
//	verifier := &mocks.MockVerifier{Owner: "u1"}
//	svc := new(mocks.TestifyMockSynthesisService)
//	svc.On("List", mock.Anything, "u1").Return([]*domain.TaskRecord{}, nil)
package mocks
