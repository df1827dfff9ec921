// Package mocks provides mock implementations for testing consumers of the
// scope use case.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
)

// MockScopeUseCase is a mock implementation of ScopeUseCase for testing.
type MockScopeUseCase struct {
	mock.Mock
}

// Create mocks the Create method of ScopeUseCase.
func (m *MockScopeUseCase) Create(
	ctx context.Context,
	input *scopeDomain.CreateScopeInput,
) (*scopeDomain.Scope, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scopeDomain.Scope), args.Error(1)
}

// List mocks the List method of ScopeUseCase.
func (m *MockScopeUseCase) List(ctx context.Context) ([]*scopeDomain.Scope, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*scopeDomain.Scope), args.Error(1)
}
