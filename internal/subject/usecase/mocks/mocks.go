// Package mocks provides mock implementations for testing consumers of the
// subject use case.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/tokend/internal/subject/domain"
)

// MockSubjectUseCase is a mock implementation of SubjectUseCase for testing.
type MockSubjectUseCase struct {
	mock.Mock
}

// Create mocks the Create method of SubjectUseCase.
func (m *MockSubjectUseCase) Create(
	ctx context.Context,
	input *domain.CreateSubjectInput,
) (*domain.Subject, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}

// Authenticate mocks the Authenticate method of SubjectUseCase.
func (m *MockSubjectUseCase) Authenticate(
	ctx context.Context,
	username, password string,
) (*domain.Subject, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}

// GetByID mocks the GetByID method of SubjectUseCase.
func (m *MockSubjectUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subject), args.Error(1)
}
