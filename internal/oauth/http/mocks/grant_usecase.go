// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
)

// MockGrantUseCase is a mock implementation of GrantUseCase for testing.
type MockGrantUseCase struct {
	mock.Mock
}

// Token mocks the Token method of GrantUseCase.
func (m *MockGrantUseCase) Token(
	ctx context.Context,
	req *oauthDomain.TokenRequest,
) (*oauthDomain.TokenResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.TokenResult), args.Error(1)
}

// IssueAuthorizationCode mocks the IssueAuthorizationCode method of GrantUseCase.
func (m *MockGrantUseCase) IssueAuthorizationCode(
	ctx context.Context,
	input *oauthDomain.IssueAuthorizationCodeInput,
) (*oauthDomain.IssueAuthorizationCodeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.IssueAuthorizationCodeOutput), args.Error(1)
}

// CleanExpiredTokens mocks the CleanExpiredTokens method of GrantUseCase.
func (m *MockGrantUseCase) CleanExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
