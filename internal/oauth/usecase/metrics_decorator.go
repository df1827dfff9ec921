package usecase

import (
	"context"
	"time"

	"github.com/allisson/tokend/internal/metrics"
	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
)

// grantUseCaseWithMetrics decorates GrantUseCase with metrics instrumentation.
type grantUseCaseWithMetrics struct {
	next    GrantUseCase
	metrics metrics.BusinessMetrics
}

// NewGrantUseCaseWithMetrics wraps a GrantUseCase with metrics recording.
func NewGrantUseCaseWithMetrics(useCase GrantUseCase, m metrics.BusinessMetrics) GrantUseCase {
	return &grantUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Token records metrics for grant operations, labeled per grant type.
func (g *grantUseCaseWithMetrics) Token(
	ctx context.Context,
	req *oauthDomain.TokenRequest,
) (*oauthDomain.TokenResult, error) {
	start := time.Now()
	result, err := g.next.Token(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
	}

	operation := "token_grant_" + req.GrantType
	g.metrics.RecordOperation(ctx, "oauth", operation, status)
	g.metrics.RecordDuration(ctx, "oauth", operation, time.Since(start), status)

	return result, err
}

// IssueAuthorizationCode records metrics for code issuance operations.
func (g *grantUseCaseWithMetrics) IssueAuthorizationCode(
	ctx context.Context,
	input *oauthDomain.IssueAuthorizationCodeInput,
) (*oauthDomain.IssueAuthorizationCodeOutput, error) {
	start := time.Now()
	output, err := g.next.IssueAuthorizationCode(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "oauth", "authorization_code_issue", status)
	g.metrics.RecordDuration(ctx, "oauth", "authorization_code_issue", time.Since(start), status)

	return output, err
}

// CleanExpiredTokens records metrics for token cleanup operations.
func (g *grantUseCaseWithMetrics) CleanExpiredTokens(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := g.next.CleanExpiredTokens(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "oauth", "token_cleanup", status)
	g.metrics.RecordDuration(ctx, "oauth", "token_cleanup", time.Since(start), status)

	return count, err
}
