package commands

import (
	"context"
	"fmt"
	"log/slog"

	oauthUseCase "github.com/allisson/tokend/internal/oauth/usecase"
)

// RunCleanExpiredTokens deletes token records past their expiry. Revoked
// rows are kept until expiry so replay attempts keep failing loudly.
// Intended to run periodically, e.g. from cron.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(
	ctx context.Context,
	grantUseCase oauthUseCase.GrantUseCase,
	logger *slog.Logger,
	format string,
	io IOTuple,
) error {
	logger.Info("cleaning expired tokens")

	count, err := grantUseCase.CleanExpiredTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired tokens: %w", err)
	}

	if format == "json" {
		outputJSON(map[string]any{"count": count}, io.Writer)
	} else {
		_, _ = fmt.Fprintf(io.Writer, "Deleted %d expired token(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}
