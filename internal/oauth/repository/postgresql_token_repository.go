package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/database"
	"github.com/allisson/tokend/internal/oauth/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// PostgreSQLTokenRepository handles token record persistence for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQLTokenRepository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{
		db: db,
	}
}

// Create inserts a new token record.
func (r *PostgreSQLTokenRepository) Create(ctx context.Context, token *domain.Token) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO tokens (id, token_hash, kind, client_id, subject_id, scopes, issued_at, expires_at, revoked_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.TokenHash,
		token.Kind,
		token.ClientID,
		token.SubjectID,
		token.Scopes,
		token.IssuedAt,
		token.ExpiresAt,
		token.RevokedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// GetByTokenHash retrieves a token record by its hash.
func (r *PostgreSQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Token, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, token_hash, kind, client_id, subject_id, scopes, issued_at, expires_at, revoked_at
			  FROM tokens WHERE token_hash = $1`

	token, err := scanToken(querier.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token by hash")
	}

	return token, nil
}

// Consume atomically marks a single-use token as spent. The conditional
// UPDATE guarantees exactly one caller wins when the same code or refresh
// token is presented concurrently; everyone else gets ErrTokenConsumed.
func (r *PostgreSQLTokenRepository) Consume(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to consume token")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check consumed rows")
	}
	if rows != 1 {
		return domain.ErrTokenConsumed
	}
	return nil
}

// Revoke marks a token as revoked. Unlike Consume, revoking an already
// revoked token is not an error.
func (r *PostgreSQLTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// IsRevoked reports whether a token has been revoked or consumed.
func (r *PostgreSQLTokenRepository) IsRevoked(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT revoked_at IS NOT NULL FROM tokens WHERE id = $1`

	var revoked bool
	err := querier.QueryRowContext(ctx, query, id).Scan(&revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrTokenNotFound
		}
		return false, apperrors.Wrap(err, "failed to check token revocation")
	}
	return revoked, nil
}

// DeleteExpired removes token records that expired before the cutoff.
// Returns the number of deleted rows.
func (r *PostgreSQLTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM tokens WHERE expires_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired tokens")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted tokens")
	}
	return rows, nil
}

// scanToken reads one token row.
func scanToken(row rowScanner) (*domain.Token, error) {
	var token domain.Token
	var subjectID uuid.NullUUID
	var revokedAt sql.NullTime

	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.Kind,
		&token.ClientID,
		&subjectID,
		&token.Scopes,
		&token.IssuedAt,
		&token.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	if subjectID.Valid {
		token.SubjectID = &subjectID.UUID
	}
	if revokedAt.Valid {
		revoked := revokedAt.Time
		token.RevokedAt = &revoked
	}

	return &token, nil
}
