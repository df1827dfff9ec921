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

// MySQLTokenRepository handles token record persistence for MySQL.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQLTokenRepository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{
		db: db,
	}
}

// Create inserts a new token record.
func (r *MySQLTokenRepository) Create(ctx context.Context, token *domain.Token) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	clientIDBytes, err := token.ClientID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	subjectIDValue, err := nullableUUIDBytes(token.SubjectID)
	if err != nil {
		return err
	}

	query := `INSERT INTO tokens (id, token_hash, kind, client_id, subject_id, scopes, issued_at, expires_at, revoked_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
		token.TokenHash,
		token.Kind,
		clientIDBytes,
		subjectIDValue,
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
func (r *MySQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Token, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, token_hash, kind, client_id, subject_id, scopes, issued_at, expires_at, revoked_at
			  FROM tokens WHERE token_hash = ?`

	token, err := scanMySQLToken(querier.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token by hash")
	}

	return token, nil
}

// Consume atomically marks a single-use token as spent. Exactly one caller
// wins the conditional UPDATE; everyone else gets ErrTokenConsumed.
func (r *MySQLTokenRepository) Consume(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `UPDATE tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, time.Now().UTC(), idBytes)
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
func (r *MySQLTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `UPDATE tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, time.Now().UTC(), idBytes); err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// IsRevoked reports whether a token has been revoked or consumed.
func (r *MySQLTokenRepository) IsRevoked(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `SELECT revoked_at IS NOT NULL FROM tokens WHERE id = ?`

	var revoked bool
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(&revoked)
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
func (r *MySQLTokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM tokens WHERE expires_at < ?`

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

// scanMySQLToken reads one token row, converting BINARY(16) ids back to UUIDs.
func scanMySQLToken(row rowScanner) (*domain.Token, error) {
	var token domain.Token
	var idBytes []byte
	var clientIDBytes []byte
	var subjectIDBytes []byte
	var revokedAt sql.NullTime

	err := row.Scan(
		&idBytes,
		&token.TokenHash,
		&token.Kind,
		&clientIDBytes,
		&subjectIDBytes,
		&token.Scopes,
		&token.IssuedAt,
		&token.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := token.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if err := token.ClientID.UnmarshalBinary(clientIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if subjectIDBytes != nil {
		var subjectID uuid.UUID
		if err := subjectID.UnmarshalBinary(subjectIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
		}
		token.SubjectID = &subjectID
	}
	if revokedAt.Valid {
		revoked := revokedAt.Time
		token.RevokedAt = &revoked
	}

	return &token, nil
}
