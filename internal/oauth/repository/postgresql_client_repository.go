// Package repository provides data persistence implementations for OAuth
// clients and token records.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/database"
	"github.com/allisson/tokend/internal/oauth/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// PostgreSQLClientRepository handles client persistence for PostgreSQL.
type PostgreSQLClientRepository struct {
	db *sql.DB
}

// NewPostgreSQLClientRepository creates a new PostgreSQLClientRepository.
func NewPostgreSQLClientRepository(db *sql.DB) *PostgreSQLClientRepository {
	return &PostgreSQLClientRepository{
		db: db,
	}
}

// Create inserts a new client.
func (r *PostgreSQLClientRepository) Create(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	allowedScopesJSON, err := marshalAllowedScopes(client.AllowedScopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO clients (id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		client.ID,
		client.ClientID,
		client.Secret,
		client.Name,
		client.IsActive,
		allowedScopesJSON,
		client.DefaultSubjectID,
		client.RefreshTokenEnabled,
		client.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrClientExists
		}
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

// GetByClientID retrieves a client by its public client_id.
func (r *PostgreSQLClientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at
			  FROM clients WHERE client_id = $1`

	client, err := scanClient(querier.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client by client_id")
	}

	return client, nil
}

// GetByID retrieves a client by its row ID.
func (r *PostgreSQLClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at
			  FROM clients WHERE id = $1`

	client, err := scanClient(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client by id")
	}

	return client, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanClient reads one client row, decoding the JSON allowed_scopes column.
func scanClient(row rowScanner) (*domain.Client, error) {
	var client domain.Client
	var allowedScopesJSON []byte
	var defaultSubjectID uuid.NullUUID

	err := row.Scan(
		&client.ID,
		&client.ClientID,
		&client.Secret,
		&client.Name,
		&client.IsActive,
		&allowedScopesJSON,
		&defaultSubjectID,
		&client.RefreshTokenEnabled,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if defaultSubjectID.Valid {
		client.DefaultSubjectID = &defaultSubjectID.UUID
	}

	if err := json.Unmarshal(allowedScopesJSON, &client.AllowedScopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client allowed scopes")
	}

	return &client, nil
}

// marshalAllowedScopes encodes the allowed scope list, mapping nil to an
// empty JSON array so the column never holds SQL NULL.
func marshalAllowedScopes(allowedScopes []string) ([]byte, error) {
	if allowedScopes == nil {
		allowedScopes = []string{}
	}
	data, err := json.Marshal(allowedScopes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal client allowed scopes")
	}
	return data, nil
}
