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

// MySQLClientRepository handles client persistence for MySQL.
type MySQLClientRepository struct {
	db *sql.DB
}

// NewMySQLClientRepository creates a new MySQLClientRepository.
func NewMySQLClientRepository(db *sql.DB) *MySQLClientRepository {
	return &MySQLClientRepository{
		db: db,
	}
}

// Create inserts a new client.
func (r *MySQLClientRepository) Create(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	allowedScopesJSON, err := marshalAllowedScopes(client.AllowedScopes)
	if err != nil {
		return err
	}

	// Convert UUIDs to bytes for MySQL BINARY(16)
	idBytes, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	defaultSubjectIDValue, err := nullableUUIDBytes(client.DefaultSubjectID)
	if err != nil {
		return err
	}

	query := `INSERT INTO clients (id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
		client.ClientID,
		client.Secret,
		client.Name,
		client.IsActive,
		allowedScopesJSON,
		defaultSubjectIDValue,
		client.RefreshTokenEnabled,
		client.CreatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrClientExists
		}
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

// GetByClientID retrieves a client by its public client_id.
func (r *MySQLClientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at
			  FROM clients WHERE client_id = ?`

	client, err := scanMySQLClient(querier.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client by client_id")
	}

	return client, nil
}

// GetByID retrieves a client by its row ID.
func (r *MySQLClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `SELECT id, client_id, secret, name, is_active, allowed_scopes, default_subject_id, refresh_token_enabled, created_at
			  FROM clients WHERE id = ?`

	client, err := scanMySQLClient(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client by id")
	}

	return client, nil
}

// scanMySQLClient reads one client row, converting BINARY(16) ids back to
// UUIDs and decoding the JSON allowed_scopes column.
func scanMySQLClient(row rowScanner) (*domain.Client, error) {
	var client domain.Client
	var idBytes []byte
	var defaultSubjectIDBytes []byte
	var allowedScopesJSON []byte

	err := row.Scan(
		&idBytes,
		&client.ClientID,
		&client.Secret,
		&client.Name,
		&client.IsActive,
		&allowedScopesJSON,
		&defaultSubjectIDBytes,
		&client.RefreshTokenEnabled,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := client.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if defaultSubjectIDBytes != nil {
		var subjectID uuid.UUID
		if err := subjectID.UnmarshalBinary(defaultSubjectIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
		}
		client.DefaultSubjectID = &subjectID
	}

	if err := json.Unmarshal(allowedScopesJSON, &client.AllowedScopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client allowed scopes")
	}

	return &client, nil
}

// nullableUUIDBytes converts an optional UUID to a driver value for a
// nullable BINARY(16) column.
func nullableUUIDBytes(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	bytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}
	return bytes, nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
