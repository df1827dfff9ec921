// Package repository implements data persistence for the scope tree.
//
// Provides PostgreSQL and MySQL implementations with transaction support
// via database.GetTx(). Grant type settings and policy configuration are
// stored as JSON columns.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/allisson/tokend/internal/database"
	apperrors "github.com/allisson/tokend/internal/errors"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
)

// PostgreSQLScopeRepository implements Scope persistence for PostgreSQL.
type PostgreSQLScopeRepository struct {
	db *sql.DB
}

// Create inserts a new Scope into the PostgreSQL database.
func (p *PostgreSQLScopeRepository) Create(ctx context.Context, scope *scopeDomain.Scope) error {
	querier := database.GetTx(ctx, p.db)

	grantTypesJSON, err := json.Marshal(scope.GrantTypes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal scope grant types")
	}

	policyConfigJSON, err := marshalPolicyConfig(scope.PolicyConfig)
	if err != nil {
		return err
	}

	query := `INSERT INTO scopes (id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		scope.ID,
		scope.Name,
		scope.Description,
		scope.IsUmbrella,
		scope.ParentID,
		grantTypesJSON,
		scope.PolicyID,
		policyConfigJSON,
		scope.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create scope")
	}
	return nil
}

// Get retrieves a Scope by id from the PostgreSQL database.
func (p *PostgreSQLScopeRepository) Get(ctx context.Context, scopeID string) (*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes WHERE id = $1`

	scope, err := scanScope(querier.QueryRowContext(ctx, query, scopeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scopeDomain.ErrScopeNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get scope")
	}

	return scope, nil
}

// GetChildren retrieves the direct children of a scope from the
// PostgreSQL database.
func (p *PostgreSQLScopeRepository) GetChildren(
	ctx context.Context,
	parentID string,
) ([]*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes WHERE parent_id = $1 ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scope children")
	}
	defer func() { _ = rows.Close() }()

	return collectScopes(rows)
}

// List retrieves all scopes from the PostgreSQL database ordered by id.
func (p *PostgreSQLScopeRepository) List(ctx context.Context) ([]*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes ORDER BY id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scopes")
	}
	defer func() { _ = rows.Close() }()

	return collectScopes(rows)
}

// NewPostgreSQLScopeRepository creates a new PostgreSQL Scope repository.
func NewPostgreSQLScopeRepository(db *sql.DB) *PostgreSQLScopeRepository {
	return &PostgreSQLScopeRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanScope reads one scope row, decoding the JSON columns.
func scanScope(row rowScanner) (*scopeDomain.Scope, error) {
	var scope scopeDomain.Scope
	var parentID sql.NullString
	var policyID sql.NullString
	var grantTypesJSON []byte
	var policyConfigJSON []byte

	err := row.Scan(
		&scope.ID,
		&scope.Name,
		&scope.Description,
		&scope.IsUmbrella,
		&parentID,
		&grantTypesJSON,
		&policyID,
		&policyConfigJSON,
		&scope.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		scope.ParentID = &parentID.String
	}
	if policyID.Valid {
		scope.PolicyID = &policyID.String
	}

	if err := json.Unmarshal(grantTypesJSON, &scope.GrantTypes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal scope grant types")
	}
	if len(policyConfigJSON) > 0 {
		if err := json.Unmarshal(policyConfigJSON, &scope.PolicyConfig); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal scope policy config")
		}
	}

	return &scope, nil
}

// collectScopes drains rows into scope entities.
func collectScopes(rows *sql.Rows) ([]*scopeDomain.Scope, error) {
	var scopes []*scopeDomain.Scope
	for rows.Next() {
		scope, err := scanScope(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan scope")
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate scopes")
	}
	return scopes, nil
}

// marshalPolicyConfig encodes a policy config, mapping nil to SQL NULL.
func marshalPolicyConfig(config map[string]any) (any, error) {
	if config == nil {
		return nil, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal scope policy config")
	}
	return data, nil
}
