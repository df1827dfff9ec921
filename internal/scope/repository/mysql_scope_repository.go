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

// MySQLScopeRepository implements Scope persistence for MySQL.
type MySQLScopeRepository struct {
	db *sql.DB
}

// Create inserts a new Scope into the MySQL database.
func (m *MySQLScopeRepository) Create(ctx context.Context, scope *scopeDomain.Scope) error {
	querier := database.GetTx(ctx, m.db)

	grantTypesJSON, err := json.Marshal(scope.GrantTypes)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal scope grant types")
	}

	policyConfigJSON, err := marshalPolicyConfig(scope.PolicyConfig)
	if err != nil {
		return err
	}

	query := `INSERT INTO scopes (id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

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

// Get retrieves a Scope by id from the MySQL database.
func (m *MySQLScopeRepository) Get(ctx context.Context, scopeID string) (*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes WHERE id = ?`

	scope, err := scanScope(querier.QueryRowContext(ctx, query, scopeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scopeDomain.ErrScopeNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get scope")
	}

	return scope, nil
}

// GetChildren retrieves the direct children of a scope from the MySQL
// database.
func (m *MySQLScopeRepository) GetChildren(
	ctx context.Context,
	parentID string,
) ([]*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes WHERE parent_id = ? ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scope children")
	}
	defer func() { _ = rows.Close() }()

	return collectScopes(rows)
}

// List retrieves all scopes from the MySQL database ordered by id.
func (m *MySQLScopeRepository) List(ctx context.Context) ([]*scopeDomain.Scope, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, description, is_umbrella, parent_id, grant_types, policy_id, policy_config, created_at
			  FROM scopes ORDER BY id`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scopes")
	}
	defer func() { _ = rows.Close() }()

	return collectScopes(rows)
}

// NewMySQLScopeRepository creates a new MySQL Scope repository.
func NewMySQLScopeRepository(db *sql.DB) *MySQLScopeRepository {
	return &MySQLScopeRepository{db: db}
}
