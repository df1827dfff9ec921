// Package usecase implements scope resolution and authoring business logic.
package usecase

import (
	"context"

	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	"github.com/allisson/tokend/internal/scope/policy"
)

// ScopeRepository defines persistence operations for scopes.
// Implementations must support transaction-aware operations via context propagation.
type ScopeRepository interface {
	// Create stores a new scope in the repository.
	Create(ctx context.Context, scope *scopeDomain.Scope) error

	// Get retrieves a scope by id. Returns ErrScopeNotFound if not found.
	Get(ctx context.Context, scopeID string) (*scopeDomain.Scope, error)

	// GetChildren retrieves the direct children of a scope.
	GetChildren(ctx context.Context, parentID string) ([]*scopeDomain.Scope, error)

	// List retrieves all scopes ordered by id.
	List(ctx context.Context) ([]*scopeDomain.Scope, error)
}

// ScopeAuthorizer resolves scope coverage questions during token
// issuance and resource access.
type ScopeAuthorizer interface {
	// HasPermission reports whether the scope covers the named host
	// permission for the subject, evaluating the scope's own granularity
	// policy and recursively ORing over its transitive children.
	HasPermission(
		ctx context.Context,
		subject policy.Subject,
		permission string,
		scope *scopeDomain.Scope,
	) (bool, error)

	// FinalizeScopes resolves the effective scope set for a grant.
	// An empty requested set falls back to the client's allowed scopes;
	// every finalized scope must exist and be enabled for the grant type.
	// Fails with ErrInvalidScope naming the offending scope id.
	FinalizeScopes(
		ctx context.Context,
		requested []string,
		grantType scopeDomain.GrantType,
		clientAllowed []string,
	) ([]*scopeDomain.Scope, error)
}

// ScopeUseCase defines administrative operations for authoring scopes.
type ScopeUseCase interface {
	// Create validates and stores a new scope. Validation covers the
	// umbrella/granularity shape invariant, grant type names, policy
	// registration and config, parent existence, and parent chain
	// acyclicity.
	Create(ctx context.Context, input *scopeDomain.CreateScopeInput) (*scopeDomain.Scope, error)

	// List retrieves all scopes ordered by id.
	List(ctx context.Context) ([]*scopeDomain.Scope, error)
}
