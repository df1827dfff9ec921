package usecase

import (
	"context"
	"fmt"
	"slices"

	apperrors "github.com/allisson/tokend/internal/errors"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	"github.com/allisson/tokend/internal/scope/policy"
)

// maxTreeDepth bounds the recursion over the scope tree. The tree is
// acyclic by write-time validation; the bound only catches storage
// corruption.
const maxTreeDepth = 32

// scopeAuthorizer implements ScopeAuthorizer against a scope repository
// and a granularity policy registry.
type scopeAuthorizer struct {
	scopeRepo ScopeRepository
	policies  *policy.Registry
}

// HasPermission reports whether the scope covers the permission for the
// subject: a leaf scope is checked against its own granularity policy,
// and regardless of umbrella-ness all direct children are recursively
// ORed in.
func (a *scopeAuthorizer) HasPermission(
	ctx context.Context,
	subject policy.Subject,
	permission string,
	scope *scopeDomain.Scope,
) (bool, error) {
	return a.hasPermission(ctx, subject, permission, scope, 0)
}

func (a *scopeAuthorizer) hasPermission(
	ctx context.Context,
	subject policy.Subject,
	permission string,
	scope *scopeDomain.Scope,
	depth int,
) (bool, error) {
	if depth >= maxTreeDepth {
		return false, scopeDomain.ErrScopeTreeDepth
	}

	if !scope.IsUmbrella && scope.PolicyID != nil {
		pol, err := a.policies.Get(*scope.PolicyID)
		if err != nil {
			return false, err
		}

		ok, err := pol.HasPermission(ctx, subject, scope.PolicyConfig, permission)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	children, err := a.scopeRepo.GetChildren(ctx, scope.ID)
	if err != nil {
		return false, err
	}

	for _, child := range children {
		ok, err := a.hasPermission(ctx, subject, permission, child, depth+1)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// FinalizeScopes resolves the effective scope set for a grant:
//
//  1. For client_credentials grants of a restricted client, every
//     requested scope must be one the client is allowed.
//  2. An empty request falls back to the client's allowed scopes, i.e.
//     omitting the scope parameter grants everything the client is
//     entitled to by default.
//  3. Every finalized scope must exist and be enabled for the grant type.
//
// The result may legitimately be empty for anonymous or public flows.
func (a *scopeAuthorizer) FinalizeScopes(
	ctx context.Context,
	requested []string,
	grantType scopeDomain.GrantType,
	clientAllowed []string,
) ([]*scopeDomain.Scope, error) {
	if grantType == scopeDomain.GrantClientCredentials && len(clientAllowed) > 0 {
		for _, id := range requested {
			if !slices.Contains(clientAllowed, id) {
				return nil, apperrors.Wrap(
					apperrors.ErrInvalidScope,
					fmt.Sprintf("scope %q is not allowed for this client", id),
				)
			}
		}
	}

	finalized := requested
	if len(finalized) == 0 {
		finalized = clientAllowed
	}

	scopes := make([]*scopeDomain.Scope, 0, len(finalized))
	for _, id := range finalized {
		scope, err := a.scopeRepo.Get(ctx, id)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Wrap(
					apperrors.ErrInvalidScope,
					fmt.Sprintf("scope %q does not exist", id),
				)
			}
			return nil, err
		}

		if !scope.EnabledFor(grantType) {
			return nil, apperrors.Wrap(
				apperrors.ErrInvalidScope,
				fmt.Sprintf("scope %q is not enabled for grant type %q", id, grantType),
			)
		}

		scopes = append(scopes, scope)
	}

	return scopes, nil
}

// NewScopeAuthorizer creates a ScopeAuthorizer with the provided dependencies.
func NewScopeAuthorizer(scopeRepo ScopeRepository, policies *policy.Registry) ScopeAuthorizer {
	return &scopeAuthorizer{
		scopeRepo: scopeRepo,
		policies:  policies,
	}
}
