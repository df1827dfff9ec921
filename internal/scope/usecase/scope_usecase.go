package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/tokend/internal/errors"
	scopeDomain "github.com/allisson/tokend/internal/scope/domain"
	"github.com/allisson/tokend/internal/scope/policy"
	appvalidation "github.com/allisson/tokend/internal/validation"
)

// scopeUseCase implements ScopeUseCase for administrative scope authoring.
type scopeUseCase struct {
	scopeRepo ScopeRepository
	policies  *policy.Registry
}

// Create validates and stores a new scope.
//
// This method:
// 1. Validates the id slug and name
// 2. Enforces the shape invariant: exactly one of {umbrella, policy-backed leaf}
// 3. Rejects unknown grant types
// 4. Validates the policy id and config against the registry
// 5. Verifies the parent exists and the parent chain stays acyclic
func (u *scopeUseCase) Create(
	ctx context.Context,
	input *scopeDomain.CreateScopeInput,
) (*scopeDomain.Scope, error) {
	if err := u.validateInput(input); err != nil {
		return nil, err
	}

	if input.PolicyID != nil {
		pol, err := u.policies.Get(*input.PolicyID)
		if err != nil {
			return nil, err
		}
		if err := pol.ValidateConfig(input.PolicyConfig); err != nil {
			return nil, err
		}
	}

	if input.ParentID != nil {
		if err := u.validateParentChain(ctx, input.ID, *input.ParentID); err != nil {
			return nil, err
		}
	}

	if _, err := u.scopeRepo.Get(ctx, input.ID); err == nil {
		return nil, scopeDomain.ErrScopeExists
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	scope := &scopeDomain.Scope{
		ID:           input.ID,
		Name:         input.Name,
		Description:  input.Description,
		IsUmbrella:   input.IsUmbrella,
		ParentID:     input.ParentID,
		GrantTypes:   input.GrantTypes,
		PolicyID:     input.PolicyID,
		PolicyConfig: input.PolicyConfig,
		CreatedAt:    time.Now().UTC(),
	}

	if err := u.scopeRepo.Create(ctx, scope); err != nil {
		return nil, err
	}

	return scope, nil
}

// List retrieves all scopes ordered by id.
func (u *scopeUseCase) List(ctx context.Context) ([]*scopeDomain.Scope, error) {
	return u.scopeRepo.List(ctx)
}

// validateInput checks field-level rules and the shape invariant.
func (u *scopeUseCase) validateInput(input *scopeDomain.CreateScopeInput) error {
	err := validation.Errors{
		"id":   validation.Validate(input.ID, validation.Required, appvalidation.ScopeID),
		"name": validation.Validate(input.Name, validation.Required, appvalidation.NotBlank),
	}.Filter()
	if err != nil {
		return appvalidation.WrapValidationError(err)
	}

	// Exactly one of {umbrella, granularity policy} holds.
	if input.IsUmbrella == (input.PolicyID != nil) {
		return scopeDomain.ErrScopeShape
	}

	// Umbrella scopes carry no parent and no policy config.
	if input.IsUmbrella && input.ParentID != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "umbrella scope cannot have a parent")
	}
	if input.IsUmbrella && input.PolicyConfig != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "umbrella scope cannot carry a policy config")
	}

	for grantType := range input.GrantTypes {
		if !grantType.Valid() {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown grant type "+string(grantType))
		}
	}

	return nil
}

// validateParentChain verifies the parent exists and that walking its
// ancestors never reaches the new scope id (or exceeds the depth bound,
// which would mean the stored chain already cycles).
func (u *scopeUseCase) validateParentChain(ctx context.Context, scopeID, parentID string) error {
	current := parentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		if current == scopeID {
			return scopeDomain.ErrScopeCycle
		}

		parent, err := u.scopeRepo.Get(ctx, current)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) && depth == 0 {
				return apperrors.Wrap(apperrors.ErrInvalidInput, "parent scope does not exist")
			}
			return err
		}

		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}

	return scopeDomain.ErrScopeCycle
}

// NewScopeUseCase creates a ScopeUseCase with the provided dependencies.
func NewScopeUseCase(scopeRepo ScopeRepository, policies *policy.Registry) ScopeUseCase {
	return &scopeUseCase{
		scopeRepo: scopeRepo,
		policies:  policies,
	}
}
