package policy

import (
	"context"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// RolePolicyID identifies the role-based granularity policy.
const RolePolicyID = "role"

// rolePolicy covers any permission for subjects holding a named role,
// configured as {"role": "editor"}.
type rolePolicy struct{}

// PolicyID returns the policy identifier.
func (p *rolePolicy) PolicyID() string {
	return RolePolicyID
}

// ValidateConfig requires a non-empty "role" string.
func (p *rolePolicy) ValidateConfig(config Config) error {
	if _, ok := configString(config, "role"); !ok {
		return apperrors.Wrap(ErrInvalidPolicyConfig, "role policy requires a non-empty \"role\" entry")
	}
	return nil
}

// HasPermission reports true when the subject is a member of the
// configured role. Role membership decides coverage regardless of the
// individual permission name; anonymous subjects never match.
func (p *rolePolicy) HasPermission(
	ctx context.Context,
	subject Subject,
	config Config,
	permission string,
) (bool, error) {
	role, ok := configString(config, "role")
	if !ok {
		return false, apperrors.Wrap(ErrInvalidPolicyConfig, "role policy requires a non-empty \"role\" entry")
	}

	if subject == nil {
		return false, nil
	}
	return subject.HasRole(role), nil
}

// NewRolePolicy creates the role-based granularity policy.
func NewRolePolicy() GranularityPolicy {
	return &rolePolicy{}
}
