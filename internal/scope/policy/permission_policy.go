package policy

import (
	"context"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// PermissionPolicyID identifies the permission-based granularity policy.
const PermissionPolicyID = "permission"

// permissionPolicy covers exactly one named host permission, configured
// as {"permission": "view content"}.
type permissionPolicy struct{}

// PolicyID returns the policy identifier.
func (p *permissionPolicy) PolicyID() string {
	return PermissionPolicyID
}

// ValidateConfig requires a non-empty "permission" string.
func (p *permissionPolicy) ValidateConfig(config Config) error {
	if _, ok := configString(config, "permission"); !ok {
		return apperrors.Wrap(ErrInvalidPolicyConfig, "permission policy requires a non-empty \"permission\" entry")
	}
	return nil
}

// HasPermission reports true when the queried permission is the one the
// scope is configured with and the subject, when known, holds it.
func (p *permissionPolicy) HasPermission(
	ctx context.Context,
	subject Subject,
	config Config,
	permission string,
) (bool, error) {
	name, ok := configString(config, "permission")
	if !ok {
		return false, apperrors.Wrap(ErrInvalidPolicyConfig, "permission policy requires a non-empty \"permission\" entry")
	}

	if name != permission {
		return false, nil
	}
	if subject == nil {
		return true, nil
	}
	return subject.HasPermission(name), nil
}

// NewPermissionPolicy creates the permission-based granularity policy.
func NewPermissionPolicy() GranularityPolicy {
	return &permissionPolicy{}
}
