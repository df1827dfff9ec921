// Package policy implements pluggable granularity policies for leaf
// scopes.
//
// A granularity policy decides whether a scope covers a given host
// permission for a subject. Two policies are built in (permission and
// role based); hosts may register additional policies by id.
package policy

import (
	"context"

	"github.com/allisson/tokend/internal/errors"
)

// Subject is the read-only view of the host's permission model consumed
// by granularity policies.
type Subject interface {
	// HasPermission reports whether the subject holds the named host permission.
	HasPermission(permission string) bool

	// HasRole reports whether the subject is a member of the named role.
	HasRole(role string) bool
}

// Config holds policy-specific configuration attached to a leaf scope.
type Config map[string]any

// GranularityPolicy is the strategy deciding whether a scope covers a
// host permission. Implementations are stateless; all per-scope data
// comes in through the config.
type GranularityPolicy interface {
	// PolicyID returns the stable identifier the policy is registered under.
	PolicyID() string

	// ValidateConfig checks a scope's policy configuration against the
	// policy's own schema. Called at scope authoring time.
	ValidateConfig(config Config) error

	// HasPermission reports whether a scope configured with config covers
	// the named permission for the subject.
	HasPermission(ctx context.Context, subject Subject, config Config, permission string) (bool, error)
}

// Policy registry errors.
var (
	// ErrPolicyNotRegistered indicates a scope references an unknown policy id.
	ErrPolicyNotRegistered = errors.Wrap(errors.ErrInvalidInput, "granularity policy not registered")

	// ErrInvalidPolicyConfig indicates a policy configuration that fails
	// the policy's own schema.
	ErrInvalidPolicyConfig = errors.Wrap(errors.ErrInvalidInput, "invalid granularity policy config")
)

// configString extracts a required non-empty string value from a policy
// config.
func configString(config Config, key string) (string, bool) {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
