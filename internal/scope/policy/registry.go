package policy

import (
	"sync"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// Registry is an open lookup table of granularity policies keyed by
// policy id. The built-in permission and role policies are always
// present; hosts register extensions before the server starts serving.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]GranularityPolicy
}

// NewRegistry creates a registry preloaded with the built-in policies.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]GranularityPolicy)}
	r.Register(NewPermissionPolicy())
	r.Register(NewRolePolicy())
	return r
}

// Register adds or replaces a policy under its own id.
func (r *Registry) Register(p GranularityPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.PolicyID()] = p
}

// Get returns the policy registered under policyID. Returns
// ErrPolicyNotRegistered for unknown ids.
func (r *Registry) Get(policyID string) (GranularityPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[policyID]
	if !ok {
		return nil, apperrors.Wrap(ErrPolicyNotRegistered, policyID)
	}
	return p, nil
}
