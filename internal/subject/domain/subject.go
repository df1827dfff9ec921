// Package domain defines the core subject domain entities and types.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Subject represents a resource owner (end user or service identity) that
// tokens can be issued on behalf of. Permissions and roles feed the scope
// granularity policies during authorization decisions.
type Subject struct {
	ID          uuid.UUID
	Username    string
	Password    string
	Permissions []string
	Roles       []string
	IsActive    bool
	CreatedAt   time.Time
}

// HasPermission reports whether the subject holds the given permission.
func (s *Subject) HasPermission(permission string) bool {
	return slices.Contains(s.Permissions, permission)
}

// HasRole reports whether the subject holds the given role.
func (s *Subject) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// CreateSubjectInput contains the input data for subject creation.
type CreateSubjectInput struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
}
