package domain

import (
	"github.com/allisson/tokend/internal/errors"
)

// Domain-specific errors for subject operations.
var (
	// ErrSubjectNotFound indicates the requested subject does not exist.
	ErrSubjectNotFound = errors.Wrap(errors.ErrNotFound, "subject not found")

	// ErrSubjectExists indicates a subject with the same username already exists.
	ErrSubjectExists = errors.Wrap(errors.ErrConflict, "subject already exists")

	// ErrSubjectInactive indicates the subject exists but is disabled.
	ErrSubjectInactive = errors.Wrap(errors.ErrUnauthorized, "subject is inactive")

	// ErrInvalidCredentials indicates the username or password is wrong.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")
)
