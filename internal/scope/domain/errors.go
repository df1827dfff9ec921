package domain

import (
	"github.com/allisson/tokend/internal/errors"
)

// Scope authoring and resolution errors.
var (
	// ErrScopeNotFound indicates a scope with the specified id was not found.
	ErrScopeNotFound = errors.Wrap(errors.ErrNotFound, "scope not found")

	// ErrScopeExists indicates a scope with the specified id already exists.
	ErrScopeExists = errors.Wrap(errors.ErrConflict, "scope already exists")

	// ErrScopeShape indicates a scope that is neither an umbrella nor a
	// policy-backed leaf, or both at once.
	ErrScopeShape = errors.Wrap(
		errors.ErrInvalidInput,
		"scope must be either an umbrella or carry a granularity policy",
	)

	// ErrScopeCycle indicates a scope whose parent chain would contain itself.
	ErrScopeCycle = errors.Wrap(errors.ErrInvalidInput, "scope parent chain contains a cycle")

	// ErrScopeTreeDepth indicates the scope tree exceeded the defensive
	// recursion bound, which only happens when the acyclicity invariant
	// was violated in storage.
	ErrScopeTreeDepth = errors.Wrap(errors.ErrServerError, "scope tree depth exceeded")
)
