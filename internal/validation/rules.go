// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/tokend/internal/errors"
)

var (
	// scopeIDRegex matches scope identifiers such as "content:read" or "openid".
	scopeIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9:._\-]*$`)

	// clientIDRegex matches client identifiers (slug-like, no whitespace).
	clientIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty or whitespace-only.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "cannot be blank"),
)

// NoWhitespace validates that a string contains no whitespace characters.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsFunc(s, unicode.IsSpace)
	},
	validation.NewError("validation_no_whitespace", "cannot contain whitespace"),
)

// ScopeID validates a scope identifier (stable slug such as "content:read").
var ScopeID = validation.NewStringRuleWithError(
	func(s string) bool {
		return scopeIDRegex.MatchString(s)
	},
	validation.NewError(
		"validation_scope_id",
		"must be a lowercase slug (letters, digits, ':', '.', '-', '_')",
	),
)

// ClientID validates an OAuth client identifier.
var ClientID = validation.NewStringRuleWithError(
	func(s string) bool {
		return clientIDRegex.MatchString(s)
	},
	validation.NewError("validation_client_id", "must be a slug without whitespace"),
)

// PasswordStrength validates password meets minimum security requirements
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate checks if the password meets the configured requirements
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			"password is too short",
		)
	}

	if p.RequireUpper && !strings.ContainsFunc(s, unicode.IsUpper) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !strings.ContainsFunc(s, unicode.IsLower) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !strings.ContainsFunc(s, unicode.IsDigit) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}
