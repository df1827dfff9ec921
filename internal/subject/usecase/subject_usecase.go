package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/tokend/internal/subject/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
	appvalidation "github.com/allisson/tokend/internal/validation"
)

// subjectUseCase implements SubjectUseCase using Argon2id password hashing.
type subjectUseCase struct {
	subjectRepo SubjectRepository
	hasher      *pwdhash.PasswordHasher
}

// NewSubjectUseCase creates a new SubjectUseCase.
func NewSubjectUseCase(subjectRepo SubjectRepository) (SubjectUseCase, error) {
	// Interactive policy balances login latency against brute force cost.
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	return &subjectUseCase{
		subjectRepo: subjectRepo,
		hasher:      hasher,
	}, nil
}

// validateCreateInput validates the creation input using jellydator/validation.
func (u *subjectUseCase) validateCreateInput(input *domain.CreateSubjectInput) error {
	err := validation.Errors{
		"username": validation.Validate(input.Username,
			validation.Required.Error("username is required"),
			appvalidation.NotBlank,
			appvalidation.NoWhitespace,
			validation.Length(1, 255).Error("username must be between 1 and 255 characters"),
		),
		"password": validation.Validate(input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appvalidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
	}.Filter()
	return appvalidation.WrapValidationError(err)
}

// Create registers a new subject with a hashed password.
func (u *subjectUseCase) Create(
	ctx context.Context,
	input *domain.CreateSubjectInput,
) (*domain.Subject, error) {
	if err := u.validateCreateInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := u.hasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	subject := &domain.Subject{
		ID:          uuid.Must(uuid.NewV7()),
		Username:    strings.TrimSpace(input.Username),
		Password:    hashedPassword,
		Permissions: input.Permissions,
		Roles:       input.Roles,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := u.subjectRepo.Create(ctx, subject); err != nil {
		return nil, err
	}

	return subject, nil
}

// Authenticate verifies a username and password pair. Unknown usernames and
// wrong passwords return the same error so callers cannot probe for accounts.
func (u *subjectUseCase) Authenticate(
	ctx context.Context,
	username, password string,
) (*domain.Subject, error) {
	subject, err := u.subjectRepo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := u.hasher.Verify([]byte(password), subject.Password)
	if err != nil || !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if !subject.IsActive {
		return nil, domain.ErrSubjectInactive
	}

	return subject, nil
}

// GetByID retrieves a subject by ID.
func (u *subjectUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	return u.subjectRepo.GetByID(ctx, id)
}
