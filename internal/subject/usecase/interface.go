// Package usecase implements subject business logic for account creation
// and credential verification.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/subject/domain"
)

// SubjectRepository defines subject repository operations.
type SubjectRepository interface {
	Create(ctx context.Context, subject *domain.Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	GetByUsername(ctx context.Context, username string) (*domain.Subject, error)
}

// SubjectUseCase defines the interface for subject business logic operations.
type SubjectUseCase interface {
	// Create registers a new subject with a hashed password.
	Create(ctx context.Context, input *domain.CreateSubjectInput) (*domain.Subject, error)

	// Authenticate verifies a username and password pair and returns the
	// active subject on success.
	Authenticate(ctx context.Context, username, password string) (*domain.Subject, error)

	// GetByID retrieves a subject by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
}
