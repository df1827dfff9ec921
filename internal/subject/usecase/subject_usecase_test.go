package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tokend/internal/subject/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// fakeSubjectRepo is an in-memory SubjectRepository for usecase tests.
type fakeSubjectRepo struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]*domain.Subject
}

func newFakeSubjectRepo() *fakeSubjectRepo {
	return &fakeSubjectRepo{subjects: make(map[uuid.UUID]*domain.Subject)}
}

func (f *fakeSubjectRepo) Create(_ context.Context, subject *domain.Subject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.subjects {
		if existing.Username == subject.Username {
			return domain.ErrSubjectExists
		}
	}
	f.subjects[subject.ID] = subject
	return nil
}

func (f *fakeSubjectRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subject, ok := f.subjects[id]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return subject, nil
}

func (f *fakeSubjectRepo) GetByUsername(_ context.Context, username string) (*domain.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, subject := range f.subjects {
		if subject.Username == username {
			return subject, nil
		}
	}
	return nil, domain.ErrSubjectNotFound
}

func TestSubjectUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := newFakeSubjectRepo()
		uc, err := NewSubjectUseCase(repo)
		require.NoError(t, err)

		subject, err := uc.Create(ctx, &domain.CreateSubjectInput{
			Username:    "alice",
			Password:    "Str0ng!Password",
			Permissions: []string{"view content"},
			Roles:       []string{"editor"},
		})
		require.NoError(t, err)

		assert.Equal(t, "alice", subject.Username)
		assert.NotEqual(t, "Str0ng!Password", subject.Password)
		assert.True(t, subject.IsActive)
		assert.Equal(t, []string{"view content"}, subject.Permissions)
		assert.Equal(t, []string{"editor"}, subject.Roles)
		assert.False(t, subject.CreatedAt.IsZero())

		stored, err := repo.GetByID(ctx, subject.ID)
		require.NoError(t, err)
		assert.Equal(t, subject, stored)
	})

	t.Run("Error_MissingUsername", func(t *testing.T) {
		uc, err := NewSubjectUseCase(newFakeSubjectRepo())
		require.NoError(t, err)

		_, err = uc.Create(ctx, &domain.CreateSubjectInput{
			Password: "Str0ng!Password",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_UsernameWithWhitespace", func(t *testing.T) {
		uc, err := NewSubjectUseCase(newFakeSubjectRepo())
		require.NoError(t, err)

		_, err = uc.Create(ctx, &domain.CreateSubjectInput{
			Username: "alice smith",
			Password: "Str0ng!Password",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_WeakPassword", func(t *testing.T) {
		uc, err := NewSubjectUseCase(newFakeSubjectRepo())
		require.NoError(t, err)

		_, err = uc.Create(ctx, &domain.CreateSubjectInput{
			Username: "alice",
			Password: "alllowercase1!",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_DuplicateUsername", func(t *testing.T) {
		repo := newFakeSubjectRepo()
		uc, err := NewSubjectUseCase(repo)
		require.NoError(t, err)

		_, err = uc.Create(ctx, &domain.CreateSubjectInput{
			Username: "alice",
			Password: "Str0ng!Password",
		})
		require.NoError(t, err)

		_, err = uc.Create(ctx, &domain.CreateSubjectInput{
			Username: "alice",
			Password: "Str0ng!Password",
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestSubjectUseCase_Authenticate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (SubjectUseCase, *domain.Subject) {
		t.Helper()
		repo := newFakeSubjectRepo()
		uc, err := NewSubjectUseCase(repo)
		require.NoError(t, err)

		subject, err := uc.Create(ctx, &domain.CreateSubjectInput{
			Username:    "alice",
			Password:    "Str0ng!Password",
			Permissions: []string{"view content"},
		})
		require.NoError(t, err)
		return uc, subject
	}

	t.Run("Success", func(t *testing.T) {
		uc, created := setup(t)

		subject, err := uc.Authenticate(ctx, "alice", "Str0ng!Password")
		require.NoError(t, err)
		assert.Equal(t, created.ID, subject.ID)
		assert.True(t, subject.HasPermission("view content"))
	})

	t.Run("Error_WrongPassword", func(t *testing.T) {
		uc, _ := setup(t)

		_, err := uc.Authenticate(ctx, "alice", "wrong-password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error_UnknownUsername", func(t *testing.T) {
		uc, _ := setup(t)

		_, err := uc.Authenticate(ctx, "nobody", "Str0ng!Password")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("Error_InactiveSubject", func(t *testing.T) {
		repo := newFakeSubjectRepo()
		uc, err := NewSubjectUseCase(repo)
		require.NoError(t, err)

		subject, err := uc.Create(ctx, &domain.CreateSubjectInput{
			Username: "alice",
			Password: "Str0ng!Password",
		})
		require.NoError(t, err)
		subject.IsActive = false

		_, err = uc.Authenticate(ctx, "alice", "Str0ng!Password")
		assert.ErrorIs(t, err, domain.ErrSubjectInactive)
	})
}

func TestSubjectUseCase_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := newFakeSubjectRepo()
	uc, err := NewSubjectUseCase(repo)
	require.NoError(t, err)

	created, err := uc.Create(ctx, &domain.CreateSubjectInput{
		Username: "alice",
		Password: "Str0ng!Password",
	})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		subject, err := uc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Username, subject.Username)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		_, err := uc.GetByID(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, domain.ErrSubjectNotFound)
	})
}
