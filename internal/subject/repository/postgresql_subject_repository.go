// Package repository provides data persistence implementations for subject entities.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/tokend/internal/database"
	"github.com/allisson/tokend/internal/subject/domain"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// PostgreSQLSubjectRepository handles subject persistence for PostgreSQL.
type PostgreSQLSubjectRepository struct {
	db *sql.DB
}

// NewPostgreSQLSubjectRepository creates a new PostgreSQLSubjectRepository.
func NewPostgreSQLSubjectRepository(db *sql.DB) *PostgreSQLSubjectRepository {
	return &PostgreSQLSubjectRepository{
		db: db,
	}
}

// Create inserts a new subject.
func (r *PostgreSQLSubjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	querier := database.GetTx(ctx, r.db)

	permissionsJSON, rolesJSON, err := marshalSubjectLists(subject)
	if err != nil {
		return err
	}

	query := `INSERT INTO subjects (id, username, password, permissions, roles, is_active, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		subject.ID,
		subject.Username,
		subject.Password,
		permissionsJSON,
		rolesJSON,
		subject.IsActive,
		subject.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrSubjectExists
		}
		return apperrors.Wrap(err, "failed to create subject")
	}
	return nil
}

// GetByID retrieves a subject by ID.
func (r *PostgreSQLSubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, password, permissions, roles, is_active, created_at
			  FROM subjects WHERE id = $1`

	subject, err := scanSubject(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subject by id")
	}

	return subject, nil
}

// GetByUsername retrieves a subject by username.
func (r *PostgreSQLSubjectRepository) GetByUsername(ctx context.Context, username string) (*domain.Subject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, password, permissions, roles, is_active, created_at
			  FROM subjects WHERE username = $1`

	subject, err := scanSubject(querier.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subject by username")
	}

	return subject, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSubject reads one subject row, decoding the JSON list columns.
func scanSubject(row rowScanner) (*domain.Subject, error) {
	var subject domain.Subject
	var permissionsJSON []byte
	var rolesJSON []byte

	err := row.Scan(
		&subject.ID,
		&subject.Username,
		&subject.Password,
		&permissionsJSON,
		&rolesJSON,
		&subject.IsActive,
		&subject.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(permissionsJSON, &subject.Permissions); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal subject permissions")
	}
	if err := json.Unmarshal(rolesJSON, &subject.Roles); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal subject roles")
	}

	return &subject, nil
}

// marshalSubjectLists encodes the permission and role lists, mapping nil to
// empty JSON arrays so the columns never hold SQL NULL.
func marshalSubjectLists(subject *domain.Subject) ([]byte, []byte, error) {
	permissions := subject.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	roles := subject.Roles
	if roles == nil {
		roles = []string{}
	}

	permissionsJSON, err := json.Marshal(permissions)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal subject permissions")
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal subject roles")
	}
	return permissionsJSON, rolesJSON, nil
}
