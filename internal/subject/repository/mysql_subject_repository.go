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

// MySQLSubjectRepository handles subject persistence for MySQL.
type MySQLSubjectRepository struct {
	db *sql.DB
}

// NewMySQLSubjectRepository creates a new MySQLSubjectRepository.
func NewMySQLSubjectRepository(db *sql.DB) *MySQLSubjectRepository {
	return &MySQLSubjectRepository{
		db: db,
	}
}

// Create inserts a new subject.
func (r *MySQLSubjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	querier := database.GetTx(ctx, r.db)

	permissionsJSON, rolesJSON, err := marshalSubjectLists(subject)
	if err != nil {
		return err
	}

	query := `INSERT INTO subjects (id, username, password, permissions, roles, is_active, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Convert UUID to bytes for MySQL BINARY(16)
	uuidBytes, err := subject.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		uuidBytes,
		subject.Username,
		subject.Password,
		permissionsJSON,
		rolesJSON,
		subject.IsActive,
		subject.CreatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return domain.ErrSubjectExists
		}
		return apperrors.Wrap(err, "failed to create subject")
	}
	return nil
}

// GetByID retrieves a subject by ID.
func (r *MySQLSubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, password, permissions, roles, is_active, created_at
			  FROM subjects WHERE id = ?`

	// Convert UUID to bytes for MySQL BINARY(16)
	uuidBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	subject, err := scanMySQLSubject(querier.QueryRowContext(ctx, query, uuidBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subject by id")
	}

	return subject, nil
}

// GetByUsername retrieves a subject by username.
func (r *MySQLSubjectRepository) GetByUsername(ctx context.Context, username string) (*domain.Subject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, password, permissions, roles, is_active, created_at
			  FROM subjects WHERE username = ?`

	subject, err := scanMySQLSubject(querier.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get subject by username")
	}

	return subject, nil
}

// scanMySQLSubject reads one subject row, converting the BINARY(16) id back
// to a UUID and decoding the JSON list columns.
func scanMySQLSubject(row rowScanner) (*domain.Subject, error) {
	var subject domain.Subject
	var idBytes []byte
	var permissionsJSON []byte
	var rolesJSON []byte

	err := row.Scan(
		&idBytes,
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

	if err := subject.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if err := decodeSubjectLists(&subject, permissionsJSON, rolesJSON); err != nil {
		return nil, err
	}

	return &subject, nil
}

// decodeSubjectLists unmarshals the permission and role JSON columns.
func decodeSubjectLists(subject *domain.Subject, permissionsJSON, rolesJSON []byte) error {
	if err := json.Unmarshal(permissionsJSON, &subject.Permissions); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal subject permissions")
	}
	if err := json.Unmarshal(rolesJSON, &subject.Roles); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal subject roles")
	}
	return nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
