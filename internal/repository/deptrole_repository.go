package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/workforce/internal/domain"
)

// PostgresDepartmentRoleRepository implements domain.DepartmentRoleRepository.
type PostgresDepartmentRoleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDepartmentRoleRepository creates a new department role repository.
func NewPostgresDepartmentRoleRepository(db *sql.DB, logger *slog.Logger) *PostgresDepartmentRoleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDepartmentRoleRepository{db: db, logger: logger}
}

// Assign inserts a role tag. The department row lock serializes the
// manager-uniqueness check against concurrent assignments; the same
// person's prior open role is superseded, not rejected.
func (r *PostgresDepartmentRoleRepository) Assign(ctx context.Context, role *domain.PersonDepartmentRole) (*domain.PersonDepartmentRole, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deptID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM departments WHERE id = $1 FOR UPDATE`, role.DepartmentID,
	).Scan(&deptID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("department", role.DepartmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock department: %w", err)
	}

	if role.Role == domain.RoleManager {
		var holderID int64
		err = tx.QueryRowContext(ctx, `
			SELECT person_id FROM person_department_roles
			WHERE department_id = $1 AND hierarchical_role = $2 AND person_id <> $3
			  AND start_date <= $4 AND (end_date IS NULL OR end_date >= $4)
			LIMIT 1
		`, role.DepartmentID, string(domain.RoleManager), role.PersonID, today()).Scan(&holderID)
		if err == nil {
			return nil, domain.ManagerConflictError(role.DepartmentID, holderID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check manager conflict: %w", err)
		}
	}

	// Supersede: close the same person's open roles in this department a
	// day before the new assignment starts.
	supersedeEnd := role.StartDate.AddDate(0, 0, -1)
	if _, err := tx.ExecContext(ctx, `
		UPDATE person_department_roles SET end_date = $3
		WHERE person_id = $1 AND department_id = $2 AND end_date IS NULL
	`, role.PersonID, role.DepartmentID, supersedeEnd); err != nil {
		return nil, fmt.Errorf("failed to supersede prior role: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO person_department_roles
			(person_id, department_id, hierarchical_role, start_date, end_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, role.PersonID, role.DepartmentID, string(role.Role), role.StartDate, role.EndDate, role.Notes,
	).Scan(&role.ID, &role.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create department role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return role, nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *PostgresDepartmentRoleRepository) queryRoles(ctx context.Context, query string, args ...any) ([]*domain.PersonDepartmentRole, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query department roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.PersonDepartmentRole
	for rows.Next() {
		role := &domain.PersonDepartmentRole{}
		var endDate sql.NullTime
		if err := rows.Scan(&role.ID, &role.PersonID, &role.DepartmentID, &role.Role,
			&role.StartDate, &endDate, &role.Notes, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department role: %w", err)
		}
		if endDate.Valid {
			role.EndDate = &endDate.Time
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

const roleColumns = `id, person_id, department_id, hierarchical_role, start_date, end_date, notes, created_at`

// ListByPerson returns the person's role history, newest first.
func (r *PostgresDepartmentRoleRepository) ListByPerson(ctx context.Context, personID int64) ([]*domain.PersonDepartmentRole, error) {
	return r.queryRoles(ctx, `
		SELECT `+roleColumns+` FROM person_department_roles
		WHERE person_id = $1 ORDER BY start_date DESC, id DESC
	`, personID)
}

// ListByDepartment returns the department's role history, newest first.
func (r *PostgresDepartmentRoleRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]*domain.PersonDepartmentRole, error) {
	return r.queryRoles(ctx, `
		SELECT `+roleColumns+` FROM person_department_roles
		WHERE department_id = $1 ORDER BY start_date DESC, id DESC
	`, departmentID)
}

// CurrentManagers returns every open-ended Manager role.
func (r *PostgresDepartmentRoleRepository) CurrentManagers(ctx context.Context) ([]*domain.PersonDepartmentRole, error) {
	return r.queryRoles(ctx, `
		SELECT `+roleColumns+` FROM person_department_roles
		WHERE hierarchical_role = $1 AND end_date IS NULL
		ORDER BY department_id, start_date DESC
	`, string(domain.RoleManager))
}
