package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/yourorg/workforce/internal/domain"
)

// activeStatusCodes is derived from the status enum so the SQL filter can
// never drift from the active/terminal classification.
var activeStatusCodes = func() []string {
	var codes []string
	for _, s := range domain.AllStatuses() {
		if s.IsActive() {
			codes = append(codes, string(s))
		}
	}
	return codes
}()

// PostgresPositionRepository implements domain.PositionRepository and
// domain.SeatAccountant using PostgreSQL.
type PostgresPositionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPositionRepository creates a new position repository.
func NewPostgresPositionRepository(db *sql.DB, logger *slog.Logger) *PostgresPositionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPositionRepository{db: db, logger: logger}
}

// lockPosition takes the row-level lock that serializes every
// check-and-reserve against this position, returning its capacity.
func lockPosition(ctx context.Context, tx *sql.Tx, positionID int64) (int, error) {
	var vacancies int
	err := tx.QueryRowContext(ctx,
		`SELECT vacancies FROM positions WHERE id = $1 FOR UPDATE`,
		positionID,
	).Scan(&vacancies)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFoundError("position", positionID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock position: %w", err)
	}
	return vacancies, nil
}

// countActiveSeats counts active-like contracts for a position, freshly,
// inside the caller's transaction.
func countActiveSeats(ctx context.Context, tx *sql.Tx, positionID int64) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employments WHERE position_id = $1 AND current_status = ANY($2)`,
		positionID, pq.Array(activeStatusCodes),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active contracts: %w", err)
	}
	return count, nil
}

// TryReserveSeat checks whether the position has an open seat, under the
// position's row lock. The ledger runs the same lock-and-count inside its
// own write transactions, so a standalone reservation here only answers
// availability; the durable reservation is the ledger row itself.
func (r *PostgresPositionRepository) TryReserveSeat(ctx context.Context, positionID int64) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vacancies, err := lockPosition(ctx, tx, positionID)
	if err != nil {
		return false, 0, err
	}
	occupied, err := countActiveSeats(ctx, tx, positionID)
	if err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit: %w", err)
	}

	remaining := vacancies - occupied
	if remaining <= 0 {
		return false, 0, nil
	}
	return true, remaining - 1, nil
}

// ReleaseSeat reports the remaining capacity after a seat release. The
// release itself is the ledger row's move to a terminal status; capacity
// is derived by counting, so it can never go negative here.
func (r *PostgresPositionRepository) ReleaseSeat(ctx context.Context, positionID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vacancies, err := lockPosition(ctx, tx, positionID)
	if err != nil {
		return 0, err
	}
	occupied, err := countActiveSeats(ctx, tx, positionID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	remaining := vacancies - occupied
	if remaining < 0 {
		r.logger.Error("occupancy exceeds declared capacity",
			slog.Int64("position_id", positionID),
			slog.Int("vacancies", vacancies),
			slog.Int("occupied", occupied),
		)
		remaining = 0
	}
	return remaining, nil
}

// GetByID retrieves a position with its manager set.
func (r *PostgresPositionRepository) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	p := &domain.Position{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, department_id, job_title_id, name, vacancies, is_manager, created_at
		FROM positions WHERE id = $1
	`, id).Scan(&p.ID, &p.DepartmentID, &p.JobTitleID, &p.Name, &p.Vacancies, &p.IsManager, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("position", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	if p.ManagerPositionIDs, err = r.managerIDs(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPositionRepository) managerIDs(ctx context.Context, positionID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT manager_position_id FROM position_managers
		WHERE position_id = $1 ORDER BY manager_position_id
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list manager positions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan manager position: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns all positions without their manager sets.
func (r *PostgresPositionRepository) List(ctx context.Context) ([]*domain.Position, error) {
	return r.queryPositions(ctx, `
		SELECT id, department_id, job_title_id, name, vacancies, is_manager, created_at
		FROM positions ORDER BY id
	`)
}

// ListByDepartment returns the department's positions.
func (r *PostgresPositionRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]*domain.Position, error) {
	return r.queryPositions(ctx, `
		SELECT id, department_id, job_title_id, name, vacancies, is_manager, created_at
		FROM positions WHERE department_id = $1 ORDER BY id
	`, departmentID)
}

func (r *PostgresPositionRepository) queryPositions(ctx context.Context, query string, args ...any) ([]*domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p := &domain.Position{}
		if err := rows.Scan(&p.ID, &p.DepartmentID, &p.JobTitleID, &p.Name, &p.Vacancies, &p.IsManager, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Create inserts a new position and its manager set.
func (r *PostgresPositionRepository) Create(ctx context.Context, p *domain.Position) (*domain.Position, error) {
	for _, managerID := range p.ManagerPositionIDs {
		if managerID == p.ID && p.ID != 0 {
			return nil, domain.ErrSelfReportingPosition
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO positions (department_id, job_title_id, name, vacancies, is_manager)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, p.DepartmentID, p.JobTitleID, p.Name, p.Vacancies, p.IsManager).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}

	for _, managerID := range p.ManagerPositionIDs {
		if managerID == p.ID {
			return nil, domain.ErrSelfReportingPosition
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO position_managers (position_id, manager_position_id) VALUES ($1, $2)
		`, p.ID, managerID); err != nil {
			return nil, fmt.Errorf("failed to link manager position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return p, nil
}

// SetManagerPositions replaces the position's manager set. Self-reference
// is rejected; longer cycles are not validated.
func (r *PostgresPositionRepository) SetManagerPositions(ctx context.Context, positionID int64, managerIDs []int64) error {
	for _, managerID := range managerIDs {
		if managerID == positionID {
			return fmt.Errorf("position %d: %w", positionID, domain.ErrSelfReportingPosition)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockPosition(ctx, tx, positionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM position_managers WHERE position_id = $1`, positionID); err != nil {
		return fmt.Errorf("failed to clear manager positions: %w", err)
	}
	for _, managerID := range managerIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO position_managers (position_id, manager_position_id) VALUES ($1, $2)
		`, positionID, managerID); err != nil {
			return fmt.Errorf("failed to link manager position: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ManagerPositions resolves the manager set in stable order.
func (r *PostgresPositionRepository) ManagerPositions(ctx context.Context, positionID int64) ([]*domain.Position, error) {
	return r.queryPositions(ctx, `
		SELECT p.id, p.department_id, p.job_title_id, p.name, p.vacancies, p.is_manager, p.created_at
		FROM positions p
		JOIN position_managers pm ON pm.manager_position_id = p.id
		WHERE pm.position_id = $1
		ORDER BY p.id
	`, positionID)
}

// ManagerOfDepartment finds the position flagged is_manager within the
// department.
func (r *PostgresPositionRepository) ManagerOfDepartment(ctx context.Context, departmentID int64) (*domain.Position, error) {
	positions, err := r.queryPositions(ctx, `
		SELECT id, department_id, job_title_id, name, vacancies, is_manager, created_at
		FROM positions WHERE department_id = $1 AND is_manager ORDER BY id LIMIT 1
	`, departmentID)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, domain.NotFoundError("department manager position", departmentID)
	}
	return positions[0], nil
}

// VacancySummary reports capacity and fresh occupancy for a position.
func (r *PostgresPositionRepository) VacancySummary(ctx context.Context, positionID int64) (*domain.VacancySummary, error) {
	s := &domain.VacancySummary{PositionID: positionID}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.vacancies,
		       (SELECT COUNT(*) FROM employments e
		        WHERE e.position_id = p.id AND e.current_status = ANY($2))
		FROM positions p WHERE p.id = $1
	`, positionID, pq.Array(activeStatusCodes)).Scan(&s.Capacity, &s.Occupied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("position", positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vacancy summary: %w", err)
	}
	s.Remaining = s.Capacity - s.Occupied
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	return s, nil
}

// JobTitle retrieves a job title.
func (r *PostgresPositionRepository) JobTitle(ctx context.Context, id int64) (*domain.JobTitle, error) {
	t := &domain.JobTitle{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM job_titles WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("job title", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job title: %w", err)
	}
	return t, nil
}

// CreateJobTitle inserts a job title.
func (r *PostgresPositionRepository) CreateJobTitle(ctx context.Context, t *domain.JobTitle) (*domain.JobTitle, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO job_titles (name, description) VALUES ($1, $2)
		RETURNING id, created_at
	`, t.Name, t.Description).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job title: %w", err)
	}
	return t, nil
}

// Department retrieves a department.
func (r *PostgresPositionRepository) Department(ctx context.Context, id int64) (*domain.Department, error) {
	d := &domain.Department{}
	var parent sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id, created_at FROM departments WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &parent, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("department", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if parent.Valid {
		d.ParentID = &parent.Int64
	}
	return d, nil
}

// CreateDepartment inserts a department.
func (r *PostgresPositionRepository) CreateDepartment(ctx context.Context, d *domain.Department) (*domain.Department, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO departments (name, parent_id) VALUES ($1, $2)
		RETURNING id, created_at
	`, d.Name, d.ParentID).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return d, nil
}

// Departments lists all departments.
func (r *PostgresPositionRepository) Departments(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id, created_at FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*domain.Department
	for rows.Next() {
		d := &domain.Department{}
		var parent sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Name, &parent, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		if parent.Valid {
			d.ParentID = &parent.Int64
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
