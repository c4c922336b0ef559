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

// PostgresLedgerRepository implements domain.LedgerRepository. Every
// mutating method is a single transaction: the position row lock, the
// fresh occupancy count, the contract write, and the audit row commit or
// roll back together.
type PostgresLedgerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLedgerRepository creates a new employment ledger repository.
func NewPostgresLedgerRepository(db *sql.DB, logger *slog.Logger) *PostgresLedgerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLedgerRepository{db: db, logger: logger}
}

const employmentColumns = `
	id, person_id, position_id, role, employment_type, current_status,
	hire_date, end_date, exit_reason, exit_notes, created_at, updated_at`

func scanEmployment(row interface{ Scan(...any) error }) (*domain.Employment, error) {
	e := &domain.Employment{}
	var endDate sql.NullTime
	var exitReason sql.NullString
	err := row.Scan(
		&e.ID, &e.PersonID, &e.PositionID, &e.Role, &e.EmploymentType,
		&e.CurrentStatus, &e.HireDate, &endDate, &exitReason, &e.ExitNotes,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	if exitReason.Valid {
		reason := domain.ExitReason(exitReason.String)
		e.ExitReason = &reason
	}
	return e, nil
}

// hasOtherActiveContract reports whether another active-like row exists
// for the same (person, position) pair, inside the caller's transaction.
func hasOtherActiveContract(ctx context.Context, tx *sql.Tx, personID, positionID, excludeID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM employments
			WHERE person_id = $1 AND position_id = $2 AND id <> $3
			  AND current_status = ANY($4)
		)
	`, personID, positionID, excludeID, pq.Array(activeStatusCodes)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate contract: %w", err)
	}
	return exists, nil
}

func appendStatusLog(ctx context.Context, tx *sql.Tx, log *domain.StatusLog) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO employment_status_logs (employment_id, status, start_date, reason)
		VALUES ($1, $2, $3, $4)
	`, log.EmploymentID, string(log.Status), log.StartDate, log.Reason)
	if err != nil {
		return fmt.Errorf("failed to append status log: %w", err)
	}
	return nil
}

// Create persists a new contract. The duplicate-contract check and, for
// active-like statuses, the capacity check both run under the position's
// row lock so no two concurrent hires can both claim the last seat.
func (r *PostgresLedgerRepository) Create(ctx context.Context, e *domain.Employment, logReason string) (*domain.Employment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vacancies, err := lockPosition(ctx, tx, e.PositionID)
	if err != nil {
		return nil, err
	}

	duplicate, err := hasOtherActiveContract(ctx, tx, e.PersonID, e.PositionID, 0)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, domain.DuplicateContractError(e.PersonID, e.PositionID)
	}

	if e.CurrentStatus.IsActive() {
		occupied, err := countActiveSeats(ctx, tx, e.PositionID)
		if err != nil {
			return nil, err
		}
		if occupied >= vacancies {
			return nil, domain.CapacityError(e.PositionID, vacancies)
		}
	}

	var exitReason *string
	if e.ExitReason != nil {
		s := string(*e.ExitReason)
		exitReason = &s
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO employments
			(person_id, position_id, role, employment_type, current_status,
			 hire_date, end_date, exit_reason, exit_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, e.PersonID, e.PositionID, e.Role, e.EmploymentType, string(e.CurrentStatus),
		e.HireDate, e.EndDate, exitReason, e.ExitNotes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create employment: %w", err)
	}

	if err := appendStatusLog(ctx, tx, &domain.StatusLog{
		EmploymentID: e.ID,
		Status:       e.CurrentStatus,
		StartDate:    e.HireDate,
		Reason:       logReason,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return e, nil
}

// GetByID retrieves a contract by id.
func (r *PostgresLedgerRepository) GetByID(ctx context.Context, id int64) (*domain.Employment, error) {
	e, err := scanEmployment(r.db.QueryRowContext(ctx,
		`SELECT`+employmentColumns+` FROM employments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("employment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employment: %w", err)
	}
	return e, nil
}

func (r *PostgresLedgerRepository) queryEmployments(ctx context.Context, query string, args ...any) ([]*domain.Employment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employments: %w", err)
	}
	defer rows.Close()

	var employments []*domain.Employment
	for rows.Next() {
		e, err := scanEmployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employment: %w", err)
		}
		employments = append(employments, e)
	}
	return employments, rows.Err()
}

// List returns every contract in the ledger ordered by id.
func (r *PostgresLedgerRepository) List(ctx context.Context) ([]*domain.Employment, error) {
	return r.queryEmployments(ctx,
		`SELECT`+employmentColumns+` FROM employments ORDER BY id`)
}

// ListByPerson returns the person's contracts, oldest first.
func (r *PostgresLedgerRepository) ListByPerson(ctx context.Context, personID int64) ([]*domain.Employment, error) {
	return r.queryEmployments(ctx,
		`SELECT`+employmentColumns+` FROM employments WHERE person_id = $1 ORDER BY id`, personID)
}

// ActiveByPosition returns active-like contracts on the position.
func (r *PostgresLedgerRepository) ActiveByPosition(ctx context.Context, positionID int64) ([]*domain.Employment, error) {
	return r.queryEmployments(ctx, `
		SELECT`+employmentColumns+` FROM employments
		WHERE position_id = $1 AND current_status = ANY($2) ORDER BY id
	`, positionID, pq.Array(activeStatusCodes))
}

// ActiveByDepartment returns active-like contracts whose position belongs
// to the department.
func (r *PostgresLedgerRepository) ActiveByDepartment(ctx context.Context, departmentID int64) ([]*domain.Employment, error) {
	return r.queryEmployments(ctx, `
		SELECT e.id, e.person_id, e.position_id, e.role, e.employment_type, e.current_status,
		       e.hire_date, e.end_date, e.exit_reason, e.exit_notes, e.created_at, e.updated_at
		FROM employments e
		JOIN positions p ON p.id = e.position_id
		WHERE p.department_id = $1 AND e.current_status = ANY($2)
		ORDER BY e.id
	`, departmentID, pq.Array(activeStatusCodes))
}

// ActiveReportingTo returns active-like contracts on positions whose
// manager set contains the given position.
func (r *PostgresLedgerRepository) ActiveReportingTo(ctx context.Context, positionID int64) ([]*domain.Employment, error) {
	return r.queryEmployments(ctx, `
		SELECT e.id, e.person_id, e.position_id, e.role, e.employment_type, e.current_status,
		       e.hire_date, e.end_date, e.exit_reason, e.exit_notes, e.created_at, e.updated_at
		FROM employments e
		JOIN position_managers pm ON pm.position_id = e.position_id
		WHERE pm.manager_position_id = $1 AND e.current_status = ANY($2)
		ORDER BY e.id
	`, positionID, pq.Array(activeStatusCodes))
}

// UpdateStatus applies a transition. When the new status re-occupies a
// seat, the duplicate and capacity invariants are re-checked under the
// position lock; the audit row is appended in the same transaction.
func (r *PostgresLedgerRepository) UpdateStatus(ctx context.Context, id int64, change domain.StatusChange) (*domain.Employment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanEmployment(tx.QueryRowContext(ctx,
		`SELECT`+employmentColumns+` FROM employments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError("employment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock employment: %w", err)
	}

	if change.NewStatus.IsActive() {
		vacancies, err := lockPosition(ctx, tx, current.PositionID)
		if err != nil {
			return nil, err
		}
		duplicate, err := hasOtherActiveContract(ctx, tx, current.PersonID, current.PositionID, current.ID)
		if err != nil {
			return nil, err
		}
		if duplicate {
			return nil, domain.DuplicateContractError(current.PersonID, current.PositionID)
		}
		if !current.CurrentStatus.IsActive() {
			occupied, err := countActiveSeats(ctx, tx, current.PositionID)
			if err != nil {
				return nil, err
			}
			if occupied >= vacancies {
				return nil, domain.CapacityError(current.PositionID, vacancies)
			}
		}
	}

	var exitReason *string
	if change.ExitReason != nil {
		s := string(*change.ExitReason)
		exitReason = &s
	}
	updated, err := scanEmployment(tx.QueryRowContext(ctx, `
		UPDATE employments
		SET current_status = $2, end_date = $3, exit_reason = $4, exit_notes = $5, updated_at = now()
		WHERE id = $1
		RETURNING`+employmentColumns,
		id, string(change.NewStatus), change.EndDate, exitReason, change.ExitNotes))
	if err != nil {
		return nil, fmt.Errorf("failed to update employment status: %w", err)
	}

	if err := appendStatusLog(ctx, tx, &domain.StatusLog{
		EmploymentID: id,
		Status:       change.NewStatus,
		StartDate:    change.LogDate,
		Reason:       change.LogReason,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return updated, nil
}

// Delete removes a contract. The position lock is held while the row goes
// away so a concurrent hire observes the freed seat only after commit.
func (r *PostgresLedgerRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanEmployment(tx.QueryRowContext(ctx,
		`SELECT`+employmentColumns+` FROM employments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError("employment", id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock employment: %w", err)
	}

	if current.CurrentStatus.IsActive() {
		if _, err := lockPosition(ctx, tx, current.PositionID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM employments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete employment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Logs returns the contract's audit trail, oldest first.
func (r *PostgresLedgerRepository) Logs(ctx context.Context, employmentID int64) ([]*domain.StatusLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, employment_id, status, start_date, reason, created_at
		FROM employment_status_logs WHERE employment_id = $1 ORDER BY id
	`, employmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		l := &domain.StatusLog{}
		if err := rows.Scan(&l.ID, &l.EmploymentID, &l.Status, &l.StartDate, &l.Reason, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
