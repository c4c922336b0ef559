package domain

import (
	"context"
	"time"
)

// Department is an organizational unit. Departments may nest through
// ParentID, but reporting lines run through positions, not departments.
type Department struct {
	ID        int64
	Name      string
	ParentID  *int64
	CreatedAt time.Time
}

// JobTitle names a kind of work independent of where it is performed.
type JobTitle struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Position is an organizational slot with a finite seat capacity.
// ManagerPositionIDs is the set of positions this one reports to; the
// structure is a matrix, not a tree, so the set may hold several entries.
// A position must never be a member of its own manager set.
type Position struct {
	ID                 int64
	DepartmentID       int64
	JobTitleID         int64
	Name               string // optional display name, e.g. "Finance Manager (VE)"
	Vacancies          int    // declared capacity, never mutated by the ledger
	IsManager          bool   // marks the department's manager slot
	ManagerPositionIDs []int64
	CreatedAt          time.Time
}

// Title returns the position's display name, falling back to its job title.
func (p *Position) Title(jobTitle string) string {
	if p.Name != "" {
		return p.Name
	}
	return jobTitle
}

// VacancySummary is the read-side occupancy view of a position.
type VacancySummary struct {
	PositionID int64
	Capacity   int
	Occupied   int
	Remaining  int
}

// PositionRepository is the position store. The ledger only ever consumes
// positions read-only; capacity bookkeeping happens through SeatAccountant
// inside employment transactions.
type PositionRepository interface {
	GetByID(ctx context.Context, id int64) (*Position, error)
	List(ctx context.Context) ([]*Position, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*Position, error)
	Create(ctx context.Context, p *Position) (*Position, error)
	// SetManagerPositions replaces the manager set. Fails with
	// ErrSelfReportingPosition if the set contains the position itself.
	// Longer cycles (A reports to B reports to A) are not validated.
	SetManagerPositions(ctx context.Context, positionID int64, managerIDs []int64) error
	ManagerPositions(ctx context.Context, positionID int64) ([]*Position, error)
	// ManagerOfDepartment returns the position flagged is_manager within
	// the department, or ErrNotFound when none is configured.
	ManagerOfDepartment(ctx context.Context, departmentID int64) (*Position, error)
	VacancySummary(ctx context.Context, positionID int64) (*VacancySummary, error)
	JobTitle(ctx context.Context, id int64) (*JobTitle, error)
	CreateJobTitle(ctx context.Context, t *JobTitle) (*JobTitle, error)
	Department(ctx context.Context, id int64) (*Department, error)
	CreateDepartment(ctx context.Context, d *Department) (*Department, error)
	Departments(ctx context.Context) ([]*Department, error)
}

// SeatAccountant atomically checks and adjusts a position's remaining
// capacity. TryReserveSeat succeeds only while the fresh count of
// active-like employments is strictly below the declared vacancies; the
// check-and-reserve is a single atomic unit against concurrent callers on
// the same position. ReleaseSeat always succeeds and never drives capacity
// negative; releasing beyond recorded occupancy indicates a programming
// error upstream, not a user-facing condition.
type SeatAccountant interface {
	TryReserveSeat(ctx context.Context, positionID int64) (ok bool, remaining int, err error)
	ReleaseSeat(ctx context.Context, positionID int64) (remaining int, err error)
}
