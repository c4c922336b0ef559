package domain

import (
	"context"
	"time"
)

// Contract role codes (what the person does on the position).
const (
	ContractRoleEmployee   = "EMP"
	ContractRoleSupervisor = "SUP"
	ContractRoleManager    = "GER"
)

// Employment type codes.
const (
	TypePermanent = "FIJ" // open-ended
	TypeFixedTerm = "DET" // fixed term, end_date expected
	TypeProbation = "PRU" // probation period
)

// Employment binds one person to one position for a span of time. Rows are
// never physically deleted in normal operation; a contract ends by moving
// to a terminal-like status.
type Employment struct {
	ID             int64
	PersonID       int64
	PositionID     int64
	Role           string
	EmploymentType string
	CurrentStatus  Status
	HireDate       time.Time
	EndDate        *time.Time
	ExitReason     *ExitReason
	ExitNotes      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusLog is an append-only audit row. It is written on creation and on
// every status change, and is never updated or deleted afterwards.
type StatusLog struct {
	ID           int64
	EmploymentID int64
	Status       Status
	StartDate    time.Time
	Reason       string
	CreatedAt    time.Time
}

// StatusChange carries a requested transition into the ledger. LogReason
// and LogDate are computed by the transition engine before the call.
type StatusChange struct {
	NewStatus  Status
	EndDate    *time.Time
	ExitReason *ExitReason
	ExitNotes  string
	LogReason  string
	LogDate    time.Time
}

// LedgerRepository is the employment ledger. Create and UpdateStatus run
// the duplicate-contract and capacity checks inside the same transaction
// that writes the contract and its audit row; a failure anywhere rolls the
// whole unit back, so no seat is ever held without a matching row.
type LedgerRepository interface {
	// Create persists a new contract plus its audit row. Fails with
	// ErrDuplicateActiveContract or ErrCapacityExceeded.
	Create(ctx context.Context, e *Employment, logReason string) (*Employment, error)
	GetByID(ctx context.Context, id int64) (*Employment, error)
	List(ctx context.Context) ([]*Employment, error)
	ListByPerson(ctx context.Context, personID int64) ([]*Employment, error)
	// ActiveByPosition returns active-like rows for a position ordered by id.
	ActiveByPosition(ctx context.Context, positionID int64) ([]*Employment, error)
	ActiveByDepartment(ctx context.Context, departmentID int64) ([]*Employment, error)
	// ActiveReportingTo returns active-like rows whose position's manager
	// set contains the given position.
	ActiveReportingTo(ctx context.Context, positionID int64) ([]*Employment, error)
	// UpdateStatus applies a transition, re-checking invariants when the
	// change re-occupies a seat, and appends the audit row.
	UpdateStatus(ctx context.Context, id int64, change StatusChange) (*Employment, error)
	// Delete removes the row, releasing the seat first when the row is
	// active-like.
	Delete(ctx context.Context, id int64) error
	Logs(ctx context.Context, employmentID int64) ([]*StatusLog, error)
}

// Person is the identity this core hangs contracts on. Catalog-level
// person management lives outside the core; only the fields the ledger
// validates or displays are modeled here.
type Person struct {
	ID        int64
	FirstName string
	LastName  string
	Birthdate *time.Time
	CreatedAt time.Time
}

// FullName joins the person's names for display.
func (p *Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PersonRepository provides read access plus the minimal writes needed by
// seeding and account registration.
type PersonRepository interface {
	GetByID(ctx context.Context, id int64) (*Person, error)
	Create(ctx context.Context, p *Person) (*Person, error)
	List(ctx context.Context) ([]*Person, error)
}

// PersonDepartmentRole tags a person as manager or employee of a
// department, independent of any contract. At most one open-ended Manager
// row may exist per department at any time.
type PersonDepartmentRole struct {
	ID           int64
	PersonID     int64
	DepartmentID int64
	Role         HierarchicalRole
	StartDate    time.Time
	EndDate      *time.Time // nil = currently active
	Notes        string
	CreatedAt    time.Time
}

// Open reports whether the role is active on the given day.
func (r *PersonDepartmentRole) Open(on time.Time) bool {
	if r.StartDate.After(on) {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(on)
}

// DepartmentRoleRepository persists department role tags. Assign enforces
// the manager-uniqueness invariant and the same-person supersede rule in
// one transaction.
type DepartmentRoleRepository interface {
	// Assign inserts a new role row. A conflicting open Manager row held
	// by a different person fails with ErrManagerConflict; the same
	// person's prior open row for the department is closed with
	// end_date = startDate - 1 day instead.
	Assign(ctx context.Context, role *PersonDepartmentRole) (*PersonDepartmentRole, error)
	ListByPerson(ctx context.Context, personID int64) ([]*PersonDepartmentRole, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*PersonDepartmentRole, error)
	// CurrentManagers returns all open-ended Manager rows.
	CurrentManagers(ctx context.Context) ([]*PersonDepartmentRole, error)
}
