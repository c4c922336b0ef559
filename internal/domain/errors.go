package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers and callers test these with errors.Is;
// the wrapped message carries the identifiers needed for a user-facing
// message. None of these are transient: a caller must change its request
// (pick another position, close the prior contract) rather than retry.
var (
	ErrNotFound                = errors.New("not found")
	ErrCapacityExceeded        = errors.New("position capacity exceeded")
	ErrDuplicateActiveContract = errors.New("person already holds an active contract for this position")
	ErrInvalidDateRange        = errors.New("end date precedes hire date")
	ErrBirthdateInconsistent   = errors.New("hire date precedes birthdate")
	ErrManagerConflict         = errors.New("department already has an acting manager")
	ErrSelfReportingPosition   = errors.New("position cannot report to itself")
)

// CapacityError decorates ErrCapacityExceeded with the position context.
func CapacityError(positionID int64, vacancies int) error {
	return fmt.Errorf("position %d has no open seats (capacity %d): %w", positionID, vacancies, ErrCapacityExceeded)
}

// DuplicateContractError decorates ErrDuplicateActiveContract.
func DuplicateContractError(personID, positionID int64) error {
	return fmt.Errorf("person %d / position %d: %w", personID, positionID, ErrDuplicateActiveContract)
}

// ManagerConflictError decorates ErrManagerConflict.
func ManagerConflictError(departmentID, holderPersonID int64) error {
	return fmt.Errorf("department %d manager role held by person %d: %w", departmentID, holderPersonID, ErrManagerConflict)
}

// NotFoundError decorates ErrNotFound with the entity kind and id.
func NotFoundError(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
