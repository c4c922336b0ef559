package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/workforce/internal/domain"
)

// DeptRoleService assigns people manager or employee standing in a
// department. The manager-uniqueness and supersede rules live in the
// repository transaction; this layer validates and logs.
type DeptRoleService struct {
	roles   domain.DepartmentRoleRepository
	persons domain.PersonRepository
	logger  *slog.Logger
}

// NewDeptRoleService creates a new department role service.
func NewDeptRoleService(roles domain.DepartmentRoleRepository, persons domain.PersonRepository, logger *slog.Logger) *DeptRoleService {
	return &DeptRoleService{roles: roles, persons: persons, logger: logger}
}

// RoleRequest captures a role assignment.
type RoleRequest struct {
	PersonID     int64
	DepartmentID int64
	Role         domain.HierarchicalRole
	StartDate    time.Time
	EndDate      *time.Time
	Notes        string
}

// Assign grants the role. Re-assigning the same person closes their prior
// open role for the department; a different person asking for Manager
// while one is acting fails with ErrManagerConflict.
func (s *DeptRoleService) Assign(ctx context.Context, req RoleRequest) (*domain.PersonDepartmentRole, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", req.Role)
	}
	if req.StartDate.IsZero() {
		req.StartDate = today()
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("role end before start: %w", domain.ErrInvalidDateRange)
	}
	if _, err := s.persons.GetByID(ctx, req.PersonID); err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}

	role, err := s.roles.Assign(ctx, &domain.PersonDepartmentRole{
		PersonID:     req.PersonID,
		DepartmentID: req.DepartmentID,
		Role:         req.Role,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}
	s.logger.Info("department role assigned",
		slog.Int64("person_id", role.PersonID),
		slog.Int64("department_id", role.DepartmentID),
		slog.String("role", string(role.Role)),
	)
	return role, nil
}

// ListByPerson returns a person's role history, newest first.
func (s *DeptRoleService) ListByPerson(ctx context.Context, personID int64) ([]*domain.PersonDepartmentRole, error) {
	return s.roles.ListByPerson(ctx, personID)
}

// ListByDepartment returns a department's role history, newest first.
func (s *DeptRoleService) ListByDepartment(ctx context.Context, departmentID int64) ([]*domain.PersonDepartmentRole, error) {
	return s.roles.ListByDepartment(ctx, departmentID)
}

// CurrentManagers returns every open-ended Manager role.
func (s *DeptRoleService) CurrentManagers(ctx context.Context) ([]*domain.PersonDepartmentRole, error) {
	return s.roles.CurrentManagers(ctx)
}
