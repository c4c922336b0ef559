package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/workforce/internal/domain"
)

// OrgService manages the organizational structure: departments, job
// titles, positions and the manager matrix between positions.
type OrgService struct {
	positions domain.PositionRepository
	logger    *slog.Logger
}

// NewOrgService creates a new org structure service.
func NewOrgService(positions domain.PositionRepository, logger *slog.Logger) *OrgService {
	return &OrgService{positions: positions, logger: logger}
}

// CreateDepartment adds a department.
func (s *OrgService) CreateDepartment(ctx context.Context, name string, parentID *int64) (*domain.Department, error) {
	if name == "" {
		return nil, fmt.Errorf("department name is required")
	}
	if parentID != nil {
		if _, err := s.positions.Department(ctx, *parentID); err != nil {
			return nil, fmt.Errorf("failed to load parent department: %w", err)
		}
	}
	d, err := s.positions.CreateDepartment(ctx, &domain.Department{Name: name, ParentID: parentID})
	if err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	s.logger.Info("department created", slog.Int64("department_id", d.ID), slog.String("name", d.Name))
	return d, nil
}

// Departments lists all departments.
func (s *OrgService) Departments(ctx context.Context) ([]*domain.Department, error) {
	return s.positions.Departments(ctx)
}

// CreateJobTitle adds a job title.
func (s *OrgService) CreateJobTitle(ctx context.Context, name, description string) (*domain.JobTitle, error) {
	if name == "" {
		return nil, fmt.Errorf("job title name is required")
	}
	t, err := s.positions.CreateJobTitle(ctx, &domain.JobTitle{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("failed to create job title: %w", err)
	}
	return t, nil
}

// PositionRequest captures a new position.
type PositionRequest struct {
	DepartmentID int64
	JobTitleID   int64
	Name         string
	Vacancies    int
	IsManager    bool
	ManagerIDs   []int64
}

// CreatePosition adds a position slot to a department.
func (s *OrgService) CreatePosition(ctx context.Context, req PositionRequest) (*domain.Position, error) {
	if req.Vacancies < 0 {
		return nil, fmt.Errorf("vacancies must not be negative")
	}
	if _, err := s.positions.Department(ctx, req.DepartmentID); err != nil {
		return nil, fmt.Errorf("failed to load department: %w", err)
	}
	if _, err := s.positions.JobTitle(ctx, req.JobTitleID); err != nil {
		return nil, fmt.Errorf("failed to load job title: %w", err)
	}
	p, err := s.positions.Create(ctx, &domain.Position{
		DepartmentID:       req.DepartmentID,
		JobTitleID:         req.JobTitleID,
		Name:               req.Name,
		Vacancies:          req.Vacancies,
		IsManager:          req.IsManager,
		ManagerPositionIDs: req.ManagerIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	s.logger.Info("position created",
		slog.Int64("position_id", p.ID),
		slog.Int64("department_id", p.DepartmentID),
		slog.Int("vacancies", p.Vacancies),
	)
	return p, nil
}

// Position retrieves a position.
func (s *OrgService) Position(ctx context.Context, id int64) (*domain.Position, error) {
	return s.positions.GetByID(ctx, id)
}

// Positions lists all positions.
func (s *OrgService) Positions(ctx context.Context) ([]*domain.Position, error) {
	return s.positions.List(ctx)
}

// PositionsByDepartment lists a department's positions.
func (s *OrgService) PositionsByDepartment(ctx context.Context, departmentID int64) ([]*domain.Position, error) {
	return s.positions.ListByDepartment(ctx, departmentID)
}

// SetReportingLines replaces a position's manager set. The repository
// rejects self-reporting; anything else goes, including cross-department
// lines and multiple managers.
func (s *OrgService) SetReportingLines(ctx context.Context, positionID int64, managerIDs []int64) error {
	for _, id := range managerIDs {
		if _, err := s.positions.GetByID(ctx, id); err != nil {
			return fmt.Errorf("failed to load manager position %d: %w", id, err)
		}
	}
	if err := s.positions.SetManagerPositions(ctx, positionID, managerIDs); err != nil {
		return fmt.Errorf("failed to set reporting lines: %w", err)
	}
	s.logger.Info("reporting lines updated",
		slog.Int64("position_id", positionID),
		slog.Int("managers", len(managerIDs)),
	)
	return nil
}
