package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/observability/metrics"
)

// EventPublisher receives employment lifecycle events for fan-out to
// connected websocket clients. A nil publisher is valid and drops events.
type EventPublisher interface {
	Publish(event string, payload any)
}

// CacheInvalidator drops cached read models after a ledger write, so the
// dashboard does not serve a stale headcount for a cache-TTL window.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// EmploymentService is the contract lifecycle engine. All writes to the
// ledger go through it: it validates requests, computes audit reasons and
// auto-dated end dates, and delegates the invariant-bearing write to the
// repository transaction.
type EmploymentService struct {
	ledger    domain.LedgerRepository
	positions domain.PositionRepository
	persons   domain.PersonRepository
	events    EventPublisher
	caches    CacheInvalidator
	logger    *slog.Logger
}

// HireRequest captures a new contract request.
type HireRequest struct {
	PersonID       int64
	PositionID     int64
	Role           string
	EmploymentType string
	Status         domain.Status // defaults to ACT
	HireDate       time.Time
	EndDate        *time.Time
}

// StatusChangeRequest captures a requested transition.
type StatusChangeRequest struct {
	NewStatus  domain.Status
	EndDate    *time.Time
	ExitReason *domain.ExitReason
	ExitNotes  string
}

// NewEmploymentService creates a new employment service.
func NewEmploymentService(
	ledger domain.LedgerRepository,
	positions domain.PositionRepository,
	persons domain.PersonRepository,
	events EventPublisher,
	logger *slog.Logger,
) *EmploymentService {
	return &EmploymentService{
		ledger:    ledger,
		positions: positions,
		persons:   persons,
		events:    events,
		logger:    logger,
	}
}

// SetCacheInvalidator attaches the cached read models to the write path.
// Set once during wiring, before the service takes traffic.
func (s *EmploymentService) SetCacheInvalidator(c CacheInvalidator) {
	s.caches = c
}

const minimumHireAge = 18

// logReasonInitialHire is written to the audit trail exactly once per
// contract, on creation. Later entries never reuse it.
const (
	logReasonInitialHire = "initial hire"
	logReasonAdminChange = "administrative status change"
)

// Hire creates a new contract. The duplicate-contract and capacity checks
// run inside the repository transaction; this layer validates everything
// that does not need the database lock.
func (s *EmploymentService) Hire(ctx context.Context, req HireRequest) (*domain.Employment, error) {
	start := time.Now()

	if req.Status == "" {
		req.Status = domain.StatusActive
	}
	if err := s.validateHire(ctx, req); err != nil {
		metrics.ObserveHire("invalid", time.Since(start))
		return nil, err
	}

	e := &domain.Employment{
		PersonID:       req.PersonID,
		PositionID:     req.PositionID,
		Role:           req.Role,
		EmploymentType: req.EmploymentType,
		CurrentStatus:  req.Status,
		HireDate:       req.HireDate,
		EndDate:        req.EndDate,
	}

	created, err := s.ledger.Create(ctx, e, logReasonInitialHire)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.ObserveCapacityRejection("hire")
		}
		metrics.ObserveHire("error", time.Since(start))
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	s.logger.Info("contract created",
		slog.Int64("employment_id", created.ID),
		slog.Int64("person_id", created.PersonID),
		slog.Int64("position_id", created.PositionID),
		slog.String("status", string(created.CurrentStatus)),
	)
	metrics.ObserveHire("success", time.Since(start))
	if created.CurrentStatus.IsActive() {
		metrics.IncrementHeadcount()
	}
	s.publish("employment.created", created)
	s.invalidateCaches(ctx)
	return created, nil
}

func (s *EmploymentService) validateHire(ctx context.Context, req HireRequest) error {
	if !req.Status.Valid() {
		return fmt.Errorf("unknown status %q", req.Status)
	}
	if req.HireDate.IsZero() {
		return errors.New("hire date is required")
	}
	if req.EndDate != nil && req.EndDate.Before(req.HireDate) {
		return fmt.Errorf("end %s before hire %s: %w",
			req.EndDate.Format("2006-01-02"), req.HireDate.Format("2006-01-02"), domain.ErrInvalidDateRange)
	}

	person, err := s.persons.GetByID(ctx, req.PersonID)
	if err != nil {
		return fmt.Errorf("failed to load person: %w", err)
	}
	if person.Birthdate != nil {
		if req.HireDate.Before(*person.Birthdate) {
			return fmt.Errorf("person %d: %w", person.ID, domain.ErrBirthdateInconsistent)
		}
		if age := yearsBetween(*person.Birthdate, req.HireDate); age < minimumHireAge {
			return fmt.Errorf("person %d is %d at hire date: %w", person.ID, age, domain.ErrBirthdateInconsistent)
		}
	}

	if _, err := s.positions.GetByID(ctx, req.PositionID); err != nil {
		return fmt.Errorf("failed to load position: %w", err)
	}
	return nil
}

// ChangeStatus moves a contract to a new status, writing the audit row in
// the same transaction. Moving to a terminal-like status without an
// explicit end date stamps today; moving back to an active-like status
// clears the exit fields and re-runs the capacity check.
func (s *EmploymentService) ChangeStatus(ctx context.Context, id int64, req StatusChangeRequest) (*domain.Employment, error) {
	if !req.NewStatus.Valid() {
		return nil, fmt.Errorf("unknown status %q", req.NewStatus)
	}

	current, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	change, err := s.buildChange(current, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.ledger.UpdateStatus(ctx, id, change)
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.ObserveCapacityRejection("status_change")
		}
		metrics.ObserveTransition(string(req.NewStatus), "error")
		return nil, fmt.Errorf("failed to change status: %w", err)
	}

	s.logger.Info("status changed",
		slog.Int64("employment_id", updated.ID),
		slog.String("from", string(current.CurrentStatus)),
		slog.String("to", string(updated.CurrentStatus)),
		slog.String("reason", change.LogReason),
	)
	metrics.ObserveTransition(string(req.NewStatus), "success")
	switch {
	case current.CurrentStatus.IsActive() && !updated.CurrentStatus.IsActive():
		metrics.DecrementHeadcount()
	case !current.CurrentStatus.IsActive() && updated.CurrentStatus.IsActive():
		metrics.IncrementHeadcount()
	}
	s.publish("employment.status_changed", updated)
	s.invalidateCaches(ctx)
	return updated, nil
}

// buildChange computes the auto-dated end date and the audit reason. The
// ledger stores exactly what comes out of here.
func (s *EmploymentService) buildChange(current *domain.Employment, req StatusChangeRequest) (domain.StatusChange, error) {
	change := domain.StatusChange{
		NewStatus: req.NewStatus,
		LogDate:   today(),
	}

	if req.NewStatus.IsActive() {
		// Reactivation clears the exit fields; a stale end date on an
		// active contract would double-count as an exit in reporting.
		if req.ExitReason != nil {
			return change, errors.New("exit reason only applies to a terminal status")
		}
		change.EndDate = req.EndDate
		if change.EndDate == nil && current.CurrentStatus.IsActive() {
			// An active-to-active change that omits the end date keeps
			// the fixed-term expiry; only reactivation clears it.
			change.EndDate = current.EndDate
		}
		if change.EndDate != nil && change.EndDate.Before(current.HireDate) {
			return change, fmt.Errorf("end before hire: %w", domain.ErrInvalidDateRange)
		}
		change.LogReason = logReasonAdminChange
		return change, nil
	}

	end := req.EndDate
	if end == nil {
		t := today()
		end = &t
	}
	if end.Before(current.HireDate) {
		return change, fmt.Errorf("end before hire: %w", domain.ErrInvalidDateRange)
	}
	change.EndDate = end
	change.LogDate = *end

	if req.ExitReason != nil {
		if !req.ExitReason.Valid() {
			return change, fmt.Errorf("unknown exit reason %q", *req.ExitReason)
		}
		change.ExitReason = req.ExitReason
		change.LogReason = req.ExitReason.Label()
		if req.ExitNotes != "" {
			change.LogReason += ": " + req.ExitNotes
		}
	} else {
		change.LogReason = logReasonAdminChange
	}
	change.ExitNotes = req.ExitNotes
	return change, nil
}

// Terminate is a convenience wrapper: it derives the terminal status from
// the exit reason (the code vocabularies coincide) and delegates.
func (s *EmploymentService) Terminate(ctx context.Context, id int64, reason domain.ExitReason, endDate *time.Time, notes string) (*domain.Employment, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("unknown exit reason %q", reason)
	}
	return s.ChangeStatus(ctx, id, StatusChangeRequest{
		NewStatus:  domain.Status(reason),
		EndDate:    endDate,
		ExitReason: &reason,
		ExitNotes:  notes,
	})
}

// Get retrieves a contract.
func (s *EmploymentService) Get(ctx context.Context, id int64) (*domain.Employment, error) {
	e, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return e, nil
}

// List returns all contracts.
func (s *EmploymentService) List(ctx context.Context) ([]*domain.Employment, error) {
	return s.ledger.List(ctx)
}

// ListByPerson returns a person's contracts.
func (s *EmploymentService) ListByPerson(ctx context.Context, personID int64) ([]*domain.Employment, error) {
	return s.ledger.ListByPerson(ctx, personID)
}

// History returns the contract's audit trail, oldest first.
func (s *EmploymentService) History(ctx context.Context, id int64) ([]*domain.StatusLog, error) {
	if _, err := s.ledger.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	return s.ledger.Logs(ctx, id)
}

// Delete hard-deletes a contract and its audit trail. This is an
// administrative correction for rows created in error; regular exits go
// through ChangeStatus so the history survives.
func (s *EmploymentService) Delete(ctx context.Context, id int64) error {
	current, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load contract: %w", err)
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	s.logger.Warn("contract deleted",
		slog.Int64("employment_id", id),
		slog.Int64("person_id", current.PersonID),
		slog.Int64("position_id", current.PositionID),
	)
	if current.CurrentStatus.IsActive() {
		metrics.DecrementHeadcount()
	}
	s.publish("employment.deleted", current)
	s.invalidateCaches(ctx)
	return nil
}

// Vacancies returns the occupancy view of a position.
func (s *EmploymentService) Vacancies(ctx context.Context, positionID int64) (*domain.VacancySummary, error) {
	summary, err := s.positions.VacancySummary(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute vacancies: %w", err)
	}
	return summary, nil
}

func (s *EmploymentService) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

func (s *EmploymentService) invalidateCaches(ctx context.Context) {
	if s.caches != nil {
		s.caches.Invalidate(ctx)
	}
}

// today returns the current UTC day at midnight.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// yearsBetween counts whole years from birth to ref.
func yearsBetween(birth, ref time.Time) int {
	years := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		years--
	}
	return years
}
