package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/infrastructure/redis"
	"github.com/yourorg/workforce/internal/observability/metrics"
	"github.com/yourorg/workforce/internal/reliability/circuitbreaker"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 60 * time.Second
	expiryWindowDays  = 30
	topDepartments    = 5
)

// DepartmentCount pairs a department with its active headcount.
type DepartmentCount struct {
	DepartmentID int64  `json:"departmentId"`
	Name         string `json:"name"`
	Headcount    int    `json:"headcount"`
}

// ExpiringContract flags a fixed-term contract ending inside the window.
type ExpiringContract struct {
	EmploymentID int64     `json:"employmentId"`
	PersonID     int64     `json:"personId"`
	PersonName   string    `json:"personName"`
	EndDate      time.Time `json:"endDate"`
}

// DashboardStats is the aggregate view served at /api/dashboard.
type DashboardStats struct {
	Headcount         int                `json:"headcount"`
	NewHiresThisMonth int                `json:"newHiresThisMonth"`
	ExitsThisMonth    int                `json:"exitsThisMonth"`
	PendingAccounts   int                `json:"pendingAccounts"`
	TopDepartments    []DepartmentCount  `json:"topDepartments"`
	ExpiringContracts []ExpiringContract `json:"expiringContracts"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

// DashboardService computes workforce aggregates. Results are cached in
// Redis behind a circuit breaker; when Redis is down the service computes
// from the database directly instead of failing the request.
type DashboardService struct {
	ledger    domain.LedgerRepository
	positions domain.PositionRepository
	persons   domain.PersonRepository
	users     domain.UserRepository
	redis     *redis.Client
	breaker   *circuitbreaker.CircuitBreaker
	logger    *slog.Logger
}

// NewDashboardService creates a new dashboard service. redisClient may be
// nil in memory-store mode.
func NewDashboardService(
	ledger domain.LedgerRepository,
	positions domain.PositionRepository,
	persons domain.PersonRepository,
	users domain.UserRepository,
	redisClient *redis.Client,
	logger *slog.Logger,
) *DashboardService {
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("dashboard cache breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &DashboardService{
		ledger:    ledger,
		positions: positions,
		persons:   persons,
		users:     users,
		redis:     redisClient,
		breaker:   breaker,
		logger:    logger,
	}
}

// Stats returns the dashboard aggregates, from cache when possible.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		metrics.ObserveDashboardCache("hit")
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ObserveDashboardCache("miss")
	s.toCache(ctx, stats)
	return stats, nil
}

// Invalidate drops the cached aggregates. Called after writes that move
// headcount so the dashboard does not serve a stale count for a minute.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.redis == nil || !s.breaker.AllowRequest() {
		return
	}
	if err := s.redis.Delete(ctx, dashboardCacheKey); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("failed to invalidate dashboard cache", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}

func (s *DashboardService) fromCache(ctx context.Context) *DashboardStats {
	if s.redis == nil {
		return nil
	}
	if !s.breaker.AllowRequest() {
		metrics.ObserveDashboardCache("bypass")
		return nil
	}
	raw, err := s.redis.Get(ctx, dashboardCacheKey)
	if err != nil {
		if !redis.IsNil(err) {
			s.breaker.RecordFailure()
			s.logger.Warn("dashboard cache read failed", slog.String("error", err.Error()))
		} else {
			s.breaker.RecordSuccess()
		}
		return nil
	}
	s.breaker.RecordSuccess()
	var stats DashboardStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		s.logger.Warn("dashboard cache entry corrupt, recomputing", slog.String("error", err.Error()))
		return nil
	}
	return &stats
}

func (s *DashboardService) toCache(ctx context.Context, stats *DashboardStats) {
	if s.redis == nil || !s.breaker.AllowRequest() {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL); err != nil {
		s.breaker.RecordFailure()
		s.logger.Warn("dashboard cache write failed", slog.String("error", err.Error()))
		return
	}
	s.breaker.RecordSuccess()
}

// compute builds the aggregates from the ledger. One pass over all
// contracts; the corpus is small enough that this beats a zoo of
// specialized queries.
func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	contracts, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	expiryCutoff := now.AddDate(0, 0, expiryWindowDays)

	stats := &DashboardStats{GeneratedAt: now}
	byDepartment := map[int64]int{}
	activePersons := map[int64]bool{}

	for _, c := range contracts {
		if c.CurrentStatus.IsActive() {
			stats.Headcount++
			activePersons[c.PersonID] = true
			position, err := s.positions.GetByID(ctx, c.PositionID)
			if err == nil {
				byDepartment[position.DepartmentID]++
			}
			if !c.HireDate.Before(monthStart) {
				stats.NewHiresThisMonth++
			}
			if c.EndDate != nil && !c.EndDate.Before(now) && !c.EndDate.After(expiryCutoff) {
				person, err := s.persons.GetByID(ctx, c.PersonID)
				name := ""
				if err == nil {
					name = person.FullName()
				}
				stats.ExpiringContracts = append(stats.ExpiringContracts, ExpiringContract{
					EmploymentID: c.ID,
					PersonID:     c.PersonID,
					PersonName:   name,
					EndDate:      *c.EndDate,
				})
			}
		} else if c.EndDate != nil && !c.EndDate.Before(monthStart) {
			stats.ExitsThisMonth++
		}
	}

	stats.PendingAccounts, err = s.countPendingAccounts(ctx, activePersons)
	if err != nil {
		return nil, err
	}
	stats.TopDepartments, err = s.rankDepartments(ctx, byDepartment)
	if err != nil {
		return nil, err
	}

	sort.Slice(stats.ExpiringContracts, func(i, j int) bool {
		return stats.ExpiringContracts[i].EndDate.Before(stats.ExpiringContracts[j].EndDate)
	})
	return stats, nil
}

// countPendingAccounts counts active people with no login account yet.
func (s *DashboardService) countPendingAccounts(ctx context.Context, activePersons map[int64]bool) (int, error) {
	withAccounts, err := s.users.PersonIDsWithAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list account holders: %w", err)
	}
	pending := 0
	for personID := range activePersons {
		if !withAccounts[personID] {
			pending++
		}
	}
	return pending, nil
}

// rankDepartments returns the top departments by active headcount.
func (s *DashboardService) rankDepartments(ctx context.Context, byDepartment map[int64]int) ([]DepartmentCount, error) {
	ranked := make([]DepartmentCount, 0, len(byDepartment))
	for id, count := range byDepartment {
		dept, err := s.positions.Department(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load department: %w", err)
		}
		ranked = append(ranked, DepartmentCount{DepartmentID: id, Name: dept.Name, Headcount: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Headcount == ranked[j].Headcount {
			return ranked[i].DepartmentID < ranked[j].DepartmentID
		}
		return ranked[i].Headcount > ranked[j].Headcount
	})
	if len(ranked) > topDepartments {
		ranked = ranked[:topDepartments]
	}
	return ranked, nil
}
