package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/pkg/cache"
)

// VacantMarker is the display name returned when a supervisor slot exists
// but nobody currently occupies it.
const VacantMarker = "VACANT"

const (
	orgChartCacheTTL = 30 * time.Second
	maxPeers         = 10
)

// OrgMember is one node of the org chart view: a position plus whoever
// holds it right now, if anyone.
type OrgMember struct {
	PositionID   int64  `json:"positionId"`
	Title        string `json:"title"`
	DepartmentID int64  `json:"departmentId"`
	PersonID     *int64 `json:"personId,omitempty"`
	PersonName   string `json:"personName"`
	Vacant       bool   `json:"vacant"`
}

// OrgChart is the three-layer neighborhood of one person's position.
type OrgChart struct {
	Self         OrgMember   `json:"self"`
	Boss         *OrgMember  `json:"boss,omitempty"`
	Peers        []OrgMember `json:"peers"`
	Subordinates []OrgMember `json:"subordinates"`
}

// HierarchyService answers reporting-line questions from the position
// graph and the employment ledger. Results are cached briefly; the chart
// is a navigation aid, not a consistency surface.
type HierarchyService struct {
	positions domain.PositionRepository
	ledger    domain.LedgerRepository
	persons   domain.PersonRepository
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewHierarchyService creates a new hierarchy service.
func NewHierarchyService(
	positions domain.PositionRepository,
	ledger domain.LedgerRepository,
	persons domain.PersonRepository,
	c *cache.Cache,
	logger *slog.Logger,
) *HierarchyService {
	return &HierarchyService{
		positions: positions,
		ledger:    ledger,
		persons:   persons,
		cache:     c,
		logger:    logger,
	}
}

// SupervisorOf resolves the boss node for a position. The matrix may
// list several manager positions; the first one (lowest id) with an
// active occupant wins. When every slot in the set is empty, the first
// manager position comes back with the vacant marker rather than an
// error, so callers can still render the unfilled slot.
func (s *HierarchyService) SupervisorOf(ctx context.Context, positionID int64) (*OrgMember, error) {
	managers, err := s.positions.ManagerPositions(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load manager positions: %w", err)
	}
	if len(managers) == 0 {
		return nil, nil
	}
	var vacant *OrgMember
	for _, boss := range managers {
		member, err := s.memberFor(ctx, boss)
		if err != nil {
			return nil, err
		}
		if !member.Vacant {
			return &member, nil
		}
		if vacant == nil {
			vacant = &member
		}
	}
	return vacant, nil
}

// OrgChartFor builds the chart around a person's current active contract.
// A person with no active contract gets ErrNotFound.
func (s *HierarchyService) OrgChartFor(ctx context.Context, personID int64) (*OrgChart, error) {
	key := fmt.Sprintf("orgchart:%d", personID)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if chart, ok := v.(*OrgChart); ok {
				return chart, nil
			}
		}
	}

	contract, err := s.currentContract(ctx, personID)
	if err != nil {
		return nil, err
	}
	position, err := s.positions.GetByID(ctx, contract.PositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}

	self, err := s.memberFor(ctx, position)
	if err != nil {
		return nil, err
	}
	chart := &OrgChart{Self: self}

	chart.Boss, err = s.SupervisorOf(ctx, position.ID)
	if err != nil {
		return nil, err
	}
	chart.Peers, err = s.peersOf(ctx, contract, position)
	if err != nil {
		return nil, err
	}
	chart.Subordinates, err = s.subordinatesOf(ctx, position.ID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, chart, orgChartCacheTTL)
	}
	return chart, nil
}

// InvalidateCharts drops every cached org chart. Called after bulk
// contract maintenance so stale reporting lines don't outlive the run.
func (s *HierarchyService) InvalidateCharts() {
	if s.cache != nil {
		s.cache.Invalidate("orgchart:")
	}
}

// DepartmentManagerOccupant returns whoever currently sits on the
// department's manager position, or a vacant node when the slot is empty.
func (s *HierarchyService) DepartmentManagerOccupant(ctx context.Context, departmentID int64) (*OrgMember, error) {
	position, err := s.positions.ManagerOfDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find manager position: %w", err)
	}
	member, err := s.memberFor(ctx, position)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// currentContract picks the person's active-like contract, lowest id first.
func (s *HierarchyService) currentContract(ctx context.Context, personID int64) (*domain.Employment, error) {
	contracts, err := s.ledger.ListByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	for _, c := range contracts {
		if c.CurrentStatus.IsActive() {
			return c, nil
		}
	}
	return nil, fmt.Errorf("person %d has no active contract: %w", personID, domain.ErrNotFound)
}

// memberFor resolves a position into a chart node with its occupant. The
// lowest-id active contract wins when a multi-seat position has several.
func (s *HierarchyService) memberFor(ctx context.Context, p *domain.Position) (OrgMember, error) {
	member := OrgMember{
		PositionID:   p.ID,
		DepartmentID: p.DepartmentID,
		Vacant:       true,
		PersonName:   VacantMarker,
	}

	title, err := s.positions.JobTitle(ctx, p.JobTitleID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return member, fmt.Errorf("failed to load job title: %w", err)
	}
	if title != nil {
		member.Title = p.Title(title.Name)
	} else {
		member.Title = p.Name
	}

	occupants, err := s.ledger.ActiveByPosition(ctx, p.ID)
	if err != nil {
		return member, fmt.Errorf("failed to load occupants: %w", err)
	}
	if len(occupants) == 0 {
		return member, nil
	}
	occupant := occupants[0]
	person, err := s.persons.GetByID(ctx, occupant.PersonID)
	if err != nil {
		return member, fmt.Errorf("failed to load person: %w", err)
	}
	member.PersonID = &person.ID
	member.PersonName = person.FullName()
	member.Vacant = false
	return member, nil
}

// peersOf lists up to maxPeers other people active in the same department.
func (s *HierarchyService) peersOf(ctx context.Context, self *domain.Employment, position *domain.Position) ([]OrgMember, error) {
	contracts, err := s.ledger.ActiveByDepartment(ctx, position.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department contracts: %w", err)
	}
	return s.membersFromContracts(ctx, contracts, self.ID, maxPeers)
}

// subordinatesOf lists everyone whose position reports to positionID.
func (s *HierarchyService) subordinatesOf(ctx context.Context, positionID int64) ([]OrgMember, error) {
	contracts, err := s.ledger.ActiveReportingTo(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return s.membersFromContracts(ctx, contracts, 0, 0)
}

func (s *HierarchyService) membersFromContracts(ctx context.Context, contracts []*domain.Employment, excludeEmploymentID int64, limit int) ([]OrgMember, error) {
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].ID < contracts[j].ID })
	members := make([]OrgMember, 0, len(contracts))
	for _, c := range contracts {
		if c.ID == excludeEmploymentID {
			continue
		}
		position, err := s.positions.GetByID(ctx, c.PositionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load position: %w", err)
		}
		member, err := s.memberFor(ctx, position)
		if err != nil {
			return nil, err
		}
		// memberFor picks the lowest-id occupant; on a shared position
		// that may not be this contract's person, so pin it.
		person, err := s.persons.GetByID(ctx, c.PersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load person: %w", err)
		}
		member.PersonID = &person.ID
		member.PersonName = person.FullName()
		member.Vacant = false
		members = append(members, member)
		if limit > 0 && len(members) >= limit {
			break
		}
	}
	return members, nil
}
