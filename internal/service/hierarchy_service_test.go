package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/repository"
	"github.com/yourorg/workforce/pkg/cache"
)

type orgFixture struct {
	store       *repository.MemStore
	employments *EmploymentService
	hierarchy   *HierarchyService

	department *domain.Department
	bossPos    *domain.Position
	engPos     *domain.Position
}

// newOrgFixture builds a department with one manager position and one
// engineer position (2 seats) reporting to it.
func newOrgFixture(t *testing.T) *orgFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemStore()

	d, err := store.Positions().CreateDepartment(ctx, &domain.Department{Name: "Engineering"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	mgrTitle, _ := store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Engineering Manager"})
	engTitle, _ := store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Engineer"})

	bossPos, err := store.Positions().Create(ctx, &domain.Position{
		DepartmentID: d.ID,
		JobTitleID:   mgrTitle.ID,
		Vacancies:    1,
		IsManager:    true,
	})
	if err != nil {
		t.Fatalf("create boss position: %v", err)
	}
	engPos, err := store.Positions().Create(ctx, &domain.Position{
		DepartmentID:       d.ID,
		JobTitleID:         engTitle.ID,
		Vacancies:          2,
		ManagerPositionIDs: []int64{bossPos.ID},
	})
	if err != nil {
		t.Fatalf("create engineer position: %v", err)
	}

	return &orgFixture{
		store:       store,
		employments: NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, testLogger()),
		hierarchy:   NewHierarchyService(store.Positions(), store.Ledger(), store.Persons(), cache.New(), testLogger()),
		department:  d,
		bossPos:     bossPos,
		engPos:      engPos,
	}
}

func (f *orgFixture) employ(t *testing.T, name string, positionID int64) *domain.Person {
	t.Helper()
	birth := time.Now().UTC().AddDate(-30, 0, -1)
	p, err := f.store.Persons().Create(context.Background(), &domain.Person{FirstName: name, Birthdate: &birth})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if _, err := f.employments.Hire(context.Background(), HireRequest{
		PersonID:   p.ID,
		PositionID: positionID,
		HireDate:   today(),
	}); err != nil {
		t.Fatalf("hire %s: %v", name, err)
	}
	return p
}

func TestOrgChartAroundEngineer(t *testing.T) {
	f := newOrgFixture(t)
	boss := f.employ(t, "Boss", f.bossPos.ID)
	ana := f.employ(t, "Ana", f.engPos.ID)
	bruno := f.employ(t, "Bruno", f.engPos.ID)

	chart, err := f.hierarchy.OrgChartFor(context.Background(), ana.ID)
	if err != nil {
		t.Fatalf("org chart: %v", err)
	}

	if chart.Self.PersonID == nil || *chart.Self.PersonID != ana.ID {
		t.Fatalf("self should be Ana, got %+v", chart.Self)
	}
	if chart.Self.Title != "Engineer" {
		t.Fatalf("expected job title as display title, got %q", chart.Self.Title)
	}
	if chart.Boss == nil || chart.Boss.PersonID == nil || *chart.Boss.PersonID != boss.ID {
		t.Fatalf("boss should be the manager occupant, got %+v", chart.Boss)
	}

	// Peers are everyone else active in the department, boss included.
	peerIDs := map[int64]bool{}
	for _, p := range chart.Peers {
		if p.PersonID != nil {
			peerIDs[*p.PersonID] = true
		}
	}
	if !peerIDs[bruno.ID] || !peerIDs[boss.ID] || peerIDs[ana.ID] {
		t.Fatalf("unexpected peer set: %+v", chart.Peers)
	}
}

func TestOrgChartSubordinates(t *testing.T) {
	f := newOrgFixture(t)
	boss := f.employ(t, "Boss", f.bossPos.ID)
	ana := f.employ(t, "Ana", f.engPos.ID)
	bruno := f.employ(t, "Bruno", f.engPos.ID)

	chart, err := f.hierarchy.OrgChartFor(context.Background(), boss.ID)
	if err != nil {
		t.Fatalf("org chart: %v", err)
	}
	if chart.Boss != nil {
		t.Fatalf("top of the chain should have no boss, got %+v", chart.Boss)
	}
	if len(chart.Subordinates) != 2 {
		t.Fatalf("expected 2 subordinates, got %d", len(chart.Subordinates))
	}
	got := map[int64]bool{}
	for _, s := range chart.Subordinates {
		if s.PersonID != nil {
			got[*s.PersonID] = true
		}
	}
	if !got[ana.ID] || !got[bruno.ID] {
		t.Fatalf("expected both engineers as subordinates, got %+v", chart.Subordinates)
	}
}

func TestSupervisorVacantSlot(t *testing.T) {
	f := newOrgFixture(t)
	// Nobody sits on the manager position.
	boss, err := f.hierarchy.SupervisorOf(context.Background(), f.engPos.ID)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if boss == nil {
		t.Fatal("expected the vacant slot, not nil")
	}
	if !boss.Vacant || boss.PersonName != VacantMarker {
		t.Fatalf("expected vacant marker, got %+v", boss)
	}
}

func TestSupervisorSkipsVacantManagerSlot(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	// Second manager position; only this one gets an occupant.
	deputyTitle, _ := f.store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Deputy Manager"})
	deputyPos, err := f.store.Positions().Create(ctx, &domain.Position{
		DepartmentID: f.department.ID,
		JobTitleID:   deputyTitle.ID,
		Vacancies:    1,
	})
	if err != nil {
		t.Fatalf("create deputy position: %v", err)
	}
	if err := f.store.Positions().SetManagerPositions(ctx, f.engPos.ID, []int64{f.bossPos.ID, deputyPos.ID}); err != nil {
		t.Fatalf("set manager positions: %v", err)
	}
	deputy := f.employ(t, "Deputy", deputyPos.ID)

	// The first slot is empty but the second is filled: the occupant
	// wins over the vacant marker.
	boss, err := f.hierarchy.SupervisorOf(ctx, f.engPos.ID)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if boss == nil || boss.Vacant {
		t.Fatalf("expected the deputy occupant, got %+v", boss)
	}
	if boss.PersonID == nil || *boss.PersonID != deputy.ID {
		t.Fatalf("expected person %d, got %+v", deputy.ID, boss)
	}

	// With every slot empty again, the vacant node names the first
	// manager position in the set.
	if _, err := f.employments.Terminate(ctx, mustContractID(t, f, deputy.ID), domain.ExitResignation, nil, ""); err != nil {
		t.Fatalf("terminate deputy: %v", err)
	}
	boss, err = f.hierarchy.SupervisorOf(ctx, f.engPos.ID)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if boss == nil || !boss.Vacant || boss.PersonName != VacantMarker {
		t.Fatalf("expected vacant marker, got %+v", boss)
	}
	if boss.PositionID != f.bossPos.ID {
		t.Fatalf("vacant node should name the first manager position %d, got %+v", f.bossPos.ID, boss)
	}
}

// mustContractID finds the person's single active contract.
func mustContractID(t *testing.T, f *orgFixture, personID int64) int64 {
	t.Helper()
	contracts, err := f.store.Ledger().ListByPerson(context.Background(), personID)
	if err != nil {
		t.Fatalf("list contracts: %v", err)
	}
	for _, c := range contracts {
		if c.CurrentStatus.IsActive() {
			return c.ID
		}
	}
	t.Fatalf("no active contract for person %d", personID)
	return 0
}

func TestSupervisorNoneConfigured(t *testing.T) {
	f := newOrgFixture(t)
	boss, err := f.hierarchy.SupervisorOf(context.Background(), f.bossPos.ID)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	if boss != nil {
		t.Fatalf("position with no manager set should have no supervisor, got %+v", boss)
	}
}

func TestDepartmentManagerOccupant(t *testing.T) {
	f := newOrgFixture(t)
	boss := f.employ(t, "Boss", f.bossPos.ID)

	member, err := f.hierarchy.DepartmentManagerOccupant(context.Background(), f.department.ID)
	if err != nil {
		t.Fatalf("department manager: %v", err)
	}
	if member.PersonID == nil || *member.PersonID != boss.ID {
		t.Fatalf("expected the boss, got %+v", member)
	}
}

func TestOrgChartRequiresActiveContract(t *testing.T) {
	f := newOrgFixture(t)
	birth := time.Now().UTC().AddDate(-30, 0, -1)
	idle, _ := f.store.Persons().Create(context.Background(), &domain.Person{FirstName: "Idle", Birthdate: &birth})

	_, err := f.hierarchy.OrgChartFor(context.Background(), idle.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for person without active contract, got %v", err)
	}
}
