package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/repository"
)

// TestDashboardComputesWithoutCache exercises the full aggregate path with
// no Redis client attached, the memory-store configuration.
func TestDashboardComputesWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemStore()
	employments := NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, testLogger())
	dashboard := NewDashboardService(store.Ledger(), store.Positions(), store.Persons(), store.Users(), nil, testLogger())

	dept, _ := store.Positions().CreateDepartment(ctx, &domain.Department{Name: "Engineering"})
	title, _ := store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Engineer"})
	position, err := store.Positions().Create(ctx, &domain.Position{
		DepartmentID: dept.ID,
		JobTitleID:   title.ID,
		Vacancies:    5,
	})
	if err != nil {
		t.Fatalf("create position: %v", err)
	}

	birth := time.Now().UTC().AddDate(-30, 0, -1)
	newPerson := func(name string) *domain.Person {
		p, err := store.Persons().Create(ctx, &domain.Person{FirstName: name, Birthdate: &birth})
		if err != nil {
			t.Fatalf("create person: %v", err)
		}
		return p
	}

	ana := newPerson("Ana")
	bruno := newPerson("Bruno")
	carla := newPerson("Carla")

	// Ana: hired today, expiring inside the 30-day window.
	expiry := today().AddDate(0, 0, 10)
	if _, err := employments.Hire(ctx, HireRequest{
		PersonID:   ana.ID,
		PositionID: position.ID,
		HireDate:   today(),
		EndDate:    &expiry,
	}); err != nil {
		t.Fatalf("hire ana: %v", err)
	}

	// Bruno: long-tenured, open-ended.
	if _, err := employments.Hire(ctx, HireRequest{
		PersonID:   bruno.ID,
		PositionID: position.ID,
		HireDate:   today().AddDate(-2, 0, 0),
	}); err != nil {
		t.Fatalf("hire bruno: %v", err)
	}

	// Carla: hired and terminated today, an exit this month.
	carlaContract, err := employments.Hire(ctx, HireRequest{
		PersonID:   carla.ID,
		PositionID: position.ID,
		HireDate:   today(),
	})
	if err != nil {
		t.Fatalf("hire carla: %v", err)
	}
	if _, err := employments.Terminate(ctx, carlaContract.ID, domain.ExitResignation, nil, ""); err != nil {
		t.Fatalf("terminate carla: %v", err)
	}

	// Bruno has an account; Ana does not.
	if _, err := store.Users().Create(ctx, &domain.User{
		Email:    "bruno@example.com",
		Username: "bruno",
		PersonID: &bruno.ID,
		IsActive: true,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	stats, err := dashboard.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.Headcount != 2 {
		t.Errorf("headcount = %d, want 2", stats.Headcount)
	}
	if stats.NewHiresThisMonth != 1 {
		t.Errorf("new hires = %d, want 1 (only Ana was hired this month and is still active)", stats.NewHiresThisMonth)
	}
	if stats.ExitsThisMonth != 1 {
		t.Errorf("exits = %d, want 1", stats.ExitsThisMonth)
	}
	if stats.PendingAccounts != 1 {
		t.Errorf("pending accounts = %d, want 1 (Ana)", stats.PendingAccounts)
	}
	if len(stats.ExpiringContracts) != 1 || stats.ExpiringContracts[0].PersonID != ana.ID {
		t.Errorf("expected Ana's contract expiring, got %+v", stats.ExpiringContracts)
	}
	if len(stats.TopDepartments) != 1 || stats.TopDepartments[0].Headcount != 2 {
		t.Errorf("expected one department with headcount 2, got %+v", stats.TopDepartments)
	}
	if stats.TopDepartments[0].Name != "Engineering" {
		t.Errorf("department name = %q, want Engineering", stats.TopDepartments[0].Name)
	}
}
