package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ledgerFixture struct {
	store   *repository.MemStore
	service *EmploymentService
}

func newLedgerFixture() *ledgerFixture {
	store := repository.NewMemStore()
	return &ledgerFixture{
		store:   store,
		service: NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, testLogger()),
	}
}

func (f *ledgerFixture) person(t *testing.T, name string, age int) *domain.Person {
	t.Helper()
	birth := time.Now().UTC().AddDate(-age, 0, -1)
	p, err := f.store.Persons().Create(context.Background(), &domain.Person{
		FirstName: name,
		Birthdate: &birth,
	})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return p
}

func (f *ledgerFixture) position(t *testing.T, seats int) *domain.Position {
	t.Helper()
	d, err := f.store.Positions().CreateDepartment(context.Background(), &domain.Department{Name: "Engineering"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	jt, err := f.store.Positions().CreateJobTitle(context.Background(), &domain.JobTitle{Name: "Engineer"})
	if err != nil {
		t.Fatalf("create job title: %v", err)
	}
	p, err := f.store.Positions().Create(context.Background(), &domain.Position{
		DepartmentID: d.ID,
		JobTitleID:   jt.ID,
		Vacancies:    seats,
	})
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	return p
}

func (f *ledgerFixture) hire(t *testing.T, personID, positionID int64) *domain.Employment {
	t.Helper()
	e, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   personID,
		PositionID: positionID,
		HireDate:   today(),
	})
	if err != nil {
		t.Fatalf("hire person %d on position %d: %v", personID, positionID, err)
	}
	return e
}

func TestHireWritesInitialAuditEntry(t *testing.T) {
	f := newLedgerFixture()
	person := f.person(t, "Ana", 30)
	position := f.position(t, 2)

	e := f.hire(t, person.ID, position.ID)
	if e.CurrentStatus != domain.StatusActive {
		t.Fatalf("expected default status ACT, got %s", e.CurrentStatus)
	}

	logs, err := f.service.History(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one audit entry after hire, got %d", len(logs))
	}
	if logs[0].Reason != "initial hire" {
		t.Fatalf("expected reason %q, got %q", "initial hire", logs[0].Reason)
	}
	if !logs[0].StartDate.Equal(e.HireDate) {
		t.Fatalf("audit date %s should match hire date %s", logs[0].StartDate, e.HireDate)
	}
}

func TestHireRejectedWhenPositionFull(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 1)
	f.hire(t, f.person(t, "Ana", 30).ID, position.ID)

	_, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   f.person(t, "Bruno", 28).ID,
		PositionID: position.ID,
		HireDate:   today(),
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestConcurrentHiresNeverOverbook(t *testing.T) {
	f := newLedgerFixture()
	const seats = 3
	const candidates = 12
	position := f.position(t, seats)

	people := make([]*domain.Person, candidates)
	for i := range people {
		people[i] = f.person(t, fmt.Sprintf("p%d", i), 25+i)
	}

	var wg sync.WaitGroup
	errs := make([]error, candidates)
	for i := 0; i < candidates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Hire(context.Background(), HireRequest{
				PersonID:   people[i].ID,
				PositionID: position.ID,
				HireDate:   today(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != seats {
		t.Fatalf("expected exactly %d hires to land, got %d", seats, succeeded)
	}

	summary, err := f.service.Vacancies(context.Background(), position.ID)
	if err != nil {
		t.Fatalf("vacancies: %v", err)
	}
	if summary.Occupied != seats || summary.Remaining != 0 {
		t.Fatalf("expected %d/%d occupied, got %d occupied %d remaining",
			seats, seats, summary.Occupied, summary.Remaining)
	}
}

func TestDuplicateActiveContractRejected(t *testing.T) {
	f := newLedgerFixture()
	person := f.person(t, "Ana", 30)
	position := f.position(t, 5)
	f.hire(t, person.ID, position.ID)

	_, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   person.ID,
		PositionID: position.ID,
		HireDate:   today(),
	})
	if !errors.Is(err, domain.ErrDuplicateActiveContract) {
		t.Fatalf("expected duplicate contract error, got %v", err)
	}
}

func TestHireValidation(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 5)
	adult := f.person(t, "Ana", 30)
	minor := f.person(t, "Kid", 15)

	// Underage at hire date
	_, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   minor.ID,
		PositionID: position.ID,
		HireDate:   today(),
	})
	if !errors.Is(err, domain.ErrBirthdateInconsistent) {
		t.Fatalf("expected birthdate error for minor, got %v", err)
	}

	// Hire before birth
	_, err = f.service.Hire(context.Background(), HireRequest{
		PersonID:   adult.ID,
		PositionID: position.ID,
		HireDate:   today().AddDate(-40, 0, 0),
	})
	if !errors.Is(err, domain.ErrBirthdateInconsistent) {
		t.Fatalf("expected birthdate error for pre-birth hire, got %v", err)
	}

	// End before start
	end := today().AddDate(0, -1, 0)
	_, err = f.service.Hire(context.Background(), HireRequest{
		PersonID:   adult.ID,
		PositionID: position.ID,
		HireDate:   today(),
		EndDate:    &end,
	})
	if !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected date range error, got %v", err)
	}

	// Unknown status
	_, err = f.service.Hire(context.Background(), HireRequest{
		PersonID:   adult.ID,
		PositionID: position.ID,
		Status:     "XXX",
		HireDate:   today(),
	})
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTerminalStatusAutoDatesEndDate(t *testing.T) {
	f := newLedgerFixture()
	e := f.hire(t, f.person(t, "Ana", 30).ID, f.position(t, 1).ID)

	updated, err := f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{
		NewStatus: domain.StatusTerminated,
	})
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.EndDate == nil || !updated.EndDate.Equal(today()) {
		t.Fatalf("expected end date auto-stamped to today, got %v", updated.EndDate)
	}

	logs, _ := f.service.History(context.Background(), e.ID)
	last := logs[len(logs)-1]
	if !last.StartDate.Equal(*updated.EndDate) {
		t.Fatalf("terminal audit entry should be dated at the end date, got %s", last.StartDate)
	}
	if last.Reason != "administrative status change" {
		t.Fatalf("expected admin reason without exit reason, got %q", last.Reason)
	}
}

func TestTerminateStampsExitLabel(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 1)
	e := f.hire(t, f.person(t, "Ana", 30).ID, position.ID)

	updated, err := f.service.Terminate(context.Background(), e.ID, domain.ExitResignation, nil, "moving abroad")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if updated.CurrentStatus != domain.StatusResigned {
		t.Fatalf("expected REN from resignation, got %s", updated.CurrentStatus)
	}
	if updated.ExitReason == nil || *updated.ExitReason != domain.ExitResignation {
		t.Fatalf("expected exit reason recorded, got %v", updated.ExitReason)
	}

	logs, _ := f.service.History(context.Background(), e.ID)
	last := logs[len(logs)-1]
	if last.Reason != "Resignation: moving abroad" {
		t.Fatalf("expected label+notes audit reason, got %q", last.Reason)
	}

	// Seat is free again
	summary, _ := f.service.Vacancies(context.Background(), position.ID)
	if summary.Occupied != 0 || summary.Remaining != 1 {
		t.Fatalf("expected seat released, got %d occupied %d remaining", summary.Occupied, summary.Remaining)
	}
}

func TestReactivationClearsExitFieldsAndRechecksCapacity(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 1)
	ana := f.person(t, "Ana", 30)
	e := f.hire(t, ana.ID, position.ID)

	if _, err := f.service.Terminate(context.Background(), e.ID, domain.ExitDismissal, nil, ""); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	// Someone else takes the seat
	f.hire(t, f.person(t, "Bruno", 28).ID, position.ID)

	// Reactivating Ana must fail: the only seat is taken
	_, err := f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{NewStatus: domain.StatusActive})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error on reactivation into a full position, got %v", err)
	}

	// On a free position reactivation clears the exit trace
	position2 := f.position(t, 1)
	e2 := f.hire(t, f.person(t, "Carla", 35).ID, position2.ID)
	if _, err := f.service.Terminate(context.Background(), e2.ID, domain.ExitContractEnd, nil, "done"); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	reactivated, err := f.service.ChangeStatus(context.Background(), e2.ID, StatusChangeRequest{NewStatus: domain.StatusActive})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if reactivated.EndDate != nil || reactivated.ExitReason != nil || reactivated.ExitNotes != "" {
		t.Fatalf("expected exit fields cleared on reactivation, got end=%v reason=%v notes=%q",
			reactivated.EndDate, reactivated.ExitReason, reactivated.ExitNotes)
	}
}

func TestExitReasonRejectedOnActiveTarget(t *testing.T) {
	f := newLedgerFixture()
	e := f.hire(t, f.person(t, "Ana", 30).ID, f.position(t, 1).ID)

	reason := domain.ExitResignation
	_, err := f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{
		NewStatus:  domain.StatusSuspended,
		ExitReason: &reason,
	})
	if err == nil {
		t.Fatal("expected error: exit reason on an active-like target status")
	}
}

func TestSuspensionKeepsSeatOccupied(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 1)
	e := f.hire(t, f.person(t, "Ana", 30).ID, position.ID)

	if _, err := f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{NewStatus: domain.StatusSuspended}); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	_, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   f.person(t, "Bruno", 28).ID,
		PositionID: position.ID,
		HireDate:   today(),
	})
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("suspended contract must still hold its seat, got %v", err)
	}
}

func TestSuspensionKeepsFixedTermEndDate(t *testing.T) {
	f := newLedgerFixture()
	end := today().AddDate(0, 6, 0)
	e, err := f.service.Hire(context.Background(), HireRequest{
		PersonID:   f.person(t, "Ana", 30).ID,
		PositionID: f.position(t, 1).ID,
		HireDate:   today(),
		EndDate:    &end,
	})
	if err != nil {
		t.Fatalf("hire: %v", err)
	}

	// Active-to-active change without an end date in the request must
	// not wipe the contract's expiry.
	updated, err := f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{NewStatus: domain.StatusSuspended})
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if updated.EndDate == nil || !updated.EndDate.Equal(end) {
		t.Fatalf("suspension lost the fixed-term end date, got %v", updated.EndDate)
	}

	// An explicit end date in the request still wins.
	newEnd := today().AddDate(1, 0, 0)
	updated, err = f.service.ChangeStatus(context.Background(), e.ID, StatusChangeRequest{
		NewStatus: domain.StatusActive,
		EndDate:   &newEnd,
	})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if updated.EndDate == nil || !updated.EndDate.Equal(newEnd) {
		t.Fatalf("explicit end date not preserved, got %v", updated.EndDate)
	}
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func TestLedgerWritesDropCachedDashboard(t *testing.T) {
	f := newLedgerFixture()
	inv := &countingInvalidator{}
	f.service.SetCacheInvalidator(inv)

	e := f.hire(t, f.person(t, "Ana", 30).ID, f.position(t, 1).ID)
	if inv.calls != 1 {
		t.Fatalf("expected cache drop after hire, got %d calls", inv.calls)
	}

	if _, err := f.service.Terminate(context.Background(), e.ID, domain.ExitResignation, nil, ""); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if inv.calls != 2 {
		t.Fatalf("expected cache drop after termination, got %d calls", inv.calls)
	}

	if err := f.service.Delete(context.Background(), e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if inv.calls != 3 {
		t.Fatalf("expected cache drop after delete, got %d calls", inv.calls)
	}
}

func TestDeleteReleasesSeat(t *testing.T) {
	f := newLedgerFixture()
	position := f.position(t, 1)
	e := f.hire(t, f.person(t, "Ana", 30).ID, position.ID)

	if err := f.service.Delete(context.Background(), e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.service.Get(context.Background(), e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// Seat is usable again
	f.hire(t, f.person(t, "Bruno", 28).ID, position.ID)
}

func TestYearsBetween(t *testing.T) {
	birth := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		ref  time.Time
		want int
	}{
		{time.Date(2018, 6, 14, 0, 0, 0, 0, time.UTC), 17},
		{time.Date(2018, 6, 15, 0, 0, 0, 0, time.UTC), 18},
		{time.Date(2018, 12, 1, 0, 0, 0, 0, time.UTC), 18},
	}
	for _, c := range cases {
		if got := yearsBetween(birth, c.ref); got != c.want {
			t.Errorf("yearsBetween(%s) = %d, want %d", c.ref.Format("2006-01-02"), got, c.want)
		}
	}
}
