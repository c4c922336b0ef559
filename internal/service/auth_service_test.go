package service

import (
	"context"
	"testing"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/repository"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/auth"
)

func newAuthFixture() (*repository.MemStore, *AuthService) {
	store := repository.NewMemStore()
	tokens := auth.NewTokenManager("test-secret", "workforce")
	return store, NewAuthService(store.Users(), store.Persons(), store.Ledger(), tokens, testLogger())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	_, s := newAuthFixture()

	r, err := s.Register(ctx, "alice@example.com", "alice", "Password123", nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.UserID == 0 || r.Token == "" {
		t.Fatalf("expected user id and token")
	}

	// Duplicate email
	if _, err := s.Register(ctx, "alice@example.com", "alice2", "Password123", nil); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	// Login ok
	lr, err := s.Login(ctx, "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" {
		t.Fatalf("expected token on login")
	}
	if lr.Role != string(security.RoleEmployee) {
		t.Fatalf("non-staff account should map to employee role, got %s", lr.Role)
	}

	// Login wrong password
	if _, err := s.Login(ctx, "alice@example.com", "Wrong"); err == nil {
		t.Fatalf("expected invalid credentials error")
	}
}

func TestRegisterEnforcesOneAccountPerPerson(t *testing.T) {
	ctx := context.Background()
	store, s := newAuthFixture()

	person, err := store.Persons().Create(ctx, &domain.Person{FirstName: "Ana"})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	if _, err := s.Register(ctx, "ana@example.com", "ana", "Password123", &person.ID); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := s.Register(ctx, "ana2@example.com", "ana2", "Password123", &person.ID); err == nil {
		t.Fatalf("expected one-account-per-person error")
	}
}

func TestTokenCarriesRoleAndPersonLink(t *testing.T) {
	ctx := context.Background()
	store, s := newAuthFixture()

	person, _ := store.Persons().Create(ctx, &domain.Person{FirstName: "Ana"})
	r, err := s.Register(ctx, "ana@example.com", "ana", "Password123", &person.ID)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	claims, err := s.VerifyToken(r.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != r.UserID {
		t.Fatalf("token user id = %d, want %d", claims.UserID, r.UserID)
	}
	if claims.PersonID == nil || *claims.PersonID != person.ID {
		t.Fatalf("token should carry the person link, got %v", claims.PersonID)
	}
	if claims.Role != string(security.RoleEmployee) {
		t.Fatalf("token role = %q, want employee", claims.Role)
	}
}

func TestStaffAccountGetsAdminRole(t *testing.T) {
	ctx := context.Background()
	store, s := newAuthFixture()

	r, err := s.Register(ctx, "hr@example.com", "hr", "Password123", nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	u, err := store.Users().GetByID(ctx, r.UserID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	u.IsStaff = true
	if err := store.Users().Update(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	lr, err := s.Login(ctx, "hr@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Role != string(security.RoleHRAdmin) {
		t.Fatalf("staff account should map to hr_admin, got %s", lr.Role)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	_, s := newAuthFixture()
	reg, err := s.Register(ctx, "bob@example.com", "bob", "OldPass123", nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Wrong old password
	if err := s.ChangePassword(ctx, reg.UserID, "bad", "NewPass123"); err == nil {
		t.Fatalf("expected wrong old password error")
	}
	// Good change
	if err := s.ChangePassword(ctx, reg.UserID, "OldPass123", "NewPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	// Old password should no longer work
	if _, err := s.Login(ctx, "bob@example.com", "OldPass123"); err == nil {
		t.Fatalf("expected old password to fail after change")
	}
	// New password works
	if _, err := s.Login(ctx, "bob@example.com", "NewPass123"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestPendingAccounts(t *testing.T) {
	ctx := context.Background()
	store, s := newAuthFixture()
	employments := NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, testLogger())

	dept, _ := store.Positions().CreateDepartment(ctx, &domain.Department{Name: "Ops"})
	title, _ := store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Operator"})
	position, _ := store.Positions().Create(ctx, &domain.Position{
		DepartmentID: dept.ID,
		JobTitleID:   title.ID,
		Vacancies:    3,
	})

	ana, _ := store.Persons().Create(ctx, &domain.Person{FirstName: "Ana"})
	bruno, _ := store.Persons().Create(ctx, &domain.Person{FirstName: "Bruno"})
	for _, p := range []*domain.Person{ana, bruno} {
		if _, err := employments.Hire(ctx, HireRequest{
			PersonID:   p.ID,
			PositionID: position.ID,
			HireDate:   today(),
		}); err != nil {
			t.Fatalf("hire: %v", err)
		}
	}

	if _, err := s.Register(ctx, "ana@example.com", "ana", "Password123", &ana.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	pending, err := s.PendingAccounts(ctx)
	if err != nil {
		t.Fatalf("pending accounts: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != bruno.ID {
		t.Fatalf("expected only Bruno pending, got %+v", pending)
	}
}
