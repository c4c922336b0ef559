package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/workforce/internal/domain"
	"github.com/yourorg/workforce/internal/repository"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/auth"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/service"
	"github.com/yourorg/workforce/pkg/cache"
)

// rig wires the full handler surface over the in-memory store, without
// the auth middleware; tests attach claims to the request directly.
type rig struct {
	store *repository.MemStore
	mux   *http.ServeMux

	employments *service.EmploymentService
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemStore()

	employments := service.NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, log)
	hierarchy := service.NewHierarchyService(store.Positions(), store.Ledger(), store.Persons(), cache.New(), log)
	org := service.NewOrgService(store.Positions(), log)
	persons := service.NewPersonService(store.Persons(), log)
	roles := service.NewDeptRoleService(store.Roles(), store.Persons(), log)
	accounts := service.NewAuthService(store.Users(), store.Persons(), store.Ledger(), auth.NewTokenManager("test-secret", "workforce"), log)
	authz := security.NewAuthorizationService(log)

	employmentHandler := NewEmploymentHandler(employments, accounts, authz, log)
	orgHandler := NewOrgHandler(org, employments, authz, log)
	hierarchyHandler := NewHierarchyHandler(hierarchy, authz, log)
	personHandler := NewPersonHandler(persons, authz, log)
	deptRoleHandler := NewDeptRoleHandler(roles, authz, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/employments", employmentHandler.Create)
	mux.HandleFunc("GET /api/employments", employmentHandler.List)
	mux.HandleFunc("GET /api/employments/{id}", employmentHandler.Get)
	mux.HandleFunc("POST /api/employments/{id}/status", employmentHandler.ChangeStatus)
	mux.HandleFunc("POST /api/employments/{id}/terminate", employmentHandler.Terminate)
	mux.HandleFunc("DELETE /api/employments/{id}", employmentHandler.Delete)
	mux.HandleFunc("GET /api/employments/{id}/history", employmentHandler.History)
	mux.HandleFunc("POST /api/departments", orgHandler.CreateDepartment)
	mux.HandleFunc("GET /api/departments", orgHandler.ListDepartments)
	mux.HandleFunc("POST /api/job-titles", orgHandler.CreateJobTitle)
	mux.HandleFunc("POST /api/positions", orgHandler.CreatePosition)
	mux.HandleFunc("GET /api/positions/{id}/vacancies", orgHandler.Vacancies)
	mux.HandleFunc("PUT /api/positions/{id}/managers", orgHandler.SetReportingLines)
	mux.HandleFunc("GET /api/people/{id}/org-chart", hierarchyHandler.OrgChart)
	mux.HandleFunc("GET /api/positions/{id}/supervisor", hierarchyHandler.Supervisor)
	mux.HandleFunc("POST /api/people", personHandler.Create)
	mux.HandleFunc("POST /api/department-roles", deptRoleHandler.Assign)

	return &rig{store: store, mux: mux, employments: employments}
}

func adminClaims() *auth.Claims {
	return &auth.Claims{UserID: 1, Email: "hr@example.com", Role: string(security.RoleHRAdmin)}
}

func employeeClaims(personID int64) *auth.Claims {
	return &auth.Claims{UserID: 2, Email: "me@example.com", PersonID: &personID, Role: string(security.RoleEmployee)}
}

// do runs a request through the mux with the given claims attached.
func (r *rig) do(t *testing.T, claims *auth.Claims, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey{}, claims))
	}
	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// seedPosition creates a department, job title, and position with the
// given number of seats, returning the position.
func (r *rig) seedPosition(t *testing.T, seats int) *domain.Position {
	t.Helper()
	ctx := context.Background()
	d, err := r.store.Positions().CreateDepartment(ctx, &domain.Department{Name: "Engineering"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	jt, err := r.store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Engineer"})
	if err != nil {
		t.Fatalf("create job title: %v", err)
	}
	p, err := r.store.Positions().Create(ctx, &domain.Position{
		DepartmentID: d.ID,
		JobTitleID:   jt.ID,
		Vacancies:    seats,
	})
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	return p
}

func (r *rig) seedPerson(t *testing.T, name string) *domain.Person {
	t.Helper()
	birth := time.Now().UTC().AddDate(-30, 0, -1)
	p, err := r.store.Persons().Create(context.Background(), &domain.Person{FirstName: name, Birthdate: &birth})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return p
}

func todayString() string {
	return time.Now().UTC().Format("2006-01-02")
}
