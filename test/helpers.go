package test

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
	"github.com/yourorg/workforce/internal/handler"
	"github.com/yourorg/workforce/internal/repository"
	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/auth"
	"github.com/yourorg/workforce/internal/security/middleware"
	"github.com/yourorg/workforce/internal/security/ratelimit"
	"github.com/yourorg/workforce/internal/service"
	"github.com/yourorg/workforce/pkg/cache"
)

// TestServerHelper runs the full HTTP surface over the in-memory store,
// with the real JWT middleware in front, so tests exercise the same
// request path a deployed server would.
type TestServerHelper struct {
	Server *httptest.Server
	Store  *repository.MemStore
	Logger *slog.Logger
	Auth   *service.AuthService
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemStore()

	employments := service.NewEmploymentService(store.Ledger(), store.Positions(), store.Persons(), nil, log)
	hierarchy := service.NewHierarchyService(store.Positions(), store.Ledger(), store.Persons(), cache.New(), log)
	org := service.NewOrgService(store.Positions(), log)
	persons := service.NewPersonService(store.Persons(), log)
	roles := service.NewDeptRoleService(store.Roles(), store.Persons(), log)

	tokenManager := auth.NewTokenManager("integration-test-secret", "workforce")
	authService := service.NewAuthService(store.Users(), store.Persons(), store.Ledger(), tokenManager, log)
	authz := security.NewAuthorizationService(log)
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	employmentHandler := handler.NewEmploymentHandler(employments, authService, authz, log)
	orgHandler := handler.NewOrgHandler(org, employments, authz, log)
	hierarchyHandler := handler.NewHierarchyHandler(hierarchy, authz, log)
	personHandler := handler.NewPersonHandler(persons, authz, log)
	deptRoleHandler := handler.NewDeptRoleHandler(roles, authz, log)
	authHandler := handler.NewAuthHandler(authService, limiter, authz, log)
	healthHandler := handler.NewHealthHandler(nil, nil, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("GET /api/accounts/pending", authHandler.PendingAccounts)

	mux.HandleFunc("POST /api/employments", employmentHandler.Create)
	mux.HandleFunc("GET /api/employments", employmentHandler.List)
	mux.HandleFunc("GET /api/employments/{id}", employmentHandler.Get)
	mux.HandleFunc("POST /api/employments/{id}/status", employmentHandler.ChangeStatus)
	mux.HandleFunc("POST /api/employments/{id}/terminate", employmentHandler.Terminate)
	mux.HandleFunc("GET /api/employments/{id}/history", employmentHandler.History)

	mux.HandleFunc("POST /api/departments", orgHandler.CreateDepartment)
	mux.HandleFunc("GET /api/departments", orgHandler.ListDepartments)
	mux.HandleFunc("POST /api/job-titles", orgHandler.CreateJobTitle)
	mux.HandleFunc("POST /api/positions", orgHandler.CreatePosition)
	mux.HandleFunc("GET /api/positions/{id}/vacancies", orgHandler.Vacancies)
	mux.HandleFunc("GET /api/positions/{id}/supervisor", hierarchyHandler.Supervisor)
	mux.HandleFunc("POST /api/people", personHandler.Create)
	mux.HandleFunc("GET /api/people/{id}/org-chart", hierarchyHandler.OrgChart)
	mux.HandleFunc("POST /api/department-roles", deptRoleHandler.Assign)

	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	server := httptest.NewServer(middleware.JWTMiddleware(tokenManager, log)(mux))
	t.Cleanup(server.Close)

	return &TestServerHelper{Server: server, Store: store, Logger: log, Auth: authService}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// RegisterAdmin registers an account, promotes it to staff, and returns
// a freshly logged-in admin token.
func (h *TestServerHelper) RegisterAdmin(t *testing.T, email, password string) string {
	t.Helper()
	ctx := context.Background()

	result, err := h.Auth.Register(ctx, email, "admin", password, nil)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	user, err := h.Store.Users().GetByID(ctx, result.UserID)
	if err != nil {
		t.Fatalf("load admin user: %v", err)
	}
	user.IsStaff = true
	if err := h.Store.Users().Update(ctx, user); err != nil {
		t.Fatalf("promote admin user: %v", err)
	}

	login, err := h.Auth.Login(ctx, email, password)
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	return login.Token
}

// SeedPosition creates a department, job title, and position with the
// given capacity directly in the store.
func (h *TestServerHelper) SeedPosition(t *testing.T, department string, seats int) *domain.Position {
	t.Helper()
	ctx := context.Background()
	d, err := h.Store.Positions().CreateDepartment(ctx, &domain.Department{Name: department})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	jt, err := h.Store.Positions().CreateJobTitle(ctx, &domain.JobTitle{Name: "Engineer"})
	if err != nil {
		t.Fatalf("create job title: %v", err)
	}
	p, err := h.Store.Positions().Create(ctx, &domain.Position{
		DepartmentID: d.ID,
		JobTitleID:   jt.ID,
		Vacancies:    seats,
	})
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	return p
}

func (h *TestServerHelper) SeedPerson(t *testing.T, name string) *domain.Person {
	t.Helper()
	birth := time.Now().UTC().AddDate(-30, 0, -1)
	p, err := h.Store.Persons().Create(context.Background(), &domain.Person{FirstName: name, Birthdate: &birth})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	return p
}

// DoJSON issues a request against the test server, attaching the bearer
// token when one is given, and decodes the JSON response into out.
func DoJSON(t *testing.T, method, url, token string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode response %q: %v", string(data), err)
		}
	}
	return resp
}

func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
