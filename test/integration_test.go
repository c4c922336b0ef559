package test

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// TestHealthEndpoints verifies the liveness and readiness probes.
func TestHealthEndpoints(t *testing.T) {
	server := NewTestServer(t)

	var health struct {
		Status string `json:"status"`
	}
	resp := DoJSON(t, http.MethodGet, server.URL()+"/healthz", "", nil, &health)
	AssertStatusCode(t, resp, http.StatusOK)
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp = DoJSON(t, http.MethodGet, server.URL()+"/readyz", "", nil, &ready)
	AssertStatusCode(t, resp, http.StatusOK)
	if ready.Status != "ready" {
		t.Errorf("expected status ready, got %q", ready.Status)
	}
}

// TestAuthRoundTrip registers an account over HTTP and logs in with it.
func TestAuthRoundTrip(t *testing.T) {
	server := NewTestServer(t)

	var registered struct {
		UserID int64  `json:"user_id"`
		Token  string `json:"token"`
	}
	resp := DoJSON(t, http.MethodPost, server.URL()+"/api/auth/register", "", map[string]any{
		"email":    "ana@example.com",
		"username": "ana",
		"password": "s3cret-enough",
	}, &registered)
	AssertStatusCode(t, resp, http.StatusCreated)
	if registered.Token == "" {
		t.Fatal("expected a token on registration")
	}

	var login struct {
		Role      string `json:"role"`
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	resp = DoJSON(t, http.MethodPost, server.URL()+"/api/auth/login", "", map[string]any{
		"email":    "ana@example.com",
		"password": "s3cret-enough",
	}, &login)
	AssertStatusCode(t, resp, http.StatusOK)
	if login.Token == "" || login.TokenType != "Bearer" {
		t.Fatalf("unexpected login result: %+v", login)
	}
	if login.Role != "employee" {
		t.Errorf("expected employee role, got %q", login.Role)
	}
}

// TestAPIRequiresToken verifies the JWT middleware rejects anonymous
// requests to protected routes.
func TestAPIRequiresToken(t *testing.T) {
	server := NewTestServer(t)

	resp := DoJSON(t, http.MethodGet, server.URL()+"/api/employments", "", nil, nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)

	resp = DoJSON(t, http.MethodGet, server.URL()+"/api/employments", "not-a-real-token", nil, nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

// TestHireFlow walks the whole hiring path over HTTP: an admin creates
// the org structure, hires someone, fills the position, and finally
// terminates the contract, freeing the seat again.
func TestHireFlow(t *testing.T) {
	server := NewTestServer(t)
	token := server.RegisterAdmin(t, "hr@example.com", "s3cret-enough")

	person := server.SeedPerson(t, "Ana")
	position := server.SeedPosition(t, "Engineering", 1)
	today := time.Now().UTC().Format("2006-01-02")

	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	resp := DoJSON(t, http.MethodPost, server.URL()+"/api/employments", token, map[string]any{
		"personId":   person.ID,
		"positionId": position.ID,
		"hireDate":   today,
	}, &created)
	AssertStatusCode(t, resp, http.StatusCreated)
	if created.Status != "ACT" {
		t.Fatalf("expected ACT status, got %q", created.Status)
	}

	// The only seat is taken now; a second hire must be refused.
	other := server.SeedPerson(t, "Bruno")
	resp = DoJSON(t, http.MethodPost, server.URL()+"/api/employments", token, map[string]any{
		"personId":   other.ID,
		"positionId": position.ID,
		"hireDate":   today,
	}, nil)
	AssertStatusCode(t, resp, http.StatusConflict)

	var vacancies struct {
		Occupied int `json:"occupied"`
		Vacant   int `json:"vacant"`
	}
	url := fmt.Sprintf("%s/api/positions/%d/vacancies", server.URL(), position.ID)
	resp = DoJSON(t, http.MethodGet, url, token, nil, &vacancies)
	AssertStatusCode(t, resp, http.StatusOK)
	if vacancies.Occupied != 1 || vacancies.Vacant != 0 {
		t.Fatalf("expected 1 occupied / 0 vacant, got %d/%d", vacancies.Occupied, vacancies.Vacant)
	}

	var terminated struct {
		Status  string  `json:"status"`
		EndDate *string `json:"endDate"`
	}
	url = fmt.Sprintf("%s/api/employments/%d/terminate", server.URL(), created.ID)
	resp = DoJSON(t, http.MethodPost, url, token, map[string]any{
		"exitReason": "REN",
		"exitNotes":  "found a new role",
	}, &terminated)
	AssertStatusCode(t, resp, http.StatusOK)
	if terminated.Status != "REN" {
		t.Errorf("expected REN status after resignation, got %q", terminated.Status)
	}
	if terminated.EndDate == nil || *terminated.EndDate != today {
		t.Errorf("expected end date %s, got %v", today, terminated.EndDate)
	}

	resp = DoJSON(t, http.MethodGet, fmt.Sprintf("%s/api/positions/%d/vacancies", server.URL(), position.ID), token, nil, &vacancies)
	AssertStatusCode(t, resp, http.StatusOK)
	if vacancies.Vacant != 1 {
		t.Errorf("expected the seat released, got %d vacant", vacancies.Vacant)
	}

	var history struct {
		History []struct {
			Reason string `json:"reason"`
		} `json:"history"`
	}
	resp = DoJSON(t, http.MethodGet, fmt.Sprintf("%s/api/employments/%d/history", server.URL(), created.ID), token, nil, &history)
	AssertStatusCode(t, resp, http.StatusOK)
	if len(history.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history.History))
	}
	if history.History[0].Reason != "initial hire" {
		t.Errorf("expected initial hire entry first, got %q", history.History[0].Reason)
	}
	if history.History[1].Reason != "Resignation: found a new role" {
		t.Errorf("unexpected exit entry reason %q", history.History[1].Reason)
	}
}

// TestEmployeeCannotHire verifies role enforcement end to end: a plain
// account holding a valid token still cannot create employments.
func TestEmployeeCannotHire(t *testing.T) {
	server := NewTestServer(t)

	var registered struct {
		Token string `json:"token"`
	}
	resp := DoJSON(t, http.MethodPost, server.URL()+"/api/auth/register", "", map[string]any{
		"email":    "carla@example.com",
		"username": "carla",
		"password": "s3cret-enough",
	}, &registered)
	AssertStatusCode(t, resp, http.StatusCreated)

	person := server.SeedPerson(t, "Carla")
	position := server.SeedPosition(t, "Engineering", 1)

	resp = DoJSON(t, http.MethodPost, server.URL()+"/api/employments", registered.Token, map[string]any{
		"personId":   person.ID,
		"positionId": position.ID,
		"hireDate":   time.Now().UTC().Format("2006-01-02"),
	}, nil)
	AssertStatusCode(t, resp, http.StatusForbidden)
}
