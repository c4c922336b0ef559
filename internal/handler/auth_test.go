package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/yourorg/workforce/internal/security"
	"github.com/yourorg/workforce/internal/security/auth"
	"github.com/yourorg/workforce/internal/security/ratelimit"
	"github.com/yourorg/workforce/internal/service"
)

func newAuthRig(t *testing.T) (*rig, *ratelimit.Limiter) {
	t.Helper()
	r := newRig(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := auth.NewTokenManager("test-secret", "workforce")
	authService := service.NewAuthService(r.store.Users(), r.store.Persons(), r.store.Ledger(), tokens, log)
	limiter := ratelimit.NewLimiter(100, time.Minute)
	t.Cleanup(limiter.Stop)

	authHandler := NewAuthHandler(authService, limiter, security.NewAuthorizationService(log), log)
	r.mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	r.mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	r.mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	r.mux.HandleFunc("GET /api/accounts/pending", authHandler.PendingAccounts)
	return r, limiter
}

func TestRegisterThenLogin(t *testing.T) {
	r, _ := newAuthRig(t)

	rec := r.do(t, nil, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "Password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = r.do(t, nil, http.MethodPost, "/api/auth/login", AuthLoginRequest{
		Email:    "ana@example.com",
		Password: "Password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		Role      string `json:"role"`
	}
	decodeBody(t, rec, &result)
	if result.Token == "" || result.TokenType != "Bearer" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if result.Role != "employee" {
		t.Fatalf("fresh account should be employee, got %q", result.Role)
	}
}

func TestLoginRateLimited(t *testing.T) {
	r, _ := newAuthRig(t)

	rec := r.do(t, nil, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "Password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	// Five tries per minute per email; the sixth must be rejected even
	// with the right password.
	for i := 0; i < 5; i++ {
		r.do(t, nil, http.MethodPost, "/api/auth/login", AuthLoginRequest{
			Email:    "ana@example.com",
			Password: "wrong",
		})
	}
	rec = r.do(t, nil, http.MethodPost, "/api/auth/login", AuthLoginRequest{
		Email:    "ana@example.com",
		Password: "Password123",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
}

func TestPendingAccountsRequiresAdmin(t *testing.T) {
	r, _ := newAuthRig(t)
	person := r.seedPerson(t, "Ana")

	rec := r.do(t, employeeClaims(person.ID), http.MethodGet, "/api/accounts/pending", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee, got %d", rec.Code)
	}

	rec = r.do(t, adminClaims(), http.MethodGet, "/api/accounts/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin should list pending accounts, got %d: %s", rec.Code, rec.Body.String())
	}
}
