package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "workforce")
	personID := int64(7)

	token, err := tm.GenerateToken(42, "ana@example.com", "employee", &personID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user 42, got %d", claims.UserID)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("expected email ana@example.com, got %q", claims.Email)
	}
	if claims.Role != "employee" {
		t.Errorf("expected role employee, got %q", claims.Role)
	}
	if claims.PersonID == nil || *claims.PersonID != 7 {
		t.Errorf("expected person link 7, got %v", claims.PersonID)
	}
	if claims.Issuer != "workforce" {
		t.Errorf("expected issuer workforce, got %q", claims.Issuer)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "workforce")
	other := NewTokenManager("different-secret", "workforce")

	token, err := tm.GenerateToken(1, "a@example.com", "employee", nil, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with a different secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "workforce")

	token, err := tm.GenerateToken(1, "a@example.com", "employee", nil, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail for an expired token")
	}
}

func TestGenerateRequiresUserID(t *testing.T) {
	tm := NewTokenManager("test-secret", "workforce")
	if _, err := tm.GenerateToken(0, "a@example.com", "employee", nil, time.Hour); err == nil {
		t.Fatal("expected an error for missing user id")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc123")
	if err != nil {
		t.Fatalf("extract token: %v", err)
	}
	if token != "abc123" {
		t.Errorf("expected abc123, got %q", token)
	}

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer"} {
		if _, err := ExtractToken(header); err == nil {
			t.Errorf("expected error for header %q", header)
		}
	}
}
