package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("user-1") {
		t.Fatal("fourth request should be rejected")
	}

	// Other callers are unaffected
	if !l.Allow("user-2") {
		t.Fatal("separate caller should have its own budget")
	}
}

func TestEmptyKeyNotLimited(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if !l.Allow("") {
			t.Fatal("empty key must never be limited")
		}
	}
}

func TestAllowStrictSeparateBudget(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	for i := 0; i < 2; i++ {
		if !l.AllowStrict("ana@example.com", 2, time.Minute) {
			t.Fatalf("strict request %d should be allowed", i+1)
		}
	}
	if l.AllowStrict("ana@example.com", 2, time.Minute) {
		t.Fatal("third strict request should be rejected")
	}
	// The general budget for the same identifier stays open
	if !l.Allow("ana@example.com") {
		t.Fatal("general budget should be independent of strict budget")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(1, 30*time.Millisecond)
	defer l.Stop()

	if !l.Allow("user-1") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("user-1") {
		t.Fatal("second request inside the window should be rejected")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("user-1") {
		t.Fatal("request after the window should be allowed again")
	}
}
