package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("orgchart:1", "a", 1*time.Second)
	c.Set("orgchart:2", "b", 1*time.Second)
	c.Set("dashboard:stats", "s", 1*time.Second)
	c.Invalidate("orgchart:")
	_, ok1 := c.Get("orgchart:1")
	_, ok2 := c.Get("orgchart:2")
	_, ok3 := c.Get("dashboard:stats")
	if ok1 || ok2 {
		t.Fatalf("expected orgchart keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected dashboard:stats to still exist")
	}
}
