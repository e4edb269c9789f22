package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("token:abc", "user-1", 1*time.Second)
	val, ok := c.Get("token:abc")
	if !ok || val != "user-1" {
		t.Fatalf("expected user-1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("token:abc", "user-1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("token:abc")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped on read, len=%d", c.Len())
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("token:abc", "user-1", 1*time.Second)
	c.Delete("token:abc")
	_, ok := c.Get("token:abc")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidate(t *testing.T) {
	c := New()
	c.Set("token:a", "u1", 1*time.Second)
	c.Set("token:b", "u2", 1*time.Second)
	c.Set("user:1", "ann", 1*time.Second)
	c.Invalidate("token:")
	_, ok1 := c.Get("token:a")
	_, ok2 := c.Get("token:b")
	_, ok3 := c.Get("user:1")
	if ok1 || ok2 {
		t.Fatalf("expected token keys to be invalidated")
	}
	if !ok3 {
		t.Fatalf("expected user:1 to still exist")
	}
}
