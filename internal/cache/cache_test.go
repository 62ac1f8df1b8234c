package cache

import (
	"testing"
	"time"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)

	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be deleted")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", "x", time.Millisecond)
	c.Set("long", "y")

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Fatalf("expected short to have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatalf("expected long to still be present")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("a", 1, time.Millisecond)
	c.SetWithTTL("b", 2, time.Millisecond)
	c.Set("c", 3)

	time.Sleep(5 * time.Millisecond)

	if n := c.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}
