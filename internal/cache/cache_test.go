package cache

import "testing"

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)

	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) found an entry that was never set")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now more recently used than b
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to survive eviction")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestCache_GetOrCreate(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() int {
		calls++
		return 42
	}

	if v := c.GetOrCreate("k", create); v != 42 {
		t.Fatalf("GetOrCreate = %d, want 42", v)
	}
	if v := c.GetOrCreate("k", create); v != 42 {
		t.Fatalf("GetOrCreate (cached) = %d, want 42", v)
	}
	if calls != 1 {
		t.Fatalf("create called %d times, want 1", calls)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)

	if !c.Delete("a") {
		t.Fatal("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Fatal("second Delete(a) = true, want false")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a still present after Delete")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if got := c.Len(); got != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", got)
	}
}
