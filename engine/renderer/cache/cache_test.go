package cache

import (
	"errors"
	"fmt"
	"testing"
)

func value(v int) func() (int, error) {
	return func() (int, error) { return v, nil }
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := New[string, int](capacity, nil); err == nil {
			t.Errorf("capacity %d: expected error, got nil", capacity)
		}
	}
}

func TestGetOrInsertHitDoesNotRebuild(t *testing.T) {
	c, err := New[string, int](4, nil)
	if err != nil {
		t.Fatal(err)
	}

	built := 0
	factory := func() (int, error) {
		built++
		return 42, nil
	}

	for i := 0; i < 100; i++ {
		v, err := c.GetOrInsert("pipeline", factory)
		if err != nil {
			t.Fatalf("frame %d: unexpected error %v", i, err)
		}
		if v != 42 {
			t.Fatalf("frame %d: expected 42, got %d", i, v)
		}
	}
	if built != 1 {
		t.Errorf("expected exactly 1 factory call across 100 lookups, got %d", built)
	}
}

func TestEvictsExactlyLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, err := New[string, int](3, func(key string, _ int) {
		evicted = append(evicted, key)
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, key := range []string{"a", "b", "c"} {
		if _, err := c.GetOrInsert(key, value(i)); err != nil {
			t.Fatal(err)
		}
	}

	// N+1th distinct key evicts exactly the LRU entry ("a").
	if _, err := c.GetOrInsert("d", value(3)); err != nil {
		t.Fatal(err)
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("expected eviction of a only, got %v", evicted)
	}
	if c.Contains("a") {
		t.Error("expected a to be gone")
	}
	for _, key := range []string{"b", "c", "d"} {
		if !c.Contains(key) {
			t.Errorf("expected %s to remain", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected len 3, got %d", c.Len())
	}
}

func TestReaccessProtectsFromEviction(t *testing.T) {
	var evicted []string
	c, err := New[string, int](3, func(key string, _ int) {
		evicted = append(evicted, key)
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, key := range []string{"a", "b", "c"} {
		if _, err := c.GetOrInsert(key, value(i)); err != nil {
			t.Fatal(err)
		}
	}

	// Touch "a" so "b" becomes the LRU victim.
	if _, err := c.GetOrInsert("a", func() (int, error) {
		t.Fatal("hit must not invoke factory")
		return 0, nil
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetOrInsert("d", value(3)); err != nil {
		t.Fatal(err)
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected eviction of b, got %v", evicted)
	}
	if !c.Contains("a") {
		t.Error("re-accessed key must survive eviction")
	}
}

func TestContainsDoesNotBumpRecency(t *testing.T) {
	c, err := New[string, int](2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrInsert("a", value(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrInsert("b", value(1)); err != nil {
		t.Fatal(err)
	}

	// Querying "a" is not a use; it must still be the eviction victim.
	if !c.Contains("a") {
		t.Fatal("expected a present")
	}
	if _, err := c.GetOrInsert("c", value(2)); err != nil {
		t.Fatal(err)
	}
	if c.Contains("a") {
		t.Error("Contains must not protect a key from eviction")
	}
}

func TestFactoryFailureLeavesCacheConsistent(t *testing.T) {
	c, err := New[string, int](2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrInsert("a", value(0)); err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("shader compile failed")
	_, err = c.GetOrInsert("bad", func() (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected factory error to propagate, got %v", err)
	}

	if c.Contains("bad") {
		t.Error("failed factory must not insert an entry")
	}
	if c.Len() != 1 {
		t.Errorf("expected len 1, got %d", c.Len())
	}

	// A later successful build for the same key must work.
	v, err := c.GetOrInsert("bad", value(7))
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
}

func TestClearRunsEvictionCallbackForAll(t *testing.T) {
	evicted := make(map[string]bool)
	c, err := New[string, int](8, func(key string, _ int) {
		evicted[key] = true
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, err := c.GetOrInsert(key, value(i)); err != nil {
			t.Fatal(err)
		}
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
	if len(evicted) != 5 {
		t.Errorf("expected 5 eviction callbacks, got %d", len(evicted))
	}

	// Cache must be usable after Clear (lazy rebuild on context loss).
	if _, err := c.GetOrInsert("k0", value(9)); err != nil {
		t.Fatal(err)
	}
	if !c.Contains("k0") {
		t.Error("expected insert after clear to succeed")
	}
}

func TestSharedRefCounting(t *testing.T) {
	destroyed := 0
	s := NewShared("texture", func(string) { destroyed++ })

	s.Retain() // consumer reference alongside the cache's
	s.Release()
	if destroyed != 0 {
		t.Fatal("resource destroyed while a reference remains")
	}

	s.Release()
	if destroyed != 1 {
		t.Fatalf("expected destroy to run once, ran %d times", destroyed)
	}
}

func TestEvictionDoesNotDestroyHeldHandle(t *testing.T) {
	destroyed := map[string]bool{}
	c, err := New[string, *Shared[string]](1, func(_ string, h *Shared[string]) {
		h.Release()
	})
	if err != nil {
		t.Fatal(err)
	}

	h, err := c.GetOrInsert("a", func() (*Shared[string], error) {
		return NewShared("res-a", func(string) { destroyed["a"] = true }), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	h.Retain() // in-flight batch reference

	// Insert over capacity; the cache releases its reference to "a".
	if _, err := c.GetOrInsert("b", func() (*Shared[string], error) {
		return NewShared("res-b", func(string) { destroyed["b"] = true }), nil
	}); err != nil {
		t.Fatal(err)
	}

	if destroyed["a"] {
		t.Error("eviction must not destroy a handle still held by a batch")
	}

	h.Release()
	if !destroyed["a"] {
		t.Error("last release must destroy the evicted resource")
	}
	if destroyed["b"] {
		t.Error("cached resource must stay alive")
	}
}
