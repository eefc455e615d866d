// # internal/data/cache/lru_test.go
package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[string, int](3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}

	for k, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		v, ok := c.Get(k)
		if !ok {
			t.Fatalf("expected hit for %q", k)
		}
		if v != want {
			t.Fatalf("key %q: want %d got %d", k, want, v)
		}
	}

	stats := c.Stats()
	if stats.Hits != 3 || stats.Misses != 1 || stats.Cap != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLRU_EvictLRU(t *testing.T) {
	c := NewLRU[string, int](2)
	var evicted []string
	c.OnEvict(func(k string, _ int) { evicted = append(evicted, k) })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Put("c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
	if _, ok := c.Peek("b"); ok {
		t.Fatal("expected 'b' to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("expected eviction callback for b, got %v", evicted)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "c" || keys[1] != "a" {
		t.Fatalf("expected recency order [c a], got %v", keys)
	}
}

func TestLRU_UpdateEvictClear(t *testing.T) {
	c := NewLRU[string, int](0)
	if c.Stats().Cap != 1 {
		t.Fatalf("expected capacity normalised to 1, got %d", c.Stats().Cap)
	}
	c.Put("a", 1)
	c.Put("a", 2)
	if v, _ := c.Peek("a"); v != 2 {
		t.Fatalf("expected updated value 2, got %d", v)
	}
	c.Evict("a")
	c.Evict("missing")
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
	c.Put("b", 1)
	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected clear to drop entries")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[string, int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Put(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("f[x_] := x") != ContentHash("f[x_] := x") {
		t.Fatal("expected stable hash")
	}
	if ContentHash("a = 1") == ContentHash("a = 2") {
		t.Fatal("expected different content to hash differently")
	}
}
