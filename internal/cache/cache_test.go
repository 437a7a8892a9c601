package cache

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryCacheBasic(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	// Initially empty
	if _, found := c.Get("test"); found {
		t.Error("expected cache miss for non-existent key")
	}

	c.Set("test", "<p>Hi</p>", time.Minute)

	html, found := c.Get("test")
	if !found {
		t.Error("expected cache hit")
	}
	if html != "<p>Hi</p>" {
		t.Errorf("unexpected html: %q", html)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("short", "x", 50*time.Millisecond)

	if _, found := c.Get("short"); !found {
		t.Error("expected cache hit immediately after set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected cache miss after TTL expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on read, got %d entries", c.Len())
	}
}

func TestMemoryCacheZeroTTLDisablesCaching(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("k", "x", 0)
	if c.Len() != 0 {
		t.Errorf("expected no entries, got %d", c.Len())
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)

	c.Invalidate("a")
	if _, found := c.Get("a"); found {
		t.Error("expected a to be invalidated")
	}
	if _, found := c.Get("b"); !found {
		t.Error("expected b to remain")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := newMemoryCache(10 * time.Millisecond)
	defer c.Stop()

	c.Set("gone", "x", 5*time.Millisecond)
	c.Set("kept", "y", time.Minute)

	deadline := time.Now().Add(time.Second)
	for c.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Len() != 1 {
		t.Errorf("expected background cleanup to leave 1 entry, got %d", c.Len())
	}
}

func TestMemoryCacheStopIdempotent(t *testing.T) {
	c := NewMemoryCache()
	c.Stop()
	c.Stop()
}

func TestMemoryCacheConcurrent(t *testing.T) {
	c := NewMemoryCache()
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("source", string(rune('a'+i%5)))
			c.Set(key, "html", time.Minute)
			c.Get(key)
			if i%7 == 0 {
				c.InvalidateAll()
			}
		}(i)
	}
	wg.Wait()
}

func TestKey(t *testing.T) {
	a := Key("p Hello")
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
	if a != Key("p Hello") {
		t.Error("key must be deterministic")
	}
	if a == Key("p Hello!") {
		t.Error("different sources must not collide")
	}
	if Key("src", "debug") == Key("src") {
		t.Error("parts must change the key")
	}
	if Key("bc", "a") == Key("c", "ab") {
		t.Error("parts must be delimited")
	}
}
