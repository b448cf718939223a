package dupecache

import (
	"sync"
	"testing"
	"time"

	"opine/internal/logging"
)

// fakeClock lets tests move cache time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	c := New(ttl, logging.NewNop())
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCacheSetGetInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set(KindDuplicates, "SVY-1", []string{"a"})
	if v, ok := c.Get(KindDuplicates, "SVY-1"); !ok || len(v.([]string)) != 1 {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	// Same key under another kind is a distinct entry.
	if _, ok := c.Get("other", "SVY-1"); ok {
		t.Fatal("kinds must not share entries")
	}

	c.Invalidate(KindDuplicates, "SVY-1")
	if _, ok := c.Get(KindDuplicates, "SVY-1"); ok {
		t.Fatal("expected miss after invalidation")
	}
	// Invalidating an absent entry is fine.
	c.Invalidate(KindDuplicates, "SVY-1")
}

func TestCacheEntriesExpire(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set(KindDuplicates, "SVY-1", "v")
	clock.Advance(59 * time.Second)
	if _, ok := c.Get(KindDuplicates, "SVY-1"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get(KindDuplicates, "SVY-1"); ok {
		t.Fatal("entry outlived its TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}

	// The janitor reclaims the slot.
	c.deleteExpired()
	c.mu.RLock()
	raw := len(c.items)
	c.mu.RUnlock()
	if raw != 0 {
		t.Fatalf("expired entry still resident after cleanup: %d", raw)
	}
}

func TestCacheSetRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)

	c.Set(KindDuplicates, "SVY-1", "v1")
	clock.Advance(50 * time.Second)
	c.Set(KindDuplicates, "SVY-1", "v2")
	clock.Advance(50 * time.Second)

	v, ok := c.Get(KindDuplicates, "SVY-1")
	if !ok || v.(string) != "v2" {
		t.Fatalf("expected refreshed entry, got %v %v", v, ok)
	}
}

func TestCacheClear(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	c.Set(KindDuplicates, "SVY-1", "v")
	c.Set(KindDuplicates, "SVY-2", "v")
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len after Clear = %d", c.Len())
	}
}

func TestCacheCloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, logging.NewNop())
	c.Close()
	c.Close()
}
