package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "Credit Card Payment")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "Credit Card Payment", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(30 * time.Second)
	c.Set("c", 3)

	clock.t = clock.t.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	c.Delete("c")
	assert.Equal(t, 0, c.Size())
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	names := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)
	counts := NewLRUCache[int](10, time.Hour).WithClock(clock.Now)
	names.Set("x", "Cash Advance")
	counts.Set("y", 1)

	m := NewManager()
	m.Register("names", names)
	m.Register("counts", counts)

	clock.t = clock.t.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep(context.Background()))
	assert.Equal(t, 0, names.Size())
	assert.Equal(t, 1, counts.Size())
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager()
	m.Register("names", NewLRUCache[string](1, time.Minute))

	m.Start(context.Background(), 5*time.Millisecond)
	m.Start(context.Background(), 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	m.Stop()
	m.Stop()
}
