package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*InMemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewInMemory()
	s.now = clock.Now
	return s, clock
}

func TestInMemoryWindow(t *testing.T) {
	store, clock := newTestStore()
	rule := Rule{Scope: "write", Window: 10 * time.Second, Max: 3}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := store.Allow(ctx, "10.0.0.1", rule)
		require.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, 3-i, d.Remaining)
	}

	clock.Advance(4 * time.Second)
	d := store.Allow(ctx, "10.0.0.1", rule)
	assert.False(t, d.Allowed, "4th request inside the window must be throttled")
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 6*time.Second, d.RetryAfter(clock.Now()))

	clock.Advance(6 * time.Second)
	d = store.Allow(ctx, "10.0.0.1", rule)
	assert.True(t, d.Allowed, "first request after the window elapses is allowed")
	assert.Equal(t, 1, d.Count)
}

func TestInMemoryKeysAndScopesAreIndependent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	read := Rule{Scope: "read", Window: time.Minute, Max: 1}
	write := Rule{Scope: "write", Window: time.Minute, Max: 1}

	assert.True(t, store.Allow(ctx, "a", read).Allowed)
	assert.False(t, store.Allow(ctx, "a", read).Allowed)
	assert.True(t, store.Allow(ctx, "b", read).Allowed)
	assert.True(t, store.Allow(ctx, "a", write).Allowed)
}

func TestInMemoryLimitFloor(t *testing.T) {
	store, _ := newTestStore()
	d := store.Allow(context.Background(), "k", Rule{Scope: "x"})
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Limit)
}

func TestInMemorySweepsExpiredBuckets(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()
	rule := Rule{Scope: "read", Window: time.Second, Max: 5}

	store.Allow(ctx, "a", rule)
	store.Allow(ctx, "b", rule)
	assert.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Second)
	store.Allow(ctx, "c", rule)
	assert.Equal(t, 1, store.Len())
}

func TestInMemoryConcurrentSameKey(t *testing.T) {
	store := NewInMemory()
	rule := Rule{Scope: "user", Window: time.Hour, Max: 10}

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Allow(context.Background(), "actor-1", rule).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), allowed.Load())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client)
	rule := Rule{Scope: "write", Window: 50 * time.Millisecond, Max: 2}
	ctx := context.Background()

	first := store.Allow(ctx, "10.0.0.1", rule)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.True(t, store.Allow(ctx, "10.0.0.1", rule).Allowed)

	third := store.Allow(ctx, "10.0.0.1", rule)
	assert.False(t, third.Allowed)
	assert.Equal(t, 3, third.Count)
	assert.True(t, mr.Exists("rl:write:10.0.0.1"))

	mr.FastForward(60 * time.Millisecond)
	reset := store.Allow(ctx, "10.0.0.1", rule)
	assert.True(t, reset.Allowed)
	assert.Equal(t, 1, reset.Count)
}

func TestRedisStoreFallsBackWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()

	store := NewRedis(client)
	rule := Rule{Scope: "user", Window: time.Minute, Max: 1}

	assert.True(t, store.Allow(context.Background(), "u1", rule).Allowed)
	assert.False(t, store.Allow(context.Background(), "u1", rule).Allowed, "fallback must still enforce limits")
}
