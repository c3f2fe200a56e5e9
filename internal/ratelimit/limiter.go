package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Rule is one tier: at most Max requests per Window for each key.
type Rule struct {
	Scope  string
	Window time.Duration
	Max    int
}

type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left until the window resets, relative to now.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.After(now) {
		return d.ResetAt.Sub(now)
	}
	return 0
}

// Store is the bucket backend. Implementations must make increment-and-compare
// atomic per key.
type Store interface {
	Allow(ctx context.Context, key string, rule Rule) Decision
}

func bucketKey(rule Rule, key string) string {
	return rule.Scope + ":" + key
}

func normalize(rule Rule) Rule {
	if rule.Window <= 0 {
		rule.Window = time.Minute
	}
	if rule.Max <= 0 {
		rule.Max = 1
	}
	return rule
}

type InMemoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	items     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		now:   time.Now,
		items: make(map[string]*bucket),
	}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, rule Rule) Decision {
	rule = normalize(rule)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)

	k := bucketKey(rule, key)
	b, ok := s.items[k]
	if !ok || now.Sub(b.windowStart) >= rule.Window {
		b = &bucket{windowStart: now, window: rule.Window}
		s.items[k] = b
	}
	b.count++

	remaining := rule.Max - b.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   b.count <= rule.Max,
		Count:     b.count,
		Limit:     rule.Max,
		Remaining: remaining,
		ResetAt:   b.windowStart.Add(rule.Window),
	}
}

// Len reports the number of live buckets.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// sweep drops expired buckets at most once per second. Caller holds s.mu.
func (s *InMemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < time.Second {
		return
	}
	s.lastSweep = now
	for k, b := range s.items {
		if now.Sub(b.windowStart) >= b.window {
			delete(s.items, k)
		}
	}
}
