package ratelimit

import (
	"context"
	"time"

	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisStore keeps buckets in Redis so several processes can share them.
// When Redis is unreachable it degrades to a process-local store.
type RedisStore struct {
	Client   redis.Scripter
	Prefix   string
	Timeout  time.Duration
	Fallback Store
}

func NewRedis(client redis.Scripter) *RedisStore {
	return &RedisStore{
		Client:   client,
		Prefix:   "rl:",
		Timeout:  500 * time.Millisecond,
		Fallback: NewInMemory(),
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string, rule Rule) Decision {
	rule = normalize(rule)
	if s.Client == nil {
		return s.Fallback.Allow(ctx, key, rule)
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := rateLimitScript.Run(ctx, s.Client, []string{s.Prefix + bucketKey(rule, key)}, rule.Window.Milliseconds()).Result()
	if err != nil {
		logger.Warn("redis rate limit unavailable, using local buckets", "error", err)
		return s.Fallback.Allow(ctx, key, rule)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return s.Fallback.Allow(ctx, key, rule)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = rule.Window.Milliseconds()
	}
	remaining := rule.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= rule.Max,
		Count:     int(count),
		Limit:     rule.Max,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}
}
