package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/GoPolymarket/panelgate/internal/pkg/metrics"
	"github.com/GoPolymarket/panelgate/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket key for a request. ok=false skips limiting.
type KeyFunc func(c *gin.Context) (key string, ok bool)

func ByClientIP(c *gin.Context) (string, bool) {
	return c.ClientIP(), true
}

// ByActor keys on the authenticated user. Must run after Authenticate.
func ByActor(c *gin.Context) (string, bool) {
	actor, ok := ActorFrom(c)
	if !ok || actor.ID == "" {
		return "", false
	}
	return actor.ID, true
}

// RateLimit throttles with a fixed window per key. A throttled request is
// answered 429; it is audited only when an actor was already established.
func RateLimit(store ratelimit.Store, rule ratelimit.Rule, keyOf KeyFunc) gin.HandlerFunc {
	warn := &rate.Sometimes{First: 3, Interval: 10 * time.Second}
	return func(c *gin.Context) {
		key, ok := keyOf(c)
		if !ok {
			c.Next()
			return
		}
		d := store.Allow(c.Request.Context(), key, rule)
		now := time.Now()

		c.Header(HeaderRateLimit, strconv.Itoa(d.Limit))
		c.Header(HeaderRateRemaining, strconv.Itoa(d.Remaining))
		c.Header(HeaderRateReset, strconv.FormatInt(d.ResetAt.Unix(), 10))

		if d.Allowed {
			c.Next()
			return
		}

		retry := int(math.Ceil(d.RetryAfter(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header(HeaderRetryAfter, strconv.Itoa(retry))
		metrics.Throttled.WithLabelValues(rule.Scope).Inc()
		warn.Do(func() {
			logger.Warn("rate limit exceeded", "scope", rule.Scope, "key", key, "count", d.Count, "limit", d.Limit)
		})

		// 认证之前的限流不留审计记录，认证之后的照常审计
		if _, authed := ActorFrom(c); !authed {
			c.Set(contextThrottled, true)
		}
		_ = c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil).
			WithDetail("retry_after_seconds", retry))
		c.Abort()
	}
}
