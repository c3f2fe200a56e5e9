package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/GoPolymarket/panelgate/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID reuses a well-formed inbound X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.LatencyBucket.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Recovery turns panics outside audited routes into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				abortWithPanic(c, r)
			}
		}()
		c.Next()
	}
}

func abortWithPanic(c *gin.Context, r any) {
	logger.Error("panic recovered", "panic", fmt.Sprint(r), "path", c.Request.URL.Path, "stack", string(debug.Stack()))
	_ = c.Error(apperrors.New(apperrors.ErrInternal, "unexpected panic", fmt.Errorf("%v", r)))
	c.Abort()
}
