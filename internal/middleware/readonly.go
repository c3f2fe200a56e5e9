package middleware

import (
	"net/http"

	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ReadOnly freezes writes, e.g. during a migration. Reads pass through.
func ReadOnly(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			_ = c.Error(apperrors.New(apperrors.ErrReadOnly, "service is in read-only mode", nil))
			c.Abort()
		}
	}
}
