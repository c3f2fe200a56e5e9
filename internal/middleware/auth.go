package middleware

import (
	"context"
	"net/http"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/policy"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (model.Actor, error)
}

// Authenticate resolves the actor once and stores it in the context.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := a.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			_ = c.Error(apperrors.Wrap(err))
			c.Abort()
			return
		}
		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// RequireAdmin guards operator endpoints. Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			_ = c.Error(apperrors.NewUnauthenticated(nil))
			c.Abort()
			return
		}
		if d := policy.CanChangePrivileged(actor); !d.Allowed {
			_ = c.Error(apperrors.NewForbidden(policy.ReasonAdminOnly))
			c.Abort()
			return
		}
		c.Next()
	}
}
