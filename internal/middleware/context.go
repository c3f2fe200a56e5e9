package middleware

import (
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	ContextActorKey     = "actor"
	ContextAuditRecord  = "audit_record"
	ContextRequestID    = "request_id"
	ContextResourceID   = "resource_id"
	contextThrottled    = "ratelimit_throttled"
	HeaderRequestID     = "X-Request-ID"
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// ActorFrom returns the actor resolved by Authenticate.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// SetResourceID records the validated target id for the audit record.
func SetResourceID(c *gin.Context, id string) {
	c.Set(ContextResourceID, id)
}

// AddAuditDetail 允许 Handler 向审计记录添加业务上下文
func AddAuditDetail(c *gin.Context, key string, value any) {
	if rec := pendingRecord(c); rec != nil {
		if rec.Details == nil {
			rec.Details = make(map[string]any)
		}
		rec.Details[key] = value
	}
}

// SetAuditMessage overrides the default message of a successful record.
func SetAuditMessage(c *gin.Context, msg string) {
	if rec := pendingRecord(c); rec != nil {
		rec.Message = msg
	}
}

func pendingRecord(c *gin.Context) *model.AuditRecord {
	v, ok := c.Get(ContextAuditRecord)
	if !ok {
		return nil
	}
	rec, _ := v.(*model.AuditRecord)
	return rec
}
