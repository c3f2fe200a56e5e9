package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Recorder is the audit collaborator; *audit.Logger satisfies it.
type Recorder interface {
	Record(ctx context.Context, rec *model.AuditRecord)
}

// Audit opens a pending record before authentication and writes it exactly
// once when the chain returns, including after panics. Requests throttled
// before authentication are not recorded.
func Audit(rec Recorder, resource string, action model.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 先初始化审计对象并存入 Context，后续中间件和 Handler 可补充字段
		entry := &model.AuditRecord{
			Action:       action,
			ResourceType: resource,
			Request:      requestMeta(c),
			Details:      make(map[string]any),
		}
		c.Set(ContextAuditRecord, entry)

		defer func() {
			if r := recover(); r != nil {
				abortWithPanic(c, r)
			}
			if c.GetBool(contextThrottled) {
				return
			}
			finalize(c, entry)
			rec.Record(c.Request.Context(), entry)
			metrics.RequestsTotal.WithLabelValues(resource, string(action), string(entry.Outcome)).Inc()
		}()

		c.Next()
	}
}

func requestMeta(c *gin.Context) model.RequestMeta {
	return model.RequestMeta{
		RequestID: c.GetString(ContextRequestID),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Origin:    c.GetHeader("Origin"),
	}
}

func finalize(c *gin.Context, entry *model.AuditRecord) {
	if actor, ok := ActorFrom(c); ok {
		id := actor.ID
		entry.ActorID = &id
		entry.ActorRole = actor.Role
	}
	if id := c.GetString(ContextResourceID); id != "" {
		entry.ResourceID = &id
	}

	if len(c.Errors) > 0 {
		appErr := apperrors.Wrap(c.Errors.Last().Err)
		entry.Outcome = model.OutcomeFailure
		entry.Status = appErr.HTTPStatus
		entry.Message = appErr.Message
		entry.Details["error_code"] = string(appErr.Type)
		entry.Details["retryable"] = apperrors.Retryable(appErr.Type)
		for k, v := range appErr.Details {
			entry.Details[k] = v
		}
		if cause := errors.Unwrap(appErr); cause != nil {
			entry.Details["cause"] = cause.Error()
		}
		return
	}

	entry.Status = c.Writer.Status()
	if entry.Status >= http.StatusBadRequest {
		entry.Outcome = model.OutcomeFailure
	} else {
		entry.Outcome = model.OutcomeSuccess
	}
	if entry.Message == "" {
		entry.Message = http.StatusText(entry.Status)
	}
}
