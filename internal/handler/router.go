package handler

import (
	"net/http"

	"github.com/GoPolymarket/panelgate/internal/middleware"
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Deps      Deps
	Resources []model.Descriptor

	// optional operator endpoints
	AuditLister AuditLister
	AuditHub    AuditSubscriber

	HSTS        bool
	CORSOrigins []string
	MetricsPath string // empty disables /metrics
}

// NewRouter builds the engine. Security headers are installed first so that
// every response, including 404s and throttles, carries them.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.SecurityHeaders(cfg.HSTS),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Metrics(),
		middleware.ErrorHandler(),
		middleware.Recovery(),
	)
	r.NoRoute(func(c *gin.Context) {
		fail(c, apperrors.NewNotFound("route"))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.OK(gin.H{"status": "ok", "service": "panelgate"}))
	})
	if cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	for _, desc := range cfg.Resources {
		Register(v1, desc, cfg.Deps)
	}

	if cfg.AuditLister != nil {
		ah := NewAuditHandler(cfg.AuditLister, cfg.AuditHub, cfg.CORSOrigins)
		admin := v1.Group("/audit",
			middleware.RateLimit(cfg.Deps.Limiter, cfg.Deps.Limits.Read, middleware.ByClientIP),
			middleware.Audit(cfg.Deps.Audit, "audit", model.ActionRead),
			middleware.Authenticate(cfg.Deps.Auth),
			middleware.RequireAdmin(),
		)
		admin.GET("", ah.List)
		if cfg.AuditHub != nil {
			admin.GET("/stream", ah.Stream)
		}
	}
	return r
}
