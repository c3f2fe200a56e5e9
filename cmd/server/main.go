package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/panelgate/internal/audit"
	"github.com/GoPolymarket/panelgate/internal/auth"
	"github.com/GoPolymarket/panelgate/internal/config"
	"github.com/GoPolymarket/panelgate/internal/handler"
	"github.com/GoPolymarket/panelgate/internal/migrations"
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/logger"
	"github.com/GoPolymarket/panelgate/internal/ratelimit"
	"github.com/GoPolymarket/panelgate/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 0. Initialize Logger
	logger.Init("info")

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	gin.SetMode(cfg.Server.Mode)
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("auth.jwt_secret is required")
	}

	ctx := context.Background()
	resources := model.Resources()
	owners := storage.OwnerColumns(resources)

	// 2. Initialize Persistence
	// Resource store (Postgres > Memory)
	var store storage.Store
	var pool *pgxpool.Pool
	if cfg.Database.DSN != "" {
		db, err := storage.OpenPostgres(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		if cfg.Database.AutoMigrate {
			sqlDB, err := db.DB()
			if err != nil {
				log.Fatalf("Failed to get sql.DB: %v", err)
			}
			if err := migrations.Up(ctx, sqlDB); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
			logger.Info("✅ Migrations applied")
		}
		store = storage.NewGormStore(db, owners)
		logger.Info("✅ Connected to PostgreSQL")

		pool, err = storage.OpenPool(ctx, cfg.Database)
		if err != nil {
			logger.Error("⚠️ Failed to open audit pool, audit records will not reach Postgres", "error", err)
		}
	} else {
		if cfg.IsProduction() {
			log.Fatalf("database.dsn is required in %s", cfg.Server.Environment)
		}
		logger.Warn("⚠️ No database configured, using in-memory resource store")
		store = storage.NewMemoryStore(owners)
	}

	// Shared Redis (limiter buckets + recent audit list)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = storage.OpenRedis(ctx, cfg.Redis)
		switch {
		case err == nil:
			logger.Info("✅ Connected to Redis")
		case cfg.RateLimit.Backend == "redis":
			log.Fatalf("Redis is required by ratelimit.backend: %v", err)
		default:
			logger.Error("⚠️ Failed to connect to Redis, continuing without it", "error", err)
		}
	}

	var limiter ratelimit.Store = ratelimit.NewInMemory()
	if cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedis(rdb)
	}

	// 3. Audit sinks. Readers are tried in the order registered.
	recent := audit.NewMemorySink(cfg.Audit.BufferSize)
	hub := audit.NewHub(64)
	auditLog := audit.NewLogger()

	var pgSink *audit.PostgresSink
	if pool != nil {
		pgSink = audit.NewPostgresSink(pool)
		auditLog.Use("postgres", pgSink).ReadFrom(pgSink)
	}
	if rdb != nil {
		redisSink := audit.NewRedisSink(rdb, cfg.Audit.RedisListKey, cfg.Audit.RedisListMax)
		auditLog.Use("redis", redisSink).ReadFrom(redisSink)
	}
	var kafkaSink *audit.KafkaSink
	if len(cfg.Audit.Kafka.Brokers) > 0 {
		kafkaSink, err = audit.NewKafkaSink(audit.KafkaConfig{Brokers: cfg.Audit.Kafka.Brokers, Topic: cfg.Audit.Kafka.Topic})
		if err != nil {
			log.Fatalf("Failed to initialize kafka sink: %v", err)
		}
		auditLog.Use("kafka", kafkaSink)
	}
	var fileSink *audit.FileSink
	if cfg.Audit.Dir != "" {
		fileSink, err = audit.NewFileSink(cfg.Audit.Dir)
		if err != nil {
			log.Fatalf("Failed to initialize audit file sink: %v", err)
		}
		auditLog.Use("file", fileSink)
	}
	auditLog.Use("memory", recent).ReadFrom(recent)
	auditLog.Use("stream", hub)

	retentionCtx, stopRetention := context.WithCancel(ctx)
	defer stopRetention()
	if pgSink != nil && cfg.Database.AuditRetentionDays > 0 {
		go runRetention(retentionCtx, pgSink, time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour)
	}

	// 4. Authenticator
	authOpts := []auth.Option{auth.WithSessionCookie(cfg.Auth.SessionCookie)}
	if cfg.Auth.ResolveRoleFromStore {
		authOpts = append(authOpts, auth.WithIdentityStore(storage.NewProfileDirectory(store, "")))
	}
	authenticator := auth.New([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, authOpts...)

	// 5. Setup Router
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	r := handler.NewRouter(handler.RouterConfig{
		Deps: handler.Deps{
			Store:   store,
			Audit:   auditLog,
			Auth:    authenticator,
			Limiter: limiter,
			Limits: handler.Limits{
				Read:  rule("read", cfg.RateLimit.Read),
				Write: rule("write", cfg.RateLimit.Write),
				User:  rule("user", cfg.RateLimit.User),
			},
			MaxPayload: cfg.Security.MaxPayloadBytes,
			ReadOnly:   cfg.Security.ReadOnly,
		},
		Resources:   resources,
		AuditLister: auditLog,
		AuditHub:    hub,
		HSTS:        cfg.Security.HSTS,
		CORSOrigins: cfg.Security.CORSAllowedOrigins,
		MetricsPath: metricsPath,
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 PanelGate started", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// 审计 sink 在 HTTP 停止之后再关闭，避免丢失最后的记录
	stopRetention()
	if kafkaSink != nil {
		_ = kafkaSink.Close()
	}
	if fileSink != nil {
		_ = fileSink.Close()
	}
	if pool != nil {
		pool.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("Server exiting")
}

func rule(scope string, rc config.RuleConfig) ratelimit.Rule {
	return ratelimit.Rule{Scope: scope, Window: rc.Window, Max: rc.Max}
}

// runRetention purges audit rows past the retention window once a day.
func runRetention(ctx context.Context, sink *audit.PostgresSink, keep time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := sink.Cleanup(ctx, keep)
		if err != nil {
			logger.LogError(ctx, err, "audit retention cleanup failed")
		} else if n > 0 {
			logger.Info("audit retention cleanup", "deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
