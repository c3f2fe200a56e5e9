package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Security  SecurityConfig  `mapstructure:"security"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	Issuer        string        `mapstructure:"issuer"`
	SessionCookie string        `mapstructure:"session_cookie"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	// 为 true 时角色以 profiles 表为准，token 中的 role 仅作兜底
	ResolveRoleFromStore bool `mapstructure:"resolve_role_from_store"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RuleConfig is one rate-limit tier: at most Max requests per Window.
type RuleConfig struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

type RateLimitConfig struct {
	Backend string     `mapstructure:"backend"` // memory | redis
	Read    RuleConfig `mapstructure:"read"`
	Write   RuleConfig `mapstructure:"write"`
	User    RuleConfig `mapstructure:"user"`
}

type SecurityConfig struct {
	MaxPayloadBytes    int64    `mapstructure:"max_payload_bytes"`
	HSTS               bool     `mapstructure:"hsts"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	ReadOnly           bool     `mapstructure:"read_only"`
}

type AuditConfig struct {
	BufferSize   int         `mapstructure:"buffer_size"`
	Dir          string      `mapstructure:"dir"`
	RedisListKey string      `mapstructure:"redis_list_key"`
	RedisListMax int         `mapstructure:"redis_list_max"`
	Kafka        KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. PANELGATE_AUTH_JWT_SECRET
	v.SetEnvPrefix("panelgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	return decode(v)
}

// SetDefaults registers every key so env-only deployments still unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.environment", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "panelgate")
	v.SetDefault("auth.session_cookie", "panel_session")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.resolve_role_from_store", true)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.audit_retention_days", 90)
	v.SetDefault("database.max_open_conns", 25)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.read.window", "1m")
	v.SetDefault("ratelimit.read.max", 120)
	v.SetDefault("ratelimit.write.window", "1m")
	v.SetDefault("ratelimit.write.max", 30)
	v.SetDefault("ratelimit.user.window", "1m")
	v.SetDefault("ratelimit.user.max", 20)

	v.SetDefault("security.max_payload_bytes", 1<<20)
	v.SetDefault("security.hsts", false)
	v.SetDefault("security.cors_allowed_origins", []string{})
	v.SetDefault("security.read_only", false)

	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.dir", "./logs")
	v.SetDefault("audit.redis_list_key", "audit_records")
	v.SetDefault("audit.redis_list_max", 10000)
	v.SetDefault("audit.kafka.brokers", []string{})
	v.SetDefault("audit.kafka.topic", "panelgate.audit")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would leave the pipeline unsafe.
func (c *Config) Validate() error {
	if c.Security.MaxPayloadBytes <= 0 {
		return fmt.Errorf("security.max_payload_bytes must be positive")
	}
	for name, rule := range map[string]RuleConfig{"read": c.RateLimit.Read, "write": c.RateLimit.Write, "user": c.RateLimit.User} {
		if rule.Window <= 0 || rule.Max <= 0 {
			return fmt.Errorf("ratelimit.%s needs a positive window and max", name)
		}
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ratelimit.backend %q is not supported", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("ratelimit.backend=redis requires redis.addr")
	}
	if !c.IsProduction() {
		return nil
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("production requires auth.jwt_secret of at least 32 bytes")
	}
	for _, origin := range c.Security.CORSAllowedOrigins {
		o := strings.ToLower(strings.TrimSpace(origin))
		if o == "*" {
			return fmt.Errorf("production forbids wildcard CORS origin")
		}
		if !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("production requires HTTPS CORS origin, got %q", origin)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Server.Environment)) {
	case "prod", "production", "staging":
		return true
	default:
		return false
	}
}
