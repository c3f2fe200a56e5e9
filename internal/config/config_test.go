package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaultsDecode(t *testing.T) {
	cfg, err := decode(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Write.Window)
	assert.Equal(t, 30, cfg.RateLimit.Write.Max)
	assert.Equal(t, int64(1<<20), cfg.Security.MaxPayloadBytes)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "panel_session", cfg.Auth.SessionCookie)
	assert.False(t, cfg.Security.ReadOnly)
}

func TestValidateRejectsBadRules(t *testing.T) {
	v := newViper()
	v.Set("ratelimit.user.max", 0)
	_, err := decode(v)
	assert.ErrorContains(t, err, "ratelimit.user")

	v = newViper()
	v.Set("ratelimit.backend", "redis")
	_, err = decode(v)
	assert.ErrorContains(t, err, "redis.addr")

	v = newViper()
	v.Set("security.max_payload_bytes", -1)
	_, err = decode(v)
	assert.Error(t, err)
}

func TestValidateProduction(t *testing.T) {
	v := newViper()
	v.Set("server.environment", "production")
	_, err := decode(v)
	assert.ErrorContains(t, err, "jwt_secret")

	v.Set("auth.jwt_secret", "0123456789abcdef0123456789abcdef")
	v.Set("security.cors_allowed_origins", []string{"*"})
	_, err = decode(v)
	assert.ErrorContains(t, err, "wildcard")

	v.Set("security.cors_allowed_origins", []string{"https://panel.example.com"})
	cfg, err := decode(v)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
