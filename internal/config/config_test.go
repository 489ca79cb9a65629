package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "")
	t.Setenv("LLM_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.InDelta(t, 0.7, cfg.HighValueLeadMin, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("LLM_TIMEOUT", "2s")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200300")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DATABASE_AUTO_MIGRATE", "false")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, 2*time.Second, cfg.LLMTimeout)
	assert.Equal(t, int64(-100200300), cfg.TelegramChatID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseDriver: "sqlite", Environment: EnvProduction, JWTSecret: defaultJWTSecret}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-real-secret"
	require.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	require.Error(t, cfg.Validate())
}
