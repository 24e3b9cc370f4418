package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CSRF_SECRET", "another-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis().Addr)
}

func TestConfigValidation(t *testing.T) {
	base := Config{SessionSecret: "0123456789abcdef0123456789abcdef", CSRFSecret: "csrf"}
	require.NoError(t, base.validate())

	short := base
	short.SessionSecret = "short"
	assert.Error(t, short.validate())

	same := base
	same.CSRFSecret = same.SessionSecret
	assert.Error(t, same.validate())

	badDB := base
	badDB.RedisDB = -1
	assert.Error(t, badDB.validate())

	prod := base
	prod.AppEnv = "production"
	assert.Error(t, prod.validate(), "webhook secret required in production")
	prod.WebhookSecret = "hook"
	assert.NoError(t, prod.validate())
}

func TestConfigLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "DEBUG"}).Level())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warning"}).Level())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).Level())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "verbose"}).Level())
	var nilCfg *Config
	assert.Equal(t, slog.LevelInfo, nilCfg.Level())
}
