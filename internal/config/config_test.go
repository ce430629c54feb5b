package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHAT_DATABASE_DSN", "host=localhost user=postgres dbname=chat sslmode=disable")
	t.Setenv("CHAT_SIGNING_SECRET", testSigningSecret)
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		validEnv(t)

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "localhost:8000", cfg.ServerAddr)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, 1, cfg.Redis.DB)
		assert.Equal(t, 2*time.Minute, cfg.Presence.TTL)
		assert.Equal(t, 15*time.Second, cfg.Presence.SweepInterval)
		assert.Equal(t, []string{"en", "es", "uk", "it", "fr", "ru"}, cfg.Language.Supported)
		assert.Equal(t, "en", cfg.Language.Default)
		assert.Equal(t, "chatbot", cfg.Bot.Username)
		assert.NotEmpty(t, cfg.SigningKey, "expected the signing secret to be decoded")
	})

	t.Run("environment overrides", func(t *testing.T) {
		validEnv(t)
		t.Setenv("CHAT_SERVER_ADDR", "0.0.0.0:9000")
		t.Setenv("CHAT_REDIS_ADDR", "redis:6379")
		t.Setenv("CHAT_BOT_USERNAME", "robot")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddr)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, "robot", cfg.Bot.Username)
	})

	t.Run("config file", func(t *testing.T) {
		validEnv(t)

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("SERVER_ADDR: localhost:8081\nPRESENCE:\n  TTL: 5m\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "localhost:8081", cfg.ServerAddr)
		assert.Equal(t, 5*time.Minute, cfg.Presence.TTL)
	})

	t.Run("missing DSN", func(t *testing.T) {
		t.Setenv("CHAT_SIGNING_SECRET", testSigningSecret)

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing signing secret", func(t *testing.T) {
		t.Setenv("CHAT_DATABASE_DSN", "host=localhost dbname=chat")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("invalid signing secret", func(t *testing.T) {
		validEnv(t)
		t.Setenv("CHAT_SIGNING_SECRET", "not base64!!!")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("default language must be supported", func(t *testing.T) {
		validEnv(t)
		t.Setenv("CHAT_LANGUAGE_DEFAULT", "de")

		_, err := Load("")
		assert.Error(t, err)
	})
}
