package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("POSTGRES_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.OneBot.Timeout)
	assert.Equal(t, 3, cfg.OneBot.MaxRetries)
	assert.Equal(t, time.Second, cfg.OneBot.RetryDelay)
	assert.Equal(t, 100, cfg.OneBot.MaxConns)
	assert.Equal(t, 30, cfg.OneBot.MaxConnsPerHost)
	assert.Equal(t, 300*time.Second, cfg.PermissionCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.NotifyCooldown)
	assert.Equal(t, []string{"/sunos", ".sunos"}, cfg.CommandPrefixes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ONEBOT_API_URL", "127.0.0.1:5700")
	t.Setenv("ONEBOT_TIMEOUT", "2.5")
	t.Setenv("ONEBOT_RETRY_DELAY", "250ms")
	t.Setenv("SUPER_ADMINS", " 10001, 10002,,10001 ")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "guard")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "guard")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5700", cfg.OneBot.APIURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.OneBot.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.OneBot.RetryDelay)
	assert.Equal(t, []string{"10001", "10002"}, cfg.SuperAdmins)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://guard:pw@db:5432/guard?sslmode=disable", cfg.DatabaseDSN)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ONEBOT_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ONEBOT_TIMEOUT", "")
	t.Setenv("DB_DRIVER", "mongo")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guard.yaml")
	content := `
onebot_api_url: http://bot:5700
SUPER_ADMINS: [10001, 10002]
NOTIFY_COOLDOWN: 1m
HTTP_PORT: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://bot:5700", cfg.OneBot.APIURL)
	assert.Equal(t, []string{"10001", "10002"}, cfg.SuperAdmins)
	assert.Equal(t, time.Minute, cfg.NotifyCooldown)
	assert.Equal(t, "9100", cfg.HTTPPort, "environment wins over the file")
	assert.Equal(t, "memory", cfg.DBDriver)
}

func TestStorageFallsBackToMinioKeys(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_ENDPOINT", "")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY", "a")
	t.Setenv("MINIO_SECRET_KEY", "s")
	t.Setenv("MINIO_BUCKET", "events")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.Storage.Endpoint)
	assert.True(t, cfg.Storage.Enabled())
}
