package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-tab-session/internal/config"
	"github.com/jrsteele09/go-tab-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, config.BackendSQLite, c.GetStorageBackend())
	require.Equal(t, 3, c.GetLockoutThreshold())
	require.Equal(t, 5*time.Minute, c.GetLockoutCooldown())
	require.Equal(t, "tabsession:", c.GetKeyPrefix())
	require.Equal(t, "info", c.GetLogLevel())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessionctl.yaml")
	err := os.WriteFile(path, []byte(`
storage:
  backend: redis
  redis_addr: cache:6379
lockout:
  threshold: 5
  cooldown: 2m
authority:
  url: https://admin.example.com/api
`), 0o600)
	require.NoError(t, err)

	t.Setenv("TABSESSION_LOCKOUT_THRESHOLD", "7")

	c, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.BackendRedis, c.GetStorageBackend())
	require.Equal(t, "cache:6379", c.GetRedisAddr())
	require.Equal(t, 7, c.GetLockoutThreshold())
	require.Equal(t, 2*time.Minute, c.GetLockoutCooldown())
	require.Equal(t, "https://admin.example.com/api", c.GetAuthorityURL())
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("TABSESSION_STORAGE", "etcd")

	_, err := config.New()
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
