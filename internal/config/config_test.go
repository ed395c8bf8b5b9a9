package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, time.Hour, c.JWT.AccessTTL)
	require.Equal(t, 168*time.Hour, c.JWT.RefreshTTL)
	require.Equal(t, 5, c.Security.LockoutThreshold)
	require.Equal(t, 24*time.Hour, c.Auth.MagicLinkTTL)
	require.Equal(t, 6, c.Auth.SMSCodeLength)
	require.Equal(t, 5*time.Minute, c.Auth.SMSCodeTTL)
	require.Equal(t, "user", c.Auth.DisplayNamePrefix)
	require.NoError(t, c.Validate())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
app:
  env: dev
storage:
  driver: postgres
  dsn: postgres://u:p@localhost/auth
jwt:
  access_ttl: 15m
auth:
  debug_echo_tokens: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("JWT_REFRESH_TTL", "24h")
	t.Setenv("SECURITY_LOCKOUT_THRESHOLD", "3")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, c.JWT.AccessTTL)
	require.Equal(t, 24*time.Hour, c.JWT.RefreshTTL)
	require.Equal(t, 3, c.Security.LockoutThreshold)
	require.True(t, c.Auth.DebugEchoTokens)
}

func TestProdDisablesEcho(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("AUTH_DEBUG_ECHO_TOKENS", "true")
	c, err := Load("")
	require.NoError(t, err)
	require.False(t, c.Auth.DebugEchoTokens)
}

func TestValidateRejectsBadCombos(t *testing.T) {
	c := Default()
	c.Storage.Driver = "postgres"
	c.Cache.Kind = "redis"
	err := c.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage.dsn")
	require.Contains(t, err.Error(), "cache.redis.addr")
}
