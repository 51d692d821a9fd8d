package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 8, cfg.Crawler.Workers)
	require.Equal(t, 10*time.Second, cfg.FetchTimeout())
	require.Equal(t, 2*time.Minute, cfg.JobRuntime())
	require.Equal(t, time.Hour, cfg.Retention())
	require.Equal(t, 24*time.Hour, cfg.CacheTTL())
	require.False(t, cfg.Cache.Enabled)
	require.True(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 10
crawler:
  user_agent: test-agent
  workers: 3
  timeout_seconds: 5
  per_host_rps: 1.5
  per_host_burst: 2
jobs:
  max_concurrent: 2
  parallelism: 2
  max_runtime_seconds: 30
store:
  retention_minutes: 10
  max_jobs: 50
cache:
  enabled: true
  addr: redis:6379
  ttl_hours: 1
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "test-agent", cfg.Crawler.UserAgent)
	require.Equal(t, 3, cfg.Crawler.Workers)
	require.Equal(t, 1.5, cfg.Crawler.PerHostRPS)
	require.Equal(t, 2, cfg.Jobs.MaxConcurrent)
	require.Equal(t, 10*time.Minute, cfg.Retention())
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, "redis:6379", cfg.Cache.Addr)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.False(t, cfg.Logging.Development)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 0\n"},
		{"no workers", "crawler:\n  workers: 0\n"},
		{"zero rps", "crawler:\n  per_host_rps: 0\n"},
		{"cache without addr", "cache:\n  enabled: true\n  addr: \"\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
