package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	yaml := `
source:
  base_url: https://www.mse.mk
  transport: browser
  timeout: 45s
  excluded_codes: [MPT, KMB]
sync:
  max_workers: 12
  horizon_years: 5
store:
  driver: postgres
  postgres:
    host: localhost
    port: 5432
    name: history
    user: sync
    password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://www.mse.mk", cfg.Source.BaseURL)
	assert.Equal(t, "browser", cfg.Source.Transport)
	assert.Equal(t, 45*time.Second, cfg.Source.Timeout)
	assert.Equal(t, []string{"MPT", "KMB"}, cfg.Source.ExcludedCodes)
	assert.Equal(t, 12, cfg.Sync.MaxWorkers)
	assert.Equal(t, 5, cfg.Sync.HorizonYears)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "localhost", cfg.Store.Postgres.Host)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
store:
  driver: postgres
  postgres:
    host: localhost
    name: history
    user: sync
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Store.Postgres.Password)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MSESYNC_SYNC_MAX_WORKERS", "8")
	t.Setenv("MSESYNC_SOURCE_PACING", "750ms")
	t.Setenv("MSESYNC_STORE_SQLITE_PATH", "/tmp/override.db")
	t.Setenv("MSESYNC_SOURCE_EXCLUDED_CODES", "AAA,BBB")

	path := writeTempFile(t, "sync:\n  max_workers: 50\n")

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Sync.MaxWorkers)
	assert.Equal(t, 750*time.Millisecond, cfg.Source.Pacing)
	assert.Equal(t, "/tmp/override.db", cfg.Store.SQLite.Path)
	assert.Equal(t, []string{"AAA", "BBB"}, cfg.Source.ExcludedCodes)
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "logging:\n  level: debug\n")

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Source.BaseURL)
	assert.Equal(t, DefaultListingPaths, cfg.Source.ListingPaths)
	assert.Equal(t, DefaultTransport, cfg.Source.Transport)
	assert.Equal(t, DefaultSourceTimeout, cfg.Source.Timeout)
	assert.Zero(t, cfg.Source.Pacing, "http transport is unpaced by default")
	assert.Equal(t, DefaultMaxWorkers, cfg.Sync.MaxWorkers)
	assert.Equal(t, DefaultHorizonYears, cfg.Sync.HorizonYears)
	assert.Equal(t, DefaultWindowFailurePolicy, cfg.Sync.WindowFailurePolicy)
	assert.Equal(t, DefaultStoreDriver, cfg.Store.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.Store.SQLite.Path)
	assert.Equal(t, DefaultDBPort, cfg.Store.Postgres.Port)
	assert.Equal(t, DefaultCron, cfg.Schedule.Cron)
	assert.Equal(t, DefaultCycleTimeout, cfg.Schedule.CycleTimeout)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestDefaults_BrowserPacing(t *testing.T) {
	cfg := &Config{Source: SourceConfig{Transport: "browser"}}
	cfg.applyDefaults()
	assert.Equal(t, DefaultBrowserPacing, cfg.Source.Pacing)
}

func TestNormalizeWorkers(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMaxWorkers},
		{-3, DefaultMaxWorkers},
		{1, 1},
		{32, 32},
		{MaxWorkersLimit, MaxWorkersLimit},
		{MaxWorkersLimit + 1, DefaultMaxWorkers},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWorkers(tt.in), "NormalizeWorkers(%d)", tt.in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Source.Transport = "ftp" },
			wantErr: "source.transport failed oneof=http browser (got ftp)",
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Source.BaseURL = "" },
			wantErr: "source.base_url is required",
		},
		{
			name:    "horizon too large",
			mutate:  func(c *Config) { c.Sync.HorizonYears = 99 },
			wantErr: "sync.horizon_years failed lte=50 (got 99)",
		},
		{
			name:    "unknown window policy",
			mutate:  func(c *Config) { c.Sync.WindowFailurePolicy = "retry" },
			wantErr: "sync.window_failure_policy failed oneof=continue abort (got retry)",
		},
		{
			name:    "workers out of range",
			mutate:  func(c *Config) { c.Sync.MaxWorkers = 5000 },
			wantErr: "sync.max_workers must be between 1 and 1000, got 5000",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "store.postgres.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "store.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name: "valid postgres",
			mutate: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MSESYNC_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MSESYNC_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MSESYNC_TEST_DOTENV"))
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
