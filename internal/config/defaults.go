package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL             = "https://www.mse.mk"
	DefaultTransport           = "http"
	DefaultSourceTimeout       = 30 * time.Second
	DefaultBrowserPacing       = 2 * time.Second
	DefaultRetryBackoff        = time.Second
	DefaultSettleDelay         = 2 * time.Second
	DefaultMaxWorkers          = 200
	MaxWorkersLimit            = 1000
	DefaultHorizonYears        = 10
	DefaultWindowFailurePolicy = "continue"
	DefaultStoreDriver         = "sqlite"
	DefaultSQLitePath          = "data/history.db"
	DefaultDBPort              = 5432
	DefaultDBSSLMode           = "prefer"
	DefaultMaxConns            = 10
	DefaultMinConns            = 2
	DefaultCron                = "0 18 * * 1-5"
	DefaultCycleTimeout        = 4 * time.Hour
	DefaultMetricsPort         = 9090
	DefaultMetricsPath         = "/metrics"
	DefaultTracingExporter     = "stdout"
	DefaultServiceName         = "mse-sync"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
	DefaultLogOutput           = "stdout"
)

// DefaultListingPaths are the issuer listing pages scanned for codes.
var DefaultListingPaths = []string{
	"/en/issuers/JSC-with-special-reporting-obligations",
	"/en/issuers/free-market",
}

// Default returns a fully defaulted config, as if loaded from an empty file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Source defaults
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = DefaultBaseURL
	}
	if len(c.Source.ListingPaths) == 0 {
		c.Source.ListingPaths = append([]string(nil), DefaultListingPaths...)
	}
	if c.Source.Transport == "" {
		c.Source.Transport = DefaultTransport
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Source.Pacing == 0 && c.Source.Transport == "browser" {
		c.Source.Pacing = DefaultBrowserPacing
	}
	if c.Source.RetryBackoff == 0 {
		c.Source.RetryBackoff = DefaultRetryBackoff
	}
	if c.Source.SettleDelay == 0 {
		c.Source.SettleDelay = DefaultSettleDelay
	}

	// Sync defaults. Out-of-range worker counts fall back rather than fail.
	c.Sync.MaxWorkers = NormalizeWorkers(c.Sync.MaxWorkers)
	if c.Sync.HorizonYears == 0 {
		c.Sync.HorizonYears = DefaultHorizonYears
	}
	if c.Sync.WindowFailurePolicy == "" {
		c.Sync.WindowFailurePolicy = DefaultWindowFailurePolicy
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = DefaultSQLitePath
	}
	applyDBDefaults(&c.Store.Postgres)

	// Schedule defaults
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCron
	}
	if c.Schedule.CycleTimeout == 0 {
		c.Schedule.CycleTimeout = DefaultCycleTimeout
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Tracing defaults
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = DefaultTracingExporter
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultServiceName
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
}

// NormalizeWorkers maps unset or out-of-range worker counts to the default.
func NormalizeWorkers(n int) int {
	if n < 1 || n > MaxWorkersLimit {
		return DefaultMaxWorkers
	}
	return n
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
