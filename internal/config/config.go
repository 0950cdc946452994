package config

import "time"

// Config is the root configuration for the synchronizer.
type Config struct {
	Source   SourceConfig   `yaml:"source" envconfig:"SOURCE"`
	Sync     SyncConfig     `yaml:"sync" envconfig:"SYNC"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Schedule ScheduleConfig `yaml:"schedule" envconfig:"SCHEDULE"`
	Metrics  MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// SourceConfig describes the remote exchange site.
type SourceConfig struct {
	BaseURL       string        `yaml:"base_url" split_words:"true" validate:"required,url"`
	ListingPaths  []string      `yaml:"listing_paths" split_words:"true" validate:"required,min=1"`
	ExcludedCodes []string      `yaml:"excluded_codes" split_words:"true"`
	DropdownSeed  string        `yaml:"dropdown_seed" split_words:"true"` // Issuer page whose dropdown backs up the listings, empty to disable
	Transport     string        `yaml:"transport" split_words:"true" validate:"oneof=http browser"` // "http" or "browser"
	Timeout       time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`                    // Per window request
	Pacing        time.Duration `yaml:"pacing" split_words:"true" validate:"gte=0"`                     // Minimum gap between requests of one fetcher
	MaxRetries    int           `yaml:"max_retries" split_words:"true" validate:"gte=0,lte=10"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" split_words:"true" validate:"gte=0"`
	UserAgent     string        `yaml:"user_agent" split_words:"true"`

	// Browser transport only.
	Headful     bool          `yaml:"headful" split_words:"true"` // Show the browser window
	ChromePath  string        `yaml:"chrome_path" split_words:"true"`
	SettleDelay time.Duration `yaml:"settle_delay" split_words:"true" validate:"gte=0"` // Wait after submitting the search form
}

// SyncConfig holds worker pool and sync job settings.
type SyncConfig struct {
	MaxWorkers          int    `yaml:"max_workers" split_words:"true"`
	HorizonYears        int    `yaml:"horizon_years" split_words:"true" validate:"gte=1,lte=50"`
	WindowFailurePolicy string `yaml:"window_failure_policy" split_words:"true" validate:"oneof=continue abort"`
}

// StoreConfig selects and configures the local history store.
type StoreConfig struct {
	Driver   string       `yaml:"driver" split_words:"true" validate:"oneof=sqlite postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite" envconfig:"SQLITE"`
	Postgres DBConfig     `yaml:"postgres" envconfig:"POSTGRES"`
}

// SQLiteConfig holds the local SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path" split_words:"true"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	MaxConns int    `yaml:"max_conns" split_words:"true"`
	MinConns int    `yaml:"min_conns" split_words:"true"`
}

// ScheduleConfig holds settings for the long-running serve mode.
type ScheduleConfig struct {
	Cron       string `yaml:"cron" split_words:"true" validate:"required"`
	RunOnStart bool   `yaml:"run_on_start" split_words:"true"`

	CycleTimeout time.Duration `yaml:"cycle_timeout" split_words:"true" validate:"gte=0"` // Upper bound on one scheduled run
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" split_words:"true"`
	Port    int    `yaml:"port" split_words:"true" validate:"gte=1,lte=65535"`
	Path    string `yaml:"path" split_words:"true" validate:"startswith=/"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" split_words:"true"`
	Exporter    string `yaml:"exporter" split_words:"true" validate:"oneof=stdout"`
	ServiceName string `yaml:"service_name" split_words:"true" validate:"required"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=text json"`
	Output string `yaml:"output" split_words:"true" validate:"required"` // "stdout", "stderr" or a file path
}
