package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rickgao/mse-history/internal/config"
	"github.com/rickgao/mse-history/internal/database"
	"github.com/rickgao/mse-history/internal/model"
)

// Sample limits.
const (
	DefaultSampleLimit = 30
	MaxSampleLimit     = 500
)

// Store is the local history store.
type Store interface {
	// EnsureSchema creates the history table if it does not exist.
	EnsureSchema(ctx context.Context) error
	// Save upserts records for one issuer. An empty slice is a no-op.
	Save(ctx context.Context, issuer string, records []model.Record) error
	// LastKnownDates returns the newest stored trade date per code,
	// nil for codes with no rows.
	LastKnownDates(ctx context.Context, codes []string) (map[string]*time.Time, error)
	// Sample returns stored rows newest first, for one issuer or all when
	// issuer is empty.
	Sample(ctx context.Context, issuer string, limit int) ([]Row, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Row is a stored record with its issuer.
type Row struct {
	Issuer string
	model.Record
}

// Open connects the backend selected by cfg and ensures the schema.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		db, oerr := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if oerr != nil {
			return nil, oerr
		}
		s = NewSQLite(db, logger)
	case "postgres":
		pool, cerr := database.Connect(ctx, cfg.Postgres)
		if cerr != nil {
			return nil, fmt.Errorf("connect postgres: %w", cerr)
		}
		s = NewPostgres(pool, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err = s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("store opened", "driver", cfg.Driver)
	return s, nil
}

// NeedsUpdate splits codes into those that may have newer rows and those
// already current as of today. A code is current when its last-known date
// is today or later. upToDate is sorted.
func NeedsUpdate(dates map[string]*time.Time, today time.Time) (due map[string]*time.Time, upToDate []string) {
	day := model.Day(today)
	due = make(map[string]*time.Time, len(dates))
	for code, d := range dates {
		if d != nil && !model.Day(*d).Before(day) {
			upToDate = append(upToDate, code)
			continue
		}
		due[code] = d
	}
	sort.Strings(upToDate)
	return due, upToDate
}

// ClampLimit maps a requested sample size into [1, MaxSampleLimit].
// Zero or negative means the default.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultSampleLimit
	case n > MaxSampleLimit:
		return MaxSampleLimit
	default:
		return n
	}
}

func pick(dates map[string]*time.Time, codes []string) map[string]*time.Time {
	out := make(map[string]*time.Time, len(codes))
	for _, code := range codes {
		out[code] = dates[code]
	}
	return out
}
