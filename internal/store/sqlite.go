package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/mse-history/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS history (
	issuer        TEXT NOT NULL,
	trade_date    TEXT NOT NULL,
	last_price    REAL,
	max_price     REAL,
	min_price     REAL,
	volume        REAL,
	turnover_best REAL,
	PRIMARY KEY (issuer, trade_date)
)`

const sqliteUpsert = `
INSERT INTO history (issuer, trade_date, last_price, max_price, min_price, volume, turnover_best)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (issuer, trade_date) DO UPDATE SET
	last_price    = excluded.last_price,
	max_price     = excluded.max_price,
	min_price     = excluded.min_price,
	volume        = excluded.volume,
	turnover_best = excluded.turnover_best`

// SQLite stores history in a local SQLite file. Dates are ISO text.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{db: db, logger: logger}
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

// Save writes all records in one transaction.
func (s *SQLite) Save(ctx context.Context, issuer string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save %s: begin: %w", issuer, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("store: save %s: prepare: %w", issuer, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			issuer, r.Date.Format(model.DateLayout),
			r.LastPrice, r.MaxPrice, r.MinPrice, r.Volume, r.TurnoverBest,
		); err != nil {
			return fmt.Errorf("store: save %s: %w", issuer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: save %s: commit: %w", issuer, err)
	}

	s.logger.Debug("saved history", "issuer", issuer, "rows", len(records))
	return nil
}

func (s *SQLite) LastKnownDates(ctx context.Context, codes []string) (map[string]*time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT issuer, MAX(trade_date) FROM history GROUP BY issuer`)
	if err != nil {
		return nil, fmt.Errorf("store: last known dates: %w", err)
	}
	defer rows.Close()

	all := make(map[string]*time.Time)
	for rows.Next() {
		var issuer, date string
		if err := rows.Scan(&issuer, &date); err != nil {
			return nil, fmt.Errorf("store: last known dates: %w", err)
		}
		d, err := time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("store: last known date of %s: %w", issuer, err)
		}
		all[issuer] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: last known dates: %w", err)
	}

	return pick(all, codes), nil
}

func (s *SQLite) Sample(ctx context.Context, issuer string, limit int) ([]Row, error) {
	query := `SELECT issuer, trade_date, last_price, max_price, min_price, volume, turnover_best FROM history`
	args := []any{}
	if issuer != "" {
		query += ` WHERE issuer = ?`
		args = append(args, issuer)
	}
	query += ` ORDER BY trade_date DESC, issuer LIMIT ?`
	args = append(args, ClampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: sample: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r    Row
			date string
		)
		if err := rows.Scan(&r.Issuer, &date, &r.LastPrice, &r.MaxPrice, &r.MinPrice, &r.Volume, &r.TurnoverBest); err != nil {
			return nil, fmt.Errorf("store: sample: %w", err)
		}
		if r.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("store: sample: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
