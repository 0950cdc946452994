package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/mse-history/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS history (
	issuer        TEXT NOT NULL,
	trade_date    DATE NOT NULL,
	last_price    DOUBLE PRECISION,
	max_price     DOUBLE PRECISION,
	min_price     DOUBLE PRECISION,
	volume        DOUBLE PRECISION,
	turnover_best DOUBLE PRECISION,
	PRIMARY KEY (issuer, trade_date)
)`

const postgresUpsert = `
INSERT INTO history (issuer, trade_date, last_price, max_price, min_price, volume, turnover_best)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (issuer, trade_date) DO UPDATE SET
	last_price    = EXCLUDED.last_price,
	max_price     = EXCLUDED.max_price,
	min_price     = EXCLUDED.min_price,
	volume        = EXCLUDED.volume,
	turnover_best = EXCLUDED.turnover_best`

// Postgres stores history in PostgreSQL through a pgx pool.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres wraps a connected pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, postgresSchema)
	return err
}

// Save upserts records using pgx.Batch inside one transaction.
func (p *Postgres) Save(ctx context.Context, issuer string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(postgresUpsert,
				issuer, r.Date,
				r.LastPrice, r.MaxPrice, r.MinPrice, r.Volume, r.TurnoverBest,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return err
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("store: save %s: %w", issuer, err)
	}

	p.logger.Debug("saved history", "issuer", issuer, "rows", len(records))
	return nil
}

func (p *Postgres) LastKnownDates(ctx context.Context, codes []string) (map[string]*time.Time, error) {
	rows, err := p.db.Query(ctx, `
		SELECT issuer, MAX(trade_date)
		FROM history
		WHERE issuer = ANY($1)
		GROUP BY issuer
	`, codes)
	if err != nil {
		return nil, fmt.Errorf("store: last known dates: %w", err)
	}
	defer rows.Close()

	found := make(map[string]*time.Time)
	for rows.Next() {
		var (
			issuer string
			d      time.Time
		)
		if err := rows.Scan(&issuer, &d); err != nil {
			return nil, fmt.Errorf("store: last known dates: %w", err)
		}
		d = model.Day(d)
		found[issuer] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: last known dates: %w", err)
	}

	return pick(found, codes), nil
}

func (p *Postgres) Sample(ctx context.Context, issuer string, limit int) ([]Row, error) {
	rows, err := p.db.Query(ctx, `
		SELECT issuer, trade_date, last_price, max_price, min_price, volume, turnover_best
		FROM history
		WHERE $1 = '' OR issuer = $1
		ORDER BY trade_date DESC, issuer
		LIMIT $2
	`, issuer, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: sample: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Issuer, &r.Date, &r.LastPrice, &r.MaxPrice, &r.MinPrice, &r.Volume, &r.TurnoverBest); err != nil {
			return nil, fmt.Errorf("store: sample: %w", err)
		}
		r.Date = model.Day(r.Date)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
