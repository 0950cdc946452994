package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/mse-history/internal/config"
)

// Connect opens a PostgreSQL pool for the history store and pings it.
// Sessions run in UTC so DATE values round-trip as midnight UTC.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	return pool, nil
}

func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	maxConns := max(cfg.MaxConns, 1)
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MinConns = int32(min(max(cfg.MinConns, 0), maxConns))
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return poolCfg, nil
}
