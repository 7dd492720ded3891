// Package db is the Postgres layer: versioned prompts, suite runs and
// their per-case results, all through a single pgx pool.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Pool sizing favors the worker, which writes a burst of results after
// each suite run; the API side only issues short single-row queries.
const (
	poolMaxConns    = 10
	poolMinConns    = 2
	poolMaxIdleTime = 5 * time.Minute

	pingTimeout = 2 * time.Second
)

// DB owns the connection pool shared by Store and the readiness probe.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a pool against databaseURL and verifies connectivity with
// an initial ping.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns
	cfg.MaxConnIdleTime = poolMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("postgres pool ready")

	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Pool exposes the underlying pool for Store construction.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// HealthCheck pings the pool under its own short deadline so a stalled
// database cannot hang the readiness endpoint.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
