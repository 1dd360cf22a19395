package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createCacheTable = `CREATE TABLE IF NOT EXISTS query_cache (
	signature TEXT PRIMARY KEY,
	data      BYTEA,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectCacheEntry = `SELECT data FROM query_cache WHERE signature = $1`
	insertCacheEntry = `INSERT INTO query_cache (signature, data) VALUES ($1, $2) ON CONFLICT (signature) DO NOTHING`
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCache is a query result cache shared by every process pointing at
// the same database. The first stored result for a signature wins.
type PostgresCache struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresCache connects to databaseURL and makes sure the cache table exists.
func NewPostgresCache(ctx context.Context, databaseURL string) (*PostgresCache, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	c := &PostgresCache{db: pool, pool: pool}
	if err := c.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, createCacheTable); err != nil {
		return fmt.Errorf("failed to create query_cache table: %w", err)
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.db.QueryRow(ctx, selectCacheEntry, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, true, nil
}

func (c *PostgresCache) Set(ctx context.Context, key string, data []byte) error {
	if _, err := c.db.Exec(ctx, insertCacheEntry, key, data); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close releases the connection pool, if this cache owns one.
func (c *PostgresCache) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
