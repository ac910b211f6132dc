// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package store provides PostgreSQL connectivity and schema migrations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DB is the subset of *pgxpool.Pool used by repositories. pgxmock pools
// satisfy it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Connector hands out a live DB. Connect may be called before every
// operation; implementations must make repeated calls cheap and safe.
type Connector interface {
	Connect(ctx context.Context) (DB, error)
}

// Static is a Connector over an already open DB.
type Static struct {
	DB DB
}

// Connect returns the wrapped DB.
func (s Static) Connect(context.Context) (DB, error) {
	return s.DB, nil
}

// Defaults for PoolConnector.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
)

// openFunc dials a pool. The returned close function releases it.
type openFunc func(ctx context.Context, cfg *pgxpool.Config) (DB, func(), error)

func openPool(ctx context.Context, cfg *pgxpool.Config) (DB, func(), error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // wrapped by Connect
	}
	return pool, pool.Close, nil
}

// PoolConnector lazily opens a pgxpool and reuses it for every later call.
// A failed dial leaves nothing behind, so the next Connect dials again.
type PoolConnector struct {
	cfg       *pgxpool.Config
	retries   uint64
	backoff   time.Duration
	open      openFunc
	mu        sync.Mutex
	db        DB
	closePool func()
}

// PoolOption configures a PoolConnector.
type PoolOption func(*PoolConnector)

// WithConnectRetries sets how many times a failed dial is retried.
func WithConnectRetries(n uint64) PoolOption {
	return func(c *PoolConnector) { c.retries = n }
}

// WithConnectBackoff sets the base delay of the exponential backoff.
func WithConnectBackoff(d time.Duration) PoolOption {
	return func(c *PoolConnector) { c.backoff = d }
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PoolOption {
	return func(c *PoolConnector) {
		if n > 0 {
			c.cfg.MaxConns = n
		}
	}
}

// NewPoolConnector parses databaseURL and returns an unconnected PoolConnector.
func NewPoolConnector(databaseURL string, opts ...PoolOption) (*PoolConnector, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	c := &PoolConnector{
		cfg:     cfg,
		retries: DefaultConnectRetries,
		backoff: DefaultConnectBackoff,
		open:    openPool,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect returns the shared pool, dialing and pinging it on first use.
func (c *PoolConnector) Connect(ctx context.Context) (DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		db, closePool, err := c.open(ctx, c.cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := db.Ping(ctx); err != nil {
			closePool()
			return retry.RetryableError(err)
		}
		c.db, c.closePool = db, closePool
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", c.cfg.ConnConfig.Host).
			With("attempts", attempts).
			Wrap(err)
	}
	return c.db, nil
}

// Ping connects if needed and checks the connection.
func (c *PoolConnector) Ping(ctx context.Context) error {
	db, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the pool. The connector may be reused afterwards.
func (c *PoolConnector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closePool != nil {
		c.closePool()
	}
	c.db, c.closePool = nil, nil
}
