// Package db opens the Postgres pool shared by the repositories.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/logging"
)

const (
	defaultMaxConns    = 25
	defaultPingTimeout = 5 * time.Second
	maxConnIdleTime    = 5 * time.Minute
	maxConnLifetime    = 30 * time.Minute
)

// Options tune the pool. Zero values fall back to the defaults.
type Options struct {
	MaxConns    int32
	PingTimeout time.Duration
}

// Connect opens a pgx pool for dsn and pings it once before returning.
func Connect(ctx context.Context, dsn string, opts Options, logger *log.Entry) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	cfg, err := poolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db pool: %w", err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db %s: %w", cfg.ConnConfig.Host, err)
	}

	logger.WithFields(log.Fields{
		"db_host":   cfg.ConnConfig.Host,
		"db_name":   cfg.ConnConfig.Database,
		"max_conns": cfg.MaxConns,
	}).Info("database connected")
	return pool, nil
}

func poolConfig(dsn string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.MaxConnLifetime = maxConnLifetime
	return cfg, nil
}
