package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/fitness-onboarding/config"
)

// PoolOptions sizes the connection pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
	PingTimeout       time.Duration
}

// OptionsFromConfig reads the DB_* pool settings.
func OptionsFromConfig(cfg *config.Config) PoolOptions {
	return PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLife,
		HealthCheckPeriod: 30 * time.Second,
	}
}

// NewPool opens a pgx pool and refuses to return it until a ping succeeds.
func NewPool(ctx context.Context, dsn string, opt PoolOptions) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if opt.MaxConns > 0 {
		pc.MaxConns = opt.MaxConns
	}
	if opt.MinConns > 0 && opt.MinConns <= pc.MaxConns {
		pc.MinConns = opt.MinConns
	}
	if opt.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = opt.MaxConnLifetime
	}
	if opt.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = opt.HealthCheckPeriod
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	timeout := opt.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
