// Package db owns database connectivity and schema migrations.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirku/backend-pos/internal/obs"
)

// NewPool builds a pgx connection pool with tracing enabled and verifies
// connectivity before returning.
func NewPool(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
