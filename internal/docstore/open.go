package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

// Options selects and configures a driver.
type Options struct {
	Driver      string
	DatabaseURL string
	Firestore   FirestoreConfig
}

// Open connects the configured driver and verifies it is reachable.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFirestore:
		return NewFirestoreStore(ctx, opts.Firestore)
	case DriverPostgres:
		pool, err := openPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
