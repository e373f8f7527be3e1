// Package postgres implements the dialect adapter for PostgreSQL sources,
// backed by pgx pools from the shared connection manager.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	config    *Config
	pool      *pgxpool.Pool
	ownedPool bool // true when we created the pool ourselves (connMgr == nil)
}

// NewAdapter creates a PostgreSQL adapter. With a connection manager the
// pool is shared and TTL-managed; with nil the adapter owns a private pool
// and closes it.
func NewAdapter(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*Adapter, error) {
	pool, owned, err := acquirePool(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, pool: pool, ownedPool: owned}, nil
}

func acquirePool(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*pgxpool.Pool, bool, error) {
	connStr := cfg.ConnectionString()

	if connMgr == nil {
		pool, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, false, dialect.ConnectionError(models.DialectPostgres, fmt.Errorf("connect to postgres: %w", err))
		}
		return pool, true, nil
	}

	pool, err := connMgr.GetOrCreatePgxPool(ctx, orgID, string(models.DialectPostgres), connStr)
	if err != nil {
		return nil, false, dialect.ConnectionError(models.DialectPostgres, fmt.Errorf("get pooled connection: %w", err))
	}
	return pool, false, nil
}

// TestConnection verifies the database is reachable with valid credentials
// and that we landed in the expected database rather than a default one.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return dialect.ConnectionError(models.DialectPostgres, fmt.Errorf("ping failed: %w", err))
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return dialect.ConnectionError(models.DialectPostgres, fmt.Errorf("test query failed: %w", err))
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return dialect.ConnectionError(models.DialectPostgres,
			fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB))
	}

	return nil
}

// Close releases the adapter but not a managed pool, which stays cached
// under its TTL.
func (a *Adapter) Close() error {
	if a.ownedPool && a.pool != nil {
		a.pool.Close()
	}
	return nil
}

var _ dialect.ConnectionTester = (*Adapter)(nil)
