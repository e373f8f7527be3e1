// Package oracle implements the dialect adapter for Oracle sources via the
// godror driver.
package oracle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/godror/godror"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// Adapter provides Oracle connectivity.
type Adapter struct {
	config  *Config
	db      *sql.DB
	ownedDB bool
}

// NewAdapter creates an Oracle adapter. With a connection manager the pool
// is shared and TTL-managed; with nil the adapter owns a private handle.
func NewAdapter(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*Adapter, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, db: db, ownedDB: owned}, nil
}

func acquireDB(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*sql.DB, bool, error) {
	dsn := cfg.DSN()

	if connMgr == nil {
		db, err := sql.Open("godror", dsn)
		if err != nil {
			return nil, false, dialect.ConnectionError(models.DialectOracle, fmt.Errorf("open oracle handle: %w", err))
		}
		return db, true, nil
	}

	db, err := connMgr.GetOrCreateSQLPool(ctx, orgID, string(models.DialectOracle), "godror", dsn)
	if err != nil {
		return nil, false, dialect.ConnectionError(models.DialectOracle, fmt.Errorf("get pooled connection: %w", err))
	}
	return db, false, nil
}

// TestConnection verifies the database is reachable with valid credentials.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectOracle, fmt.Errorf("ping failed: %w", err))
	}

	var one int
	if err := a.db.QueryRowContext(ctx, "SELECT 1 FROM DUAL").Scan(&one); err != nil {
		return dialect.ConnectionError(models.DialectOracle, fmt.Errorf("test query failed: %w", err))
	}

	return nil
}

// Close releases the adapter but not a managed pool.
func (a *Adapter) Close() error {
	if a.ownedDB && a.db != nil {
		return a.db.Close()
	}
	return nil
}

var _ dialect.ConnectionTester = (*Adapter)(nil)
