// Package mysql implements the dialect adapter for MySQL sources via the
// go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// Adapter provides MySQL connectivity.
type Adapter struct {
	config  *Config
	db      *sql.DB
	ownedDB bool
}

// NewAdapter creates a MySQL adapter. Pool ownership follows the same
// rules as the other dialects: managed pools stay cached under their TTL.
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
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, false, dialect.ConnectionError(models.DialectMySQL, fmt.Errorf("open mysql handle: %w", err))
		}
		return db, true, nil
	}

	db, err := connMgr.GetOrCreateSQLPool(ctx, orgID, string(models.DialectMySQL), "mysql", dsn)
	if err != nil {
		return nil, false, dialect.ConnectionError(models.DialectMySQL, fmt.Errorf("get pooled connection: %w", err))
	}
	return db, false, nil
}

// TestConnection verifies the database is reachable and that the session
// landed in the expected schema.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectMySQL, fmt.Errorf("ping failed: %w", err))
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&currentDB); err != nil {
		return dialect.ConnectionError(models.DialectMySQL, fmt.Errorf("test query failed: %w", err))
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return dialect.ConnectionError(models.DialectMySQL,
			fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB))
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
