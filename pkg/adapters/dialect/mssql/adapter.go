// Package mssql implements the dialect adapter for SQL Server sources via
// the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// Adapter provides SQL Server connectivity.
type Adapter struct {
	config  *Config
	db      *sql.DB
	ownedDB bool
}

// NewAdapter creates a SQL Server adapter.
func NewAdapter(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*Adapter, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, db: db, ownedDB: owned}, nil
}

func acquireDB(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*sql.DB, bool, error) {
	connStr := cfg.ConnectionString()

	if connMgr == nil {
		db, err := sql.Open("sqlserver", connStr)
		if err != nil {
			return nil, false, dialect.ConnectionError(models.DialectMSSQL, fmt.Errorf("open mssql handle: %w", err))
		}
		return db, true, nil
	}

	db, err := connMgr.GetOrCreateSQLPool(ctx, orgID, string(models.DialectMSSQL), "sqlserver", connStr)
	if err != nil {
		return nil, false, dialect.ConnectionError(models.DialectMSSQL, fmt.Errorf("get pooled connection: %w", err))
	}
	return db, false, nil
}

// TestConnection verifies the database is reachable and that the session
// landed in the expected database. SQL Server silently falls back to the
// login's default database when the requested one does not exist, so the
// name check matters here.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectMSSQL, fmt.Errorf("ping failed: %w", err))
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return dialect.ConnectionError(models.DialectMSSQL, fmt.Errorf("test query failed: %w", err))
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return dialect.ConnectionError(models.DialectMSSQL,
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
