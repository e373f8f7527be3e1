package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryRunner executes read-only SQL against a SQL Server source.
type QueryRunner struct {
	db      *sql.DB
	ownedDB bool
}

// NewQueryRunner creates a SQL Server query runner.
func NewQueryRunner(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*QueryRunner, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &QueryRunner{db: db, ownedDB: owned}, nil
}

// Explain only verifies connectivity. SQL Server's SET SHOWPLAN statements
// must be issued alone in their own batch, which database/sql's prepared
// round trips do not allow, so there is no statement-level dry run here.
func (q *QueryRunner) Explain(ctx context.Context, sqlQuery string) error {
	if err := q.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectMSSQL, fmt.Errorf("ping failed: %w", err))
	}
	return nil
}

// Query runs the statement wrapped in a TOP bound.
func (q *QueryRunner) Query(ctx context.Context, sqlQuery string, limit int) (*dialect.QueryResult, error) {
	bounded := fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS bounded_query", dialect.BoundLimit(limit), sqlQuery)

	rows, err := q.db.QueryContext(ctx, bounded)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectMSSQL, err)
	}
	defer rows.Close()

	return dialect.CollectSQLRows(rows, models.DialectMSSQL)
}

// Close releases the runner but not a managed pool.
func (q *QueryRunner) Close() error {
	if q.ownedDB && q.db != nil {
		return q.db.Close()
	}
	return nil
}

var _ dialect.QueryRunner = (*QueryRunner)(nil)
