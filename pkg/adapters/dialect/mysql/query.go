package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryRunner executes read-only SQL against a MySQL source.
type QueryRunner struct {
	db      *sql.DB
	ownedDB bool
}

// NewQueryRunner creates a MySQL query runner.
func NewQueryRunner(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*QueryRunner, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &QueryRunner{db: db, ownedDB: owned}, nil
}

// Explain dry-runs the statement with EXPLAIN.
func (q *QueryRunner) Explain(ctx context.Context, sqlQuery string) error {
	if err := q.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectMySQL, fmt.Errorf("ping failed: %w", err))
	}

	rows, err := q.db.QueryContext(ctx, "EXPLAIN "+sqlQuery)
	if err != nil {
		return dialect.ClassifyQueryError(models.DialectMySQL, err)
	}
	defer rows.Close()
	if err := rows.Err(); err != nil {
		return dialect.ClassifyQueryError(models.DialectMySQL, err)
	}
	return nil
}

// Query runs the statement wrapped in a bounding subquery.
func (q *QueryRunner) Query(ctx context.Context, sqlQuery string, limit int) (*dialect.QueryResult, error) {
	bounded := fmt.Sprintf("SELECT * FROM (%s) AS bounded_query LIMIT %d", sqlQuery, dialect.BoundLimit(limit))

	rows, err := q.db.QueryContext(ctx, bounded)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectMySQL, err)
	}
	defer rows.Close()

	return dialect.CollectSQLRows(rows, models.DialectMySQL)
}

// Close releases the runner but not a managed pool.
func (q *QueryRunner) Close() error {
	if q.ownedDB && q.db != nil {
		return q.db.Close()
	}
	return nil
}

var _ dialect.QueryRunner = (*QueryRunner)(nil)
