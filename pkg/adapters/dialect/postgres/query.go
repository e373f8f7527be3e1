package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// QueryRunner executes read-only SQL against a PostgreSQL source.
type QueryRunner struct {
	pool      *pgxpool.Pool
	ownedPool bool
}

// NewQueryRunner creates a PostgreSQL query runner. Pool ownership follows
// the same rules as NewAdapter.
func NewQueryRunner(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*QueryRunner, error) {
	pool, owned, err := acquirePool(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &QueryRunner{pool: pool, ownedPool: owned}, nil
}

// Explain dry-runs the statement with EXPLAIN. The planner parses and
// analyzes the query without executing it, so syntax errors and missing
// relations surface as query-level errors.
func (q *QueryRunner) Explain(ctx context.Context, sqlQuery string) error {
	if err := q.pool.Ping(ctx); err != nil {
		return dialect.ConnectionError(models.DialectPostgres, fmt.Errorf("ping failed: %w", err))
	}

	rows, err := q.pool.Query(ctx, "EXPLAIN "+sqlQuery)
	if err != nil {
		return dialect.ClassifyQueryError(models.DialectPostgres, err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return dialect.ClassifyQueryError(models.DialectPostgres, err)
	}
	return nil
}

// Query runs the statement wrapped in a bounding subquery.
func (q *QueryRunner) Query(ctx context.Context, sqlQuery string, limit int) (*dialect.QueryResult, error) {
	bounded := fmt.Sprintf("SELECT * FROM (%s) AS bounded_query LIMIT %d", sqlQuery, dialect.BoundLimit(limit))

	rows, err := q.pool.Query(ctx, bounded)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	result := &dialect.QueryResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// Close releases the runner but not a managed pool.
func (q *QueryRunner) Close() error {
	if q.ownedPool && q.pool != nil {
		q.pool.Close()
	}
	return nil
}

var _ dialect.QueryRunner = (*QueryRunner)(nil)
