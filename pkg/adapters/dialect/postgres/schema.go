package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// SchemaReader lists tables and columns through information_schema.
type SchemaReader struct {
	pool      *pgxpool.Pool
	ownedPool bool
}

// NewSchemaReader creates a PostgreSQL schema reader. Pool ownership
// follows the same rules as NewAdapter.
func NewSchemaReader(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*SchemaReader, error) {
	pool, owned, err := acquirePool(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &SchemaReader{pool: pool, ownedPool: owned}, nil
}

// ListTables returns all user tables, excluding system schemas.
func (r *SchemaReader) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, fmt.Errorf("query tables: %w", err))
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, fmt.Errorf("iterate tables: %w", err))
	}

	return tables, nil
}

// ListColumns returns the columns of a table in catalog order.
func (r *SchemaReader) ListColumns(ctx context.Context, table string) ([]dialect.Column, error) {
	const query = `
		SELECT column_name, data_type, ordinal_position
		FROM information_schema.columns
		WHERE table_name = $1
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, fmt.Errorf("query columns for %s: %w", table, err))
	}
	defer rows.Close()

	var columns []dialect.Column
	for rows.Next() {
		var c dialect.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectPostgres, fmt.Errorf("iterate columns: %w", err))
	}

	return columns, nil
}

// Close releases the reader but not a managed pool.
func (r *SchemaReader) Close() error {
	if r.ownedPool && r.pool != nil {
		r.pool.Close()
	}
	return nil
}

var _ dialect.SchemaReader = (*SchemaReader)(nil)
