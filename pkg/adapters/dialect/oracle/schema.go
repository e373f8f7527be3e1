package oracle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// SchemaReader lists tables and columns through the Oracle data dictionary,
// scoped to the connecting user's schema.
type SchemaReader struct {
	config  *Config
	db      *sql.DB
	ownedDB bool
}

// NewSchemaReader creates an Oracle schema reader.
func NewSchemaReader(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*SchemaReader, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &SchemaReader{config: cfg, db: db, ownedDB: owned}, nil
}

// ListTables returns the tables owned by the connecting user.
func (r *SchemaReader) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM all_tables
		WHERE owner = :1
		ORDER BY table_name
	`

	rows, err := r.db.QueryContext(ctx, query, r.config.SchemaOwner())
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectOracle, fmt.Errorf("query tables: %w", err))
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
		return nil, dialect.ClassifyQueryError(models.DialectOracle, fmt.Errorf("iterate tables: %w", err))
	}

	return tables, nil
}

// ListColumns returns the columns of a table in COLUMN_ID order, which is
// the dictionary's definition order.
func (r *SchemaReader) ListColumns(ctx context.Context, table string) ([]dialect.Column, error) {
	const query = `
		SELECT column_name, data_type, column_id
		FROM all_tab_columns
		WHERE owner = :1 AND table_name = :2
		ORDER BY column_id
	`

	rows, err := r.db.QueryContext(ctx, query, r.config.SchemaOwner(), table)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectOracle, fmt.Errorf("query columns for %s: %w", table, err))
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
		return nil, dialect.ClassifyQueryError(models.DialectOracle, fmt.Errorf("iterate columns: %w", err))
	}

	return columns, nil
}

// Close releases the reader but not a managed pool.
func (r *SchemaReader) Close() error {
	if r.ownedDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ dialect.SchemaReader = (*SchemaReader)(nil)
