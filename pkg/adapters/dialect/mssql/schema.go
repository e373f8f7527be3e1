package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// SchemaReader lists tables and columns through INFORMATION_SCHEMA.
type SchemaReader struct {
	db      *sql.DB
	ownedDB bool
}

// NewSchemaReader creates a SQL Server schema reader.
func NewSchemaReader(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*SchemaReader, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &SchemaReader{db: db, ownedDB: owned}, nil
}

// ListTables returns the base tables in the connected database.
func (r *SchemaReader) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectMSSQL, fmt.Errorf("query tables: %w", err))
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
		return nil, dialect.ClassifyQueryError(models.DialectMSSQL, fmt.Errorf("iterate tables: %w", err))
	}

	return tables, nil
}

// ListColumns returns the columns of a table in definition order.
func (r *SchemaReader) ListColumns(ctx context.Context, table string) ([]dialect.Column, error) {
	const query = `
		SELECT COLUMN_NAME, DATA_TYPE, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION
	`

	rows, err := r.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectMSSQL, fmt.Errorf("query columns for %s: %w", table, err))
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
		return nil, dialect.ClassifyQueryError(models.DialectMSSQL, fmt.Errorf("iterate columns: %w", err))
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
