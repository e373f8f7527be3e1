package repositories

import (
	"context"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// SchemaCacheRepository persists the introspected table/column metadata so
// the surrounding CRUD layer can display and annotate it. The engine writes
// through on introspection; the live schema is always re-read from the
// source database, never from this cache.
type SchemaCacheRepository interface {
	// ReplaceSchema swaps the cached metadata for an org with the freshly
	// introspected one, preserving human-written descriptions for tables
	// and columns that still exist.
	ReplaceSchema(ctx context.Context, orgID int64, tables []models.TableDescriptor) error

	// GetSchema returns the cached metadata for an org, ordered the way it
	// was introspected. Returns an empty slice when nothing is cached.
	GetSchema(ctx context.Context, orgID int64) ([]models.TableDescriptor, error)
}

type schemaCacheRepository struct {
	db *database.DB
}

// NewSchemaCacheRepository creates a SchemaCacheRepository backed by the
// admin pool.
func NewSchemaCacheRepository(db *database.DB) SchemaCacheRepository {
	return &schemaCacheRepository{db: db}
}

var _ SchemaCacheRepository = (*schemaCacheRepository)(nil)

func (r *schemaCacheRepository) ReplaceSchema(ctx context.Context, orgID int64, tables []models.TableDescriptor) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schema cache transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Descriptions live in the cache only, so carry them over by name
	// before replacing the rows.
	const upsertTable = `
		INSERT INTO nl2sql_available_tables (org_id, table_name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, table_name)
		DO UPDATE SET description = CASE
			WHEN nl2sql_available_tables.description IS NULL OR nl2sql_available_tables.description = ''
			THEN EXCLUDED.description
			ELSE nl2sql_available_tables.description
		END
		RETURNING id`

	const deleteColumns = `DELETE FROM nl2sql_table_columns WHERE table_id = $1`

	const insertColumn = `
		INSERT INTO nl2sql_table_columns (table_id, column_name, column_type, ordinal_position, is_searchable)
		VALUES ($1, $2, $3, $4, $5)`

	seen := make([]string, 0, len(tables))
	for _, table := range tables {
		var tableID int64
		if err := tx.QueryRow(ctx, upsertTable, orgID, table.Name, table.Description).Scan(&tableID); err != nil {
			return fmt.Errorf("failed to upsert table %s: %w", table.Name, err)
		}
		seen = append(seen, table.Name)

		if _, err := tx.Exec(ctx, deleteColumns, tableID); err != nil {
			return fmt.Errorf("failed to clear columns for %s: %w", table.Name, err)
		}

		for i, col := range table.Columns {
			if _, err := tx.Exec(ctx, insertColumn, tableID, col.Name, col.NativeType, i+1, col.IsSearchable); err != nil {
				return fmt.Errorf("failed to insert column %s.%s: %w", table.Name, col.Name, err)
			}
		}
	}

	// Drop tables that vanished from the source.
	const deleteStale = `
		DELETE FROM nl2sql_available_tables
		WHERE org_id = $1 AND NOT (table_name = ANY($2))`
	if _, err := tx.Exec(ctx, deleteStale, orgID, seen); err != nil {
		return fmt.Errorf("failed to remove stale tables: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema cache transaction: %w", err)
	}
	return nil
}

func (r *schemaCacheRepository) GetSchema(ctx context.Context, orgID int64) ([]models.TableDescriptor, error) {
	const tableQuery = `
		SELECT id, table_name, COALESCE(description, '')
		FROM nl2sql_available_tables
		WHERE org_id = $1
		ORDER BY table_name`

	rows, err := r.db.Query(ctx, tableQuery, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableDescriptor{}
	for rows.Next() {
		var t models.TableDescriptor
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan cached table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached tables: %w", err)
	}

	const columnQuery = `
		SELECT column_name, column_type, COALESCE(description, ''), is_searchable
		FROM nl2sql_table_columns
		WHERE table_id = $1
		ORDER BY ordinal_position`

	for i := range tables {
		colRows, err := r.db.Query(ctx, columnQuery, tables[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query cached columns: %w", err)
		}

		for colRows.Next() {
			var c models.ColumnDescriptor
			if err := colRows.Scan(&c.Name, &c.NativeType, &c.Description, &c.IsSearchable); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("failed to scan cached column: %w", err)
			}
			tables[i].Columns = append(tables[i].Columns, c)
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, fmt.Errorf("error iterating cached columns: %w", err)
		}
		colRows.Close()
	}

	return tables, nil
}
