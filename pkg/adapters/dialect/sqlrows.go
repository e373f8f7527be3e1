package dialect

import (
	"database/sql"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// CollectSQLRows drains a database/sql result set into a QueryResult.
// Shared by the runners that ride database/sql drivers; the pgx runner has
// its own path since pgx exposes typed values directly.
func CollectSQLRows(rows *sql.Rows, d models.Dialect) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read column names: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			// Drivers hand back []byte for text-ish columns; convert so
			// the JSON encoding is a string rather than base64.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, ClassifyQueryError(d, err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
