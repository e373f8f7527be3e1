// Package dialect defines the capability interfaces every database dialect
// adapter implements, plus the registry the concrete adapters plug into.
// Adapters are variants selected by dialect, not an inheritance tree: the
// implementations differ only in the catalog queries they issue.
package dialect

import "context"

// ConnectionTester verifies an external database is reachable with the
// stored credentials. Implementations own their handle and must be closed.
type ConnectionTester interface {
	// TestConnection returns nil if the database is reachable and the
	// credentials are accepted.
	TestConnection(ctx context.Context) error

	// Close releases the handle on every exit path.
	Close() error
}

// Column is one column as reported by the source catalog.
type Column struct {
	Name            string `json:"name"`
	DataType        string `json:"data_type"`
	OrdinalPosition int    `json:"ordinal_position"`
}

// SchemaReader lists tables and columns through the dialect's native
// catalog mechanism. Column order follows the source ordinal.
type SchemaReader interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]Column, error)
	Close() error
}

// MaxQueryLimit is the hard cap on rows returned by QueryRunner.Query.
const MaxQueryLimit = 1000

// QueryResult holds the rows from a bounded query execution.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QueryRunner executes read-only SQL against an external database.
type QueryRunner interface {
	// Explain performs the dialect-appropriate dry run without executing
	// the statement: EXPLAIN where the engine supports it, a catalog
	// existence check where it does not. Errors carry a Kind so callers
	// can tell "cannot connect" from "statement rejected".
	Explain(ctx context.Context, sqlQuery string) error

	// Query runs a SELECT wrapped with a dialect-specific row bound.
	// limit <= 0 or > MaxQueryLimit is clamped to MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	Close() error
}

// BoundLimit applies the MaxQueryLimit bounds shared by all runners.
func BoundLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
