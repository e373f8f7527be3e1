package models

import "fmt"

// Dialect identifies the SQL engine an organization's external database runs.
type Dialect string

const (
	DialectOracle   Dialect = "oracle"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectMSSQL    Dialect = "mssql"
)

// ParseDialect normalizes a stored dialect string. Unknown values are
// returned as-is with ok=false so callers can surface the bad value.
func ParseDialect(s string) (Dialect, bool) {
	switch Dialect(s) {
	case DialectOracle, DialectPostgres, DialectMySQL, DialectMSSQL:
		return Dialect(s), true
	}
	// Common aliases seen in stored bundles.
	switch s {
	case "postgresql", "pg":
		return DialectPostgres, true
	case "sqlserver":
		return DialectMSSQL, true
	}
	return Dialect(s), false
}

// IsValid reports whether the dialect has an adapter implementation.
func (d Dialect) IsValid() bool {
	_, ok := ParseDialect(string(d))
	return ok
}

// String implements fmt.Stringer.
func (d Dialect) String() string {
	return string(d)
}

// DisplayName returns a human-readable engine name for UI and error text.
func (d Dialect) DisplayName() string {
	switch d {
	case DialectOracle:
		return "Oracle"
	case DialectPostgres:
		return "PostgreSQL"
	case DialectMySQL:
		return "MySQL"
	case DialectMSSQL:
		return "SQL Server"
	default:
		return fmt.Sprintf("unknown (%s)", string(d))
	}
}
