package dialect

import "context"

// PoolConnector abstracts a pooled connection handle so the manager can
// cache pgx pools and database/sql pools behind one type. Adapters unwrap
// the concrete pool with GetPgxPool/GetSQLDB.
type PoolConnector interface {
	// Ping verifies the pool can reach the database.
	Ping(ctx context.Context) error

	// Close releases the pool and all its connections.
	Close()

	// Dialect identifies the adapter family the pool belongs to.
	Dialect() string
}
