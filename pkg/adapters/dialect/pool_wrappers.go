package dialect

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPoolWrapper adapts *pgxpool.Pool to PoolConnector.
type PgxPoolWrapper struct {
	pool    *pgxpool.Pool
	dialect string
}

func NewPgxPoolWrapper(pool *pgxpool.Pool, dialect string) *PgxPoolWrapper {
	return &PgxPoolWrapper{pool: pool, dialect: dialect}
}

func (w *PgxPoolWrapper) Ping(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

func (w *PgxPoolWrapper) Close() {
	w.pool.Close()
}

func (w *PgxPoolWrapper) Dialect() string {
	return w.dialect
}

// Pool returns the underlying pgx pool.
func (w *PgxPoolWrapper) Pool() *pgxpool.Pool {
	return w.pool
}

// SQLPoolWrapper adapts *sql.DB to PoolConnector. Used by the mysql, mssql,
// and oracle adapters, which ride database/sql drivers.
type SQLPoolWrapper struct {
	db      *sql.DB
	dialect string
}

func NewSQLPoolWrapper(db *sql.DB, dialect string) *SQLPoolWrapper {
	return &SQLPoolWrapper{db: db, dialect: dialect}
}

func (w *SQLPoolWrapper) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *SQLPoolWrapper) Close() {
	_ = w.db.Close()
}

func (w *SQLPoolWrapper) Dialect() string {
	return w.dialect
}

// DB returns the underlying database/sql pool.
func (w *SQLPoolWrapper) DB() *sql.DB {
	return w.db
}

var (
	_ PoolConnector = (*PgxPoolWrapper)(nil)
	_ PoolConnector = (*SQLPoolWrapper)(nil)
)

// GetPgxPool unwraps a PoolConnector created by the postgres adapter.
func GetPgxPool(c PoolConnector) (*pgxpool.Pool, bool) {
	w, ok := c.(*PgxPoolWrapper)
	if !ok {
		return nil, false
	}
	return w.Pool(), true
}

// GetSQLDB unwraps a PoolConnector created by a database/sql adapter.
func GetSQLDB(c PoolConnector) (*sql.DB, bool) {
	w, ok := c.(*SQLPoolWrapper)
	if !ok {
		return nil, false
	}
	return w.DB(), true
}
