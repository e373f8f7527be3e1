package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
	sqlparse "github.com/querypilot/querypilot-engine/pkg/sql"
)

// QueryRunner executes read-only SQL against an Oracle source.
type QueryRunner struct {
	db      *sql.DB
	ownedDB bool
}

// NewQueryRunner creates an Oracle query runner.
func NewQueryRunner(ctx context.Context, cfg *Config, connMgr *dialect.ConnectionManager, orgID int64) (*QueryRunner, error) {
	db, owned, err := acquireDB(ctx, cfg, connMgr, orgID)
	if err != nil {
		return nil, err
	}
	return &QueryRunner{db: db, ownedDB: owned}, nil
}

// Explain dry-runs the statement without executing it: every table the
// statement references is checked against the data dictionary, so a missing
// table surfaces like ORA-00942 would. EXPLAIN PLAN is avoided because it
// needs a writable PLAN_TABLE, which read-only accounts rarely have, and
// running the statement itself would let side-effecting functions in the
// select list fire during validation.
func (q *QueryRunner) Explain(ctx context.Context, sqlQuery string) error {
	if err := q.db.PingContext(ctx); err != nil {
		return dialect.ConnectionError(models.DialectOracle, fmt.Errorf("ping failed: %w", err))
	}

	for _, ref := range sqlparse.TableReferences(sqlQuery) {
		owner, table := splitTableRef(ref)
		exists, err := q.tableExists(ctx, owner, table)
		if err != nil {
			return err
		}
		if !exists {
			return dialect.QueryError(models.DialectOracle,
				fmt.Errorf("ORA-00942: table or view %s does not exist", ref))
		}
	}
	return nil
}

// splitTableRef splits an optional OWNER.TABLE reference, folding both parts
// to the dictionary's upper case.
func splitTableRef(ref string) (owner, table string) {
	if o, t, ok := strings.Cut(ref, "."); ok {
		return strings.ToUpper(o), strings.ToUpper(t)
	}
	return "", strings.ToUpper(ref)
}

// tableExists checks ALL_TAB_COLUMNS, which covers both tables and views the
// connecting user can see.
func (q *QueryRunner) tableExists(ctx context.Context, owner, table string) (bool, error) {
	query := `SELECT COUNT(*) FROM all_tab_columns WHERE table_name = :1 AND ROWNUM = 1`
	args := []any{table}
	if owner != "" {
		query = `SELECT COUNT(*) FROM all_tab_columns WHERE table_name = :1 AND owner = :2 AND ROWNUM = 1`
		args = append(args, owner)
	}

	var count int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, dialect.ClassifyQueryError(models.DialectOracle, fmt.Errorf("check table %s: %w", table, err))
	}
	return count > 0, nil
}

// Query runs the statement inside a ROWNUM bound.
func (q *QueryRunner) Query(ctx context.Context, sqlQuery string, limit int) (*dialect.QueryResult, error) {
	bounded := fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", sqlQuery, dialect.BoundLimit(limit))

	rows, err := q.db.QueryContext(ctx, bounded)
	if err != nil {
		return nil, dialect.ClassifyQueryError(models.DialectOracle, err)
	}
	defer rows.Close()

	return dialect.CollectSQLRows(rows, models.DialectOracle)
}

// Close releases the runner but not a managed pool.
func (q *QueryRunner) Close() error {
	if q.ownedDB && q.db != nil {
		return q.db.Close()
	}
	return nil
}

var _ dialect.QueryRunner = (*QueryRunner)(nil)
