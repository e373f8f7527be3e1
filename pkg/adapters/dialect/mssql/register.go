package mssql

import (
	"context"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// init registers the SQL Server adapter with the dialect registry.
func init() {
	dialect.Register(dialect.Registration{
		Info: dialect.AdapterInfo{
			Dialect:     models.DialectMSSQL,
			DisplayName: "SQL Server",
			Description: "Microsoft SQL Server databases via go-mssqldb",
		},
		TesterFactory: func(ctx context.Context, bundle map[string]any, mgr *dialect.ConnectionManager, orgID int64) (dialect.ConnectionTester, error) {
			cfg, err := FromBundle(bundle)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, mgr, orgID)
		},
		SchemaReaderFactory: func(ctx context.Context, bundle map[string]any, mgr *dialect.ConnectionManager, orgID int64) (dialect.SchemaReader, error) {
			cfg, err := FromBundle(bundle)
			if err != nil {
				return nil, err
			}
			return NewSchemaReader(ctx, cfg, mgr, orgID)
		},
		QueryRunnerFactory: func(ctx context.Context, bundle map[string]any, mgr *dialect.ConnectionManager, orgID int64) (dialect.QueryRunner, error) {
			cfg, err := FromBundle(bundle)
			if err != nil {
				return nil, err
			}
			return NewQueryRunner(ctx, cfg, mgr, orgID)
		},
	})
}
