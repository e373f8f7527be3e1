package dialect

import (
	"context"
	"fmt"

	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// AdapterFactory creates adapters from the registry. Services depend on
// this interface so tests can substitute fakes without touching a network.
type AdapterFactory interface {
	NewConnectionTester(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (ConnectionTester, error)
	NewSchemaReader(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (SchemaReader, error)
	NewQueryRunner(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (QueryRunner, error)

	// ListDialects returns info for every registered adapter.
	ListDialects() []AdapterInfo
}

type registryFactory struct {
	connMgr *ConnectionManager
}

// NewAdapterFactory returns a factory backed by the package registry.
func NewAdapterFactory(connMgr *ConnectionManager) AdapterFactory {
	return &registryFactory{connMgr: connMgr}
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (ConnectionTester, error) {
	reg, ok := getRegistration(d)
	if !ok || reg.TesterFactory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDialect, d)
	}
	return reg.TesterFactory(ctx, bundle, f.connMgr, orgID)
}

func (f *registryFactory) NewSchemaReader(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (SchemaReader, error) {
	reg, ok := getRegistration(d)
	if !ok || reg.SchemaReaderFactory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDialect, d)
	}
	return reg.SchemaReaderFactory(ctx, bundle, f.connMgr, orgID)
}

func (f *registryFactory) NewQueryRunner(ctx context.Context, d models.Dialect, bundle map[string]any, orgID int64) (QueryRunner, error) {
	reg, ok := getRegistration(d)
	if !ok || reg.QueryRunnerFactory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDialect, d)
	}
	return reg.QueryRunnerFactory(ctx, bundle, f.connMgr, orgID)
}

func (f *registryFactory) ListDialects() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements AdapterFactory at compile time.
var _ AdapterFactory = (*registryFactory)(nil)
