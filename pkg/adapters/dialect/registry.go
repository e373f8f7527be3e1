package dialect

import (
	"context"
	"sync"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// AdapterInfo describes a registered adapter for discovery surfaces.
type AdapterInfo struct {
	Dialect     models.Dialect `json:"dialect"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
}

// TesterFactory builds a ConnectionTester from a decoded credential bundle.
type TesterFactory func(ctx context.Context, bundle map[string]any, mgr *ConnectionManager, orgID int64) (ConnectionTester, error)

// SchemaReaderFactory builds a SchemaReader from a decoded credential bundle.
type SchemaReaderFactory func(ctx context.Context, bundle map[string]any, mgr *ConnectionManager, orgID int64) (SchemaReader, error)

// QueryRunnerFactory builds a QueryRunner from a decoded credential bundle.
type QueryRunnerFactory func(ctx context.Context, bundle map[string]any, mgr *ConnectionManager, orgID int64) (QueryRunner, error)

// Registration bundles the info and factories one dialect contributes.
type Registration struct {
	Info                AdapterInfo
	TesterFactory       TesterFactory
	SchemaReaderFactory SchemaReaderFactory
	QueryRunnerFactory  QueryRunnerFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Dialect]Registration)
)

// Register is called by each adapter package's init(). Safe for concurrent
// init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Dialect] = reg
}

// RegisteredAdapters returns info for every compiled-in adapter.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// IsRegistered checks whether a dialect has an adapter implementation.
func IsRegistered(d models.Dialect) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[d]
	return ok
}

func getRegistration(d models.Dialect) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[d]
	return reg, ok
}
