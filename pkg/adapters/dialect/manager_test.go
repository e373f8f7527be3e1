package dialect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConnector counts pings and closes so tests can assert pool lifecycle
// without a real database.
type fakeConnector struct {
	mu        sync.Mutex
	pingErr   error
	pingCount int
	closed    bool
}

func (f *fakeConnector) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCount++
	return f.pingErr
}

func (f *fakeConnector) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConnector) Dialect() string { return "fake" }

func (f *fakeConnector) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestManager(t *testing.T, cfg ConnectionManagerConfig) *ConnectionManager {
	t.Helper()
	m := NewConnectionManager(cfg, zap.NewNop())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestGetOrCreate_ReusesHealthyPool(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{})

	conn := &fakeConnector{}
	creates := 0
	create := func(ctx context.Context) (PoolConnector, error) {
		creates++
		return conn, nil
	}

	first, err := m.getOrCreate(context.Background(), 42, "postgres", create)
	require.NoError(t, err)
	second, err := m.getOrCreate(context.Background(), 42, "postgres", create)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, creates)
	assert.False(t, conn.isClosed())
}

func TestGetOrCreate_RecreatesUnhealthyPool(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{})

	sick := &fakeConnector{pingErr: errors.New("connection reset by peer")}
	healthy := &fakeConnector{}
	connectors := []PoolConnector{sick, healthy}
	create := func(ctx context.Context) (PoolConnector, error) {
		next := connectors[0]
		connectors = connectors[1:]
		return next, nil
	}

	first, err := m.getOrCreate(context.Background(), 7, "mysql", create)
	require.NoError(t, err)
	assert.Same(t, PoolConnector(sick), first)

	// The cached pool fails its health check: it must be closed and a
	// replacement created.
	second, err := m.getOrCreate(context.Background(), 7, "mysql", create)
	require.NoError(t, err)
	assert.Same(t, PoolConnector(healthy), second)
	assert.True(t, sick.isClosed())
	assert.False(t, healthy.isClosed())
}

func TestGetOrCreate_DistinctKeysGetDistinctPools(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{})

	create := func(ctx context.Context) (PoolConnector, error) {
		return &fakeConnector{}, nil
	}

	a, err := m.getOrCreate(context.Background(), 1, "postgres", create)
	require.NoError(t, err)
	b, err := m.getOrCreate(context.Background(), 2, "postgres", create)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, m.GetStats().TotalPools)
}

func TestGetOrCreate_EnforcesMaxPoolsPerOrg(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{MaxPoolsPerOrg: 1})

	create := func(ctx context.Context) (PoolConnector, error) {
		return &fakeConnector{}, nil
	}

	_, err := m.getOrCreate(context.Background(), 42, "postgres", create)
	require.NoError(t, err)

	_, err = m.getOrCreate(context.Background(), 42, "oracle", create)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum pool limit")

	// Other orgs are unaffected.
	_, err = m.getOrCreate(context.Background(), 43, "postgres", create)
	require.NoError(t, err)
}

func TestGetOrCreate_CreateFailureIsReturned(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{})

	create := func(ctx context.Context) (PoolConnector, error) {
		return nil, errors.New("invalid dsn")
	}

	_, err := m.getOrCreate(context.Background(), 9, "mssql", create)
	require.Error(t, err)
	assert.Equal(t, 0, m.GetStats().TotalPools)
}

func TestPerformCleanup_EvictsIdlePools(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{TTLMinutes: 1})

	conn := &fakeConnector{}
	_, err := m.getOrCreate(context.Background(), 5, "postgres", func(ctx context.Context) (PoolConnector, error) {
		return conn, nil
	})
	require.NoError(t, err)

	// Age the pool past the TTL, then run a cleanup pass directly.
	m.mu.Lock()
	for _, managed := range m.pools {
		managed.lastUsed = time.Now().Add(-2 * time.Minute)
	}
	m.mu.Unlock()

	m.performCleanup()

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, m.GetStats().TotalPools)
}

func TestClose_ClosesAllPoolsAndIsIdempotent(t *testing.T) {
	m := NewConnectionManager(ConnectionManagerConfig{}, zap.NewNop())

	var conns []*fakeConnector
	for i := 0; i < 3; i++ {
		conn := &fakeConnector{}
		conns = append(conns, conn)
		_, err := m.getOrCreate(context.Background(), int64(i), "postgres", func(ctx context.Context) (PoolConnector, error) {
			return conn, nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, m.Close())
	for i, conn := range conns {
		assert.True(t, conn.isClosed(), "connector %d not closed", i)
	}

	require.NoError(t, m.Close())
}

func TestGetStats_GroupsByOrgAndDialect(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{MaxPoolsPerOrg: 5})

	create := func(ctx context.Context) (PoolConnector, error) {
		return &fakeConnector{}, nil
	}
	_, err := m.getOrCreate(context.Background(), 42, "postgres", create)
	require.NoError(t, err)
	_, err = m.getOrCreate(context.Background(), 42, "oracle", create)
	require.NoError(t, err)
	_, err = m.getOrCreate(context.Background(), 7, "postgres", create)
	require.NoError(t, err)

	stats := m.GetStats()
	assert.Equal(t, 3, stats.TotalPools)
	assert.Equal(t, 2, stats.PoolsByOrg["42"])
	assert.Equal(t, 1, stats.PoolsByOrg["7"])
	assert.Equal(t, 2, stats.PoolsByDialect["postgres"])
	assert.Equal(t, 1, stats.PoolsByDialect["oracle"])
}

func TestGetOrCreate_ConcurrentCallersShareOnePool(t *testing.T) {
	m := newTestManager(t, ConnectionManagerConfig{})

	var createMu sync.Mutex
	creates := 0
	create := func(ctx context.Context) (PoolConnector, error) {
		createMu.Lock()
		creates++
		createMu.Unlock()
		return &fakeConnector{}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.getOrCreate(context.Background(), 42, "postgres", create)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, fmt.Sprintf("goroutine %d", i))
	}
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, m.GetStats().TotalPools)
}
