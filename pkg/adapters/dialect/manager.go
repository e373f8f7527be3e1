package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/querypilot/querypilot-engine/pkg/logging"
	"github.com/querypilot/querypilot-engine/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes  = 5
	DefaultCleanupInterval       = 1 * time.Minute
	DefaultMaxPoolsPerOrg        = 2
	DefaultPoolMaxConns          = 5
	DefaultPoolMinConns          = 1
	DefaultConnectTimeoutSeconds = 5
)

// ConnectionManagerConfig holds configuration for the connection manager.
type ConnectionManagerConfig struct {
	TTLMinutes            int
	MaxPoolsPerOrg        int
	PoolMaxConns          int32
	PoolMinConns          int32
	ConnectTimeoutSeconds int
}

// ConnectionManager caches connection pools to tenant databases, keyed by
// org and dialect, with TTL-based eviction. Pools are expensive to set up
// and every request for the same org reuses the cached one; an idle org's
// pool is reaped by the cleanup goroutine so credentials rotated upstream
// take effect within one TTL.
type ConnectionManager struct {
	mu             sync.RWMutex
	pools          map[string]*managedPool // key: "{orgID}:{dialect}"
	ttl            time.Duration
	maxPoolsPerOrg int
	poolMaxConns   int32
	poolMinConns   int32
	connectTimeout time.Duration
	stopped        bool
	stopChan       chan struct{}
	logger         *zap.Logger
}

type managedPool struct {
	connector PoolConnector
	lastUsed  time.Time
	mu        sync.Mutex
}

// NewConnectionManager creates a connection manager and starts its cleanup
// goroutine, which runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if cfg.MaxPoolsPerOrg <= 0 {
		cfg.MaxPoolsPerOrg = DefaultMaxPoolsPerOrg
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.PoolMinConns <= 0 {
		cfg.PoolMinConns = DefaultPoolMinConns
	}
	if cfg.ConnectTimeoutSeconds <= 0 {
		cfg.ConnectTimeoutSeconds = DefaultConnectTimeoutSeconds
	}

	m := &ConnectionManager{
		pools:          make(map[string]*managedPool),
		ttl:            time.Duration(cfg.TTLMinutes) * time.Minute,
		maxPoolsPerOrg: cfg.MaxPoolsPerOrg,
		poolMaxConns:   cfg.PoolMaxConns,
		poolMinConns:   cfg.PoolMinConns,
		connectTimeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		stopChan:       make(chan struct{}),
		logger:         logger,
	}

	go m.cleanupExpiredPools()
	return m
}

func poolKey(orgID int64, dialect string) string {
	return fmt.Sprintf("%d:%s", orgID, dialect)
}

// countPoolsForOrg counts cached pools for an org. Caller must hold m.mu.
func (m *ConnectionManager) countPoolsForOrg(orgID int64) int {
	prefix := strconv.FormatInt(orgID, 10) + ":"
	count := 0
	for key := range m.pools {
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}
	return count
}

// GetOrCreatePgxPool returns the cached pgx pool for the org's postgres
// connection, creating one if none exists or the cached one fails its
// health check.
func (m *ConnectionManager) GetOrCreatePgxPool(ctx context.Context, orgID int64, dialect, connString string) (*pgxpool.Pool, error) {
	connector, err := m.getOrCreate(ctx, orgID, dialect, func(ctx context.Context) (PoolConnector, error) {
		poolConfig, err := pgxpool.ParseConfig(connString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection string: %w", err)
		}
		poolConfig.MaxConns = m.poolMaxConns
		poolConfig.MinConns = m.poolMinConns
		poolConfig.MaxConnIdleTime = m.ttl

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}
		return NewPgxPoolWrapper(pool, dialect), nil
	})
	if err != nil {
		return nil, err
	}
	pool, ok := GetPgxPool(connector)
	if !ok {
		return nil, fmt.Errorf("cached pool for org %d is not a pgx pool", orgID)
	}
	return pool, nil
}

// GetOrCreateSQLPool returns the cached database/sql pool for the org,
// creating one via the named driver if none exists.
func (m *ConnectionManager) GetOrCreateSQLPool(ctx context.Context, orgID int64, dialect, driverName, dsn string) (*sql.DB, error) {
	connector, err := m.getOrCreate(ctx, orgID, dialect, func(ctx context.Context) (PoolConnector, error) {
		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(int(m.poolMaxConns))
		db.SetMaxIdleConns(int(m.poolMinConns))
		db.SetConnMaxIdleTime(m.ttl)
		return NewSQLPoolWrapper(db, dialect), nil
	})
	if err != nil {
		return nil, err
	}
	db, ok := GetSQLDB(connector)
	if !ok {
		return nil, fmt.Errorf("cached pool for org %d is not a database/sql pool", orgID)
	}
	return db, nil
}

// getOrCreate implements the cache protocol shared by both pool kinds.
func (m *ConnectionManager) getOrCreate(ctx context.Context, orgID int64, dialect string, create func(ctx context.Context) (PoolConnector, error)) (PoolConnector, error) {
	key := poolKey(orgID, dialect)

	// Fast path: reuse a healthy cached pool.
	m.mu.RLock()
	managed, exists := m.pools[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.connector.Ping(healthCtx)
		})
		cancel()

		if err != nil {
			m.logger.Warn("cached pool unhealthy, recreating",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.removePool(key)
			return m.createPool(ctx, key, orgID, create)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.connector, nil
	}

	return m.createPool(ctx, key, orgID, create)
}

// createPool creates and caches a pool with retry. Caller must NOT hold
// any locks.
func (m *ConnectionManager) createPool(ctx context.Context, key string, orgID int64, create func(ctx context.Context) (PoolConnector, error)) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after taking the write lock; another goroutine may have
	// created it.
	if managed, exists := m.pools[key]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.connector, nil
	}

	orgPoolCount := m.countPoolsForOrg(orgID)
	if orgPoolCount >= m.maxPoolsPerOrg {
		m.logger.Warn("org reached max pool limit",
			zap.Int64("orgID", orgID),
			zap.Int("current", orgPoolCount),
			zap.Int("max", m.maxPoolsPerOrg),
		)
		return nil, fmt.Errorf("org %d has reached maximum pool limit (%d)", orgID, m.maxPoolsPerOrg)
	}

	connector, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
		connectCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
		return create(connectCtx)
	})
	if err != nil {
		m.logger.Error("failed to create pool after retries",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("failed to create pool for %s after retries: %w", key, err)
	}

	m.pools[key] = &managedPool{
		connector: connector,
		lastUsed:  time.Now(),
	}

	m.logger.Info("created connection pool",
		zap.String("key", key),
		zap.Int64("orgID", orgID),
		zap.Int("orgTotalPools", orgPoolCount+1),
	)

	return connector, nil
}

// removePool closes and evicts a cached pool. Caller must NOT hold m.mu.
func (m *ConnectionManager) removePool(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.pools[key]; exists && managed != nil {
		if managed.connector != nil {
			managed.connector.Close()
		}
		delete(m.pools, key)
		m.logger.Debug("removed pool", zap.String("key", key))
	}
}

// cleanupExpiredPools runs in a background goroutine until stopChan closes.
func (m *ConnectionManager) cleanupExpiredPools() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup evicts pools idle past the TTL. Lock ordering is manager
// lock then pool lock.
func (m *ConnectionManager) performCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expiredKeys []string

	for key, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		expired := now.Sub(managed.lastUsed) > m.ttl
		managed.mu.Unlock()
		if expired {
			expiredKeys = append(expiredKeys, key)
		}
	}

	for _, key := range expiredKeys {
		if managed := m.pools[key]; managed != nil {
			if managed.connector != nil {
				managed.connector.Close()
			}
			delete(m.pools, key)
		}
	}

	if len(expiredKeys) > 0 {
		m.logger.Info("cleaned up expired pools",
			zap.Int("count", len(expiredKeys)),
			zap.Int("remaining", len(m.pools)),
		)
	}
}

// Close closes every cached pool and stops the cleanup goroutine.
// Idempotent.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for _, managed := range m.pools {
		if managed != nil && managed.connector != nil {
			managed.connector.Close()
		}
	}

	m.pools = make(map[string]*managedPool)
	m.logger.Info("connection manager closed")
	return nil
}

// PoolStats describes the manager's current cache state.
type PoolStats struct {
	TotalPools        int            `json:"total_pools"`
	MaxPoolsPerOrg    int            `json:"max_pools_per_org"`
	TTLMinutes        int            `json:"ttl_minutes"`
	PoolsByOrg        map[string]int `json:"pools_by_org"`
	PoolsByDialect    map[string]int `json:"pools_by_dialect"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}

// GetStats returns a snapshot of the cache. Safe to call concurrently.
func (m *ConnectionManager) GetStats() PoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := PoolStats{
		TotalPools:     len(m.pools),
		MaxPoolsPerOrg: m.maxPoolsPerOrg,
		TTLMinutes:     int(m.ttl.Minutes()),
		PoolsByOrg:     make(map[string]int),
		PoolsByDialect: make(map[string]int),
	}

	for key, managed := range m.pools {
		if org, dialect, ok := strings.Cut(key, ":"); ok {
			stats.PoolsByOrg[org]++
			stats.PoolsByDialect[dialect]++
		}

		if managed != nil {
			managed.mu.Lock()
			idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
			managed.mu.Unlock()
			if idleSeconds > stats.OldestIdleSeconds {
				stats.OldestIdleSeconds = idleSeconds
			}
		}
	}

	return stats
}
