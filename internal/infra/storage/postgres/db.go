// Package postgres adapts pooled PostgreSQL connections to the executor's
// handle contract.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/dbexec/internal/core/domain"
	"github.com/vietddude/dbexec/internal/exec/metrics"
)

// Manager owns one connection pool per resolved profile. Pools are created
// lazily on first acquisition and live for the process lifetime.
type Manager struct {
	log *slog.Logger

	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

// NewManager creates an empty pool manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:   log,
		pools: make(map[string]*sqlx.DB),
	}
}

// Pool returns the pool for a profile, creating it on first use with the
// profile's bounds and lifetimes applied.
func (m *Manager) Pool(prof *domain.ResourceProfile) (*sqlx.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.pools[prof.Name]; ok {
		return db, nil
	}

	db, err := sqlx.Open("pgx", dsn(prof))
	if err != nil {
		return nil, fmt.Errorf("failed to open pool for resource %q: %w", prof.Name, err)
	}

	db.SetMaxOpenConns(prof.MaxConns)
	db.SetMaxIdleConns(prof.MinConns)
	db.SetConnMaxIdleTime(prof.IdleLifetime)
	db.SetConnMaxLifetime(time.Hour)

	m.pools[prof.Name] = db
	m.log.Info("Created connection pool",
		"resource", prof.Name,
		"min_conns", prof.MinConns,
		"max_conns", prof.MaxConns,
	)
	return db, nil
}

// Acquire checks one connection out of the profile's pool for the duration
// of a single attempt. Acquisition failures are mapped into the boundary
// failure vocabulary.
func (m *Manager) Acquire(ctx context.Context, prof *domain.ResourceProfile) (*Conn, error) {
	db, err := m.Pool(prof)
	if err != nil {
		return nil, MapError(err)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, prof.ConnectTimeout)
	defer cancel()

	conn, err := db.Connx(acquireCtx)
	if err != nil {
		return nil, MapError(err)
	}
	return &Conn{conn: conn, resource: prof.Name, log: m.log}, nil
}

// Close closes every pool. Only used at shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, db := range m.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close pool %q: %w", name, err)
		}
		delete(m.pools, name)
	}
	return firstErr
}

// StartStatsCollector starts a background goroutine publishing pool usage
// gauges until ctx is cancelled.
func (m *Manager) StartStatsCollector(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				for name, db := range m.pools {
					stats := db.Stats()
					if stats.MaxOpenConnections > 0 {
						usage := float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100
						metrics.PoolUsage.WithLabelValues(name).Set(usage)
					}
				}
				m.mu.Unlock()
			}
		}
	}()
}

// dsn augments the profile URL with the enrichment parameters pgx reads from
// the connection string.
func dsn(prof *domain.ResourceProfile) string {
	u, err := url.Parse(prof.URL)
	if err != nil {
		return prof.URL
	}

	q := u.Query()
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(prof.ConnectTimeout.Seconds())))
	}
	if q.Get("statement_cache_capacity") == "" {
		q.Set("statement_cache_capacity", fmt.Sprintf("%d", prof.StatementCacheMax))
	}
	if prof.LoadBalance && q.Get("target_session_attrs") == "" {
		q.Set("target_session_attrs", "any")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
