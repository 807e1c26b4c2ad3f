package postgres

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/dbexec/internal/exec/metrics"
)

// Conn is an attempt-scoped handle: one connection checked out of the pool,
// released exactly once on every exit path of the attempt.
type Conn struct {
	conn     *sqlx.Conn
	resource string
	log      *slog.Logger

	release sync.Once
}

// DB exposes the underlying connection for the operation body.
func (c *Conn) DB() *sqlx.Conn { return c.conn }

// EnsureLive issues a minimal no-op round-trip under its own short timeout.
// Any probe failure is swallowed and reported as false; the executor turns
// that into a first-class failure for the attempt.
func (c *Conn) EnsureLive(ctx context.Context, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var one int
	if err := c.conn.QueryRowxContext(probeCtx, "SELECT 1").Scan(&one); err != nil {
		metrics.ProbeFailuresTotal.WithLabelValues(c.resource).Inc()
		c.log.Debug("Liveness probe failed", "resource", c.resource, "error", err)
		return false
	}
	return one == 1
}

// Release returns the connection to the pool. Safe to call more than once.
func (c *Conn) Release() {
	c.release.Do(func() {
		_ = c.conn.Close()
	})
}
