// Package probes provides concrete health probes for the dependencies an
// agent commonly sits on: a Postgres database, an HTTP API, a Redis
// instance, and its own memory pressure.
package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vietddude/courier/internal/health"
)

// DatabaseProbe checks Postgres reachability with a test query.
type DatabaseProbe struct {
	health.Base
	pool  *pgxpool.Pool
	query string
}

// NewDatabaseProbe creates a probe over an existing connection pool.
func NewDatabaseProbe(pool *pgxpool.Pool, opts health.ProbeOpts) *DatabaseProbe {
	return &DatabaseProbe{
		Base:  health.NewBase(opts, "database"),
		pool:  pool,
		query: "SELECT 1",
	}
}

func (p *DatabaseProbe) Check(ctx context.Context) (health.Result, error) {
	if p.pool == nil {
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnknown,
			Message: "no database configured",
		}, nil
	}

	start := time.Now()
	var one int
	if err := p.pool.QueryRow(ctx, p.query).Scan(&one); err != nil {
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnhealthy,
			Message: fmt.Sprintf("database query failed: %v", err),
			Error:   err.Error(),
		}, nil
	}

	stat := p.pool.Stat()
	return health.Result{
		Name:    p.Name(),
		Status:  health.StatusHealthy,
		Message: "database reachable",
		Details: map[string]any{
			"query":            p.query,
			"response_time_ms": time.Since(start).Milliseconds(),
			"total_conns":      stat.TotalConns(),
			"idle_conns":       stat.IdleConns(),
		},
	}, nil
}
