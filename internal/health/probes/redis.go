package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/courier/internal/health"
)

// RedisProbe checks Redis reachability with a ping.
type RedisProbe struct {
	health.Base
	rdb *redis.Client
}

// NewRedisProbe creates a probe over an existing Redis client.
func NewRedisProbe(rdb *redis.Client, opts health.ProbeOpts) *RedisProbe {
	return &RedisProbe{
		Base: health.NewBase(opts, "redis"),
		rdb:  rdb,
	}
}

func (p *RedisProbe) Check(ctx context.Context) (health.Result, error) {
	if p.rdb == nil {
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnknown,
			Message: "no redis configured",
		}, nil
	}

	start := time.Now()
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnhealthy,
			Message: fmt.Sprintf("redis ping failed: %v", err),
			Error:   err.Error(),
		}, nil
	}

	return health.Result{
		Name:    p.Name(),
		Status:  health.StatusHealthy,
		Message: "redis reachable",
		Details: map[string]any{
			"response_time_ms": time.Since(start).Milliseconds(),
		},
	}, nil
}
