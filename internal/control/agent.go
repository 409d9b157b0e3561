package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/courier/internal/core/config"
	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/events"
	"github.com/vietddude/courier/internal/health"
	"github.com/vietddude/courier/internal/health/probes"
	"github.com/vietddude/courier/internal/resilience/breaker"
	"github.com/vietddude/courier/internal/resilience/deadletter"
	"github.com/vietddude/courier/internal/resilience/retry"
	"github.com/vietddude/courier/internal/routing"
	"github.com/vietddude/courier/internal/transport"
)

// Agent is the main application struct. It owns the transports, the
// resilience stack around them, and the health orchestration, and is
// the single entry point for executing operations against the platform.
type Agent struct {
	cfg          config.AppConfig
	breakers     *breaker.Registry
	queue        *deadletter.Queue
	retries      *retry.Manager
	selector     *routing.Selector
	healthMgr    *health.Manager
	healthServer *health.Server
	log          *slog.Logger

	// held only so Stop can close them
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
}

// NewAgent creates an Agent with all dependencies initialized.
func NewAgent(cfg config.AppConfig) (*Agent, error) {
	log := slog.Default()
	sink := events.NewSlogSink(log)

	// 1. Dead-letter store
	var store deadletter.Store
	switch cfg.DeadLetter.Backend {
	case "", "memory":
		store = deadletter.NewMemoryStore()
		log.Info("Using in-memory dead-letter store")
	case "redis":
		s, err := deadletter.NewRedisStore(cfg.DeadLetter.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis dead-letter store: %w", err)
		}
		store = s
		log.Info("Using Redis dead-letter store")
	case "postgres":
		s, err := deadletter.NewPostgresStore(context.Background(), cfg.DeadLetter.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres dead-letter store: %w", err)
		}
		store = s
		log.Info("Using PostgreSQL dead-letter store")
	default:
		return nil, fmt.Errorf("unknown dead-letter backend: %s", cfg.DeadLetter.Backend)
	}
	queue := deadletter.NewQueue(cfg.DeadLetter.Config, store)

	// 2. Resilience stack
	breakers := breaker.NewRegistry(cfg.Breaker, sink)
	retries := retry.NewManager(cfg.Retry, breakers, queue, sink)

	// 3. Health orchestration
	healthMgr := health.NewManager(log, sink)

	agent := &Agent{
		cfg:       cfg,
		breakers:  breakers,
		queue:     queue,
		retries:   retries,
		healthMgr: healthMgr,
		log:       log,
	}

	if err := agent.registerProbes(cfg.Health.Probes); err != nil {
		return nil, err
	}

	// 4. Transports and selection
	selector := routing.NewSelector(breakers, healthMgr, cfg.Preferences, sink, log)
	for _, tc := range cfg.Transports {
		t, err := buildTransport(tc)
		if err != nil {
			return nil, fmt.Errorf("failed to init transport %s: %w", tc.Name, err)
		}
		selector.AddTransport(t)
		log.Info("Transport registered", "name", t.Name(), "kind", t.Kind())
	}
	agent.selector = selector

	// 5. Health server
	agent.healthServer = health.NewServer(healthMgr, cfg.Server.Port, health.AgentInfo{
		AgentID:      cfg.Agent.ID,
		Name:         cfg.Agent.Name,
		Capabilities: cfg.Agent.Capabilities,
	})

	return agent, nil
}

func buildTransport(tc transport.Config) (transport.Transport, error) {
	timeout := 30 * time.Second
	if tc.Timeout != "" {
		d, err := time.ParseDuration(tc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", tc.Timeout, err)
		}
		timeout = d
	}

	switch tc.Kind {
	case domain.ProtocolRPC:
		return transport.NewHTTPTransport(tc.Name, tc.Endpoint, timeout), nil
	case domain.ProtocolStream:
		return transport.NewGRPCTransport(tc.Name, tc.Endpoint)
	case domain.ProtocolBus:
		return transport.NewBusTransportFromURL(context.Background(), tc.Name, tc.Endpoint, "")
	case domain.ProtocolTool:
		return transport.NewToolTransport(tc.Name, tc.Endpoint, timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport kind: %s", tc.Kind)
	}
}

func (a *Agent) registerProbes(cfg config.ProbesConfig) error {
	for _, pc := range cfg.API {
		if pc.URL == "" {
			continue
		}
		a.healthMgr.Register(probes.NewAPIProbe(pc.URL, nil, pc.ProbeOpts))
	}

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to init database probe: %w", err)
		}
		a.dbPool = pool
		a.healthMgr.Register(probes.NewDatabaseProbe(pool, cfg.Database.ProbeOpts))
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to init redis probe: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		a.healthMgr.Register(probes.NewRedisProbe(a.redisClient, cfg.Redis.ProbeOpts))
	}

	if cfg.Memory.Enabled {
		a.healthMgr.Register(probes.NewMemoryProbe(
			cfg.Memory.BudgetMB*1024*1024,
			cfg.Memory.WarningThreshold,
			cfg.Memory.CriticalThreshold,
			cfg.Memory.ProbeOpts,
		))
	}
	return nil
}

// Do executes an operation: pick a viable transport, wrap its Call in
// the retry loop, and return the final result. Candidates narrows the
// transports considered; nil means every registered transport.
func (a *Agent) Do(ctx context.Context, op domain.Operation, candidates ...string) (any, error) {
	t, err := a.selector.Select(op.Kind, candidates)
	if err != nil {
		return nil, err
	}
	return a.Via(ctx, t, op)
}

// Via executes an operation over a specific transport, bypassing
// selection but keeping the retry loop and circuit breaker.
func (a *Agent) Via(ctx context.Context, t transport.Transport, op domain.Operation) (any, error) {
	if op.Invoke == nil {
		method := op.Name
		payload := op.Payload
		op.Invoke = func(cctx context.Context) (any, error) {
			return t.Call(cctx, method, payload)
		}
	}
	op.Transport = t.Name()
	return a.retries.Execute(ctx, op, t.Name())
}

// Selector exposes transport selection for callers that want to
// inspect routing without executing anything.
func (a *Agent) Selector() *routing.Selector { return a.selector }

// DeadLetters exposes the dead-letter queue for inspection and replay.
func (a *Agent) DeadLetters() *deadletter.Queue { return a.queue }

// Breakers exposes per-transport circuit state.
func (a *Agent) Breakers() []breaker.Snapshot { return a.breakers.Snapshots() }

// Health exposes the probe orchestrator.
func (a *Agent) Health() *health.Manager { return a.healthMgr }

// Replay drains the dead-letter queue and re-executes every entry that
// still has a registered transport. Entries whose transport is gone, or
// that fail again, are re-enqueued by the retry loop as usual.
func (a *Agent) Replay(ctx context.Context) (int, error) {
	entries, err := a.queue.Drain(ctx)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, e := range entries {
		t, ok := a.selector.Transport(e.Transport)
		if !ok {
			a.log.Warn("Skipping dead letter, transport gone", "id", e.ID, "transport", e.Transport)
			continue
		}
		op := domain.Operation{
			ID:         e.ID,
			Name:       e.Operation,
			Kind:       domain.OperationKind(e.Kind),
			Idempotent: true,
		}
		if _, err := a.Via(ctx, t, op); err != nil {
			a.log.Warn("Dead letter replay failed", "id", e.ID, "error", err)
			continue
		}
		replayed++
	}
	return replayed, nil
}

// Start starts the health server and the periodic probe loop.
func (a *Agent) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	// Run an initial sweep so selection has status to consume before
	// the first tick.
	go a.runHealthLoop(ctx)

	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) {
	a.healthMgr.RunAll(ctx)

	interval := a.cfg.Health.Interval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := a.healthMgr.RunAll(ctx)
			a.log.Debug("Health sweep complete",
				"overall", summary.Overall,
				"healthy", summary.HealthyCount,
				"unhealthy", summary.UnhealthyCount)
		}
	}
}

// Stop stops the agent and closes every transport and backend client.
func (a *Agent) Stop(ctx context.Context) error {
	a.log.Info("Stopping agent...")

	for _, name := range a.selector.Transports() {
		if t, ok := a.selector.Transport(name); ok {
			if err := t.Close(); err != nil {
				a.log.Warn("Failed to close transport", "name", name, "error", err)
			}
		}
	}

	if err := a.queue.Close(); err != nil {
		a.log.Warn("Failed to close dead-letter queue", "error", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}
