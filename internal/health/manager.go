package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/courier/internal/events"
	"github.com/vietddude/courier/internal/metrics"
)

// Manager orchestrates registered probes. Probes are registered at
// startup; the set is read-only during a run.
type Manager struct {
	log  *slog.Logger
	sink events.Sink

	mu      sync.RWMutex
	probes  []Probe
	last    Summary
	hasLast bool
}

// NewManager creates a health check manager.
func NewManager(log *slog.Logger, sink events.Sink) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Manager{log: log, sink: sink}
}

// Register adds a probe. Duplicate names are allowed but produce
// ambiguous aggregation, so they are flagged as a caller error.
func (m *Manager) Register(p Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.probes {
		if existing.Name() == p.Name() {
			m.log.Error("duplicate probe name registered, aggregation will be ambiguous",
				"probe", p.Name())
		}
	}

	m.probes = append(m.probes, p)
	m.log.Info("health probe registered",
		"probe", p.Name(),
		"critical", p.Critical(),
		"timeout", p.Timeout(),
		"tags", p.Tags())
}

// RegisterAll adds multiple probes.
func (m *Manager) RegisterAll(probes []Probe) {
	for _, p := range probes {
		m.Register(p)
	}
}

// RunAll executes every registered probe concurrently, each under its own
// timeout, and aggregates the results. Probe errors, timeouts, and panics
// become unhealthy results; RunAll itself never fails and always returns
// exactly one result per registered probe.
func (m *Manager) RunAll(ctx context.Context) Summary {
	m.mu.RLock()
	probes := make([]Probe, len(m.probes))
	copy(probes, m.probes)
	m.mu.RUnlock()

	start := time.Now()
	m.log.Debug("running health checks", "total", len(probes))

	results := make([]Result, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			r := m.runProbe(ctx, p)
			results[i] = r

			metrics.ProbeStatus.WithLabelValues(r.Name).Set(statusGaugeValue(r.Status))
			metrics.ProbeDuration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
			m.sink.Emit(events.Event{
				Kind:      events.KindProbeResult,
				Operation: r.Name,
				Status:    string(r.Status),
				Duration:  r.Duration,
			})
		}(i, p)
	}
	wg.Wait()

	summary := Summary{
		Overall:     aggregate(probes, results),
		TotalChecks: len(results),
		Checks:      results,
		Timestamp:   start,
		Duration:    time.Since(start),
	}
	for _, r := range results {
		switch r.Status {
		case StatusHealthy:
			summary.HealthyCount++
		case StatusDegraded:
			summary.DegradedCount++
		case StatusUnhealthy:
			summary.UnhealthyCount++
		default:
			summary.UnknownCount++
		}
	}

	m.mu.Lock()
	m.last = summary
	m.hasLast = true
	m.mu.Unlock()

	m.log.Info("health checks completed",
		"overall", summary.Overall,
		"total", summary.TotalChecks,
		"healthy", summary.HealthyCount,
		"degraded", summary.DegradedCount,
		"unhealthy", summary.UnhealthyCount,
		"unknown", summary.UnknownCount,
		"duration", summary.Duration)

	return summary
}

// LastSummary returns the most recent summary, if a run has occurred.
func (m *Manager) LastSummary() (Summary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.hasLast
}

// runProbe executes one probe under its own timeout. A probe that never
// returns is abandoned once the timeout fires; its goroutine sees the
// cancelled context.
func (m *Manager) runProbe(ctx context.Context, p Probe) Result {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	ch := make(chan Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- Result{
					Name:    p.Name(),
					Status:  StatusUnhealthy,
					Message: fmt.Sprintf("probe panic: %v", rec),
					Error:   fmt.Sprint(rec),
				}
			}
		}()

		r, err := p.Check(cctx)
		if err != nil {
			r = Result{
				Name:    p.Name(),
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("probe error: %v", err),
				Error:   err.Error(),
			}
		}
		ch <- r
	}()

	var r Result
	select {
	case r = <-ch:
	case <-cctx.Done():
		r = Result{
			Name:    p.Name(),
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("probe timed out after %s", p.Timeout()),
			Error:   "timeout",
		}
	}

	if r.Name == "" {
		r.Name = p.Name()
	}
	r.Timestamp = start
	r.Duration = time.Since(start)
	return r
}

// aggregate computes the overall status: critical unhealthy > any
// unhealthy > any degraded > all healthy > unknown.
func aggregate(probes []Probe, results []Result) Status {
	if len(results) == 0 {
		return StatusUnknown
	}

	for i, r := range results {
		if probes[i].Critical() && r.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	anyDegraded := false
	allHealthy := true
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusDegraded
		case StatusDegraded:
			anyDegraded = true
			allHealthy = false
		case StatusHealthy:
		default:
			allHealthy = false
		}
	}

	if anyDegraded {
		return StatusDegraded
	}
	if allHealthy {
		return StatusHealthy
	}
	return StatusUnknown
}

func statusGaugeValue(s Status) float64 {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	default:
		return 3
	}
}
