package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// =============================================================================
// Stub probes
// =============================================================================

type stubProbe struct {
	Base
	status Status
	err    error
	hang   bool
	panics bool
}

func newStubProbe(name string, critical bool, status Status) *stubProbe {
	return &stubProbe{
		Base:   NewBase(ProbeOpts{Name: name, Critical: critical, Timeout: 100 * time.Millisecond}, name),
		status: status,
	}
}

func (p *stubProbe) Check(ctx context.Context) (Result, error) {
	if p.panics {
		panic("probe exploded")
	}
	if p.hang {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}
	if p.err != nil {
		return Result{}, p.err
	}
	return Result{Name: p.Name(), Status: p.status, Message: "stub"}, nil
}

// =============================================================================
// Tests
// =============================================================================

func TestManager_AllHealthy(t *testing.T) {
	m := NewManager(nil, nil)
	m.RegisterAll([]Probe{
		newStubProbe("a", true, StatusHealthy),
		newStubProbe("b", false, StatusHealthy),
	})

	s := m.RunAll(context.Background())
	if s.Overall != StatusHealthy {
		t.Errorf("expected healthy, got %s", s.Overall)
	}
	if s.TotalChecks != 2 || s.HealthyCount != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
}

func TestManager_CriticalUnhealthyWins(t *testing.T) {
	m := NewManager(nil, nil)
	m.RegisterAll([]Probe{
		newStubProbe("critical", true, StatusUnhealthy),
		newStubProbe("a", false, StatusHealthy),
		newStubProbe("b", false, StatusHealthy),
	})

	if s := m.RunAll(context.Background()); s.Overall != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", s.Overall)
	}
}

func TestManager_NonCriticalUnhealthyDegrades(t *testing.T) {
	m := NewManager(nil, nil)
	m.RegisterAll([]Probe{
		newStubProbe("critical", true, StatusHealthy),
		newStubProbe("flaky", false, StatusUnhealthy),
	})

	if s := m.RunAll(context.Background()); s.Overall != StatusDegraded {
		t.Errorf("expected degraded, got %s", s.Overall)
	}
}

func TestManager_DegradedProbeDegrades(t *testing.T) {
	m := NewManager(nil, nil)
	m.RegisterAll([]Probe{
		newStubProbe("a", true, StatusHealthy),
		newStubProbe("slow", false, StatusDegraded),
	})

	if s := m.RunAll(context.Background()); s.Overall != StatusDegraded {
		t.Errorf("expected degraded, got %s", s.Overall)
	}
}

func TestManager_UnknownFallback(t *testing.T) {
	m := NewManager(nil, nil)
	m.Register(newStubProbe("mystery", false, StatusUnknown))

	if s := m.RunAll(context.Background()); s.Overall != StatusUnknown {
		t.Errorf("expected unknown, got %s", s.Overall)
	}
}

func TestManager_ProbeErrorBecomesResult(t *testing.T) {
	p := newStubProbe("broken", false, StatusHealthy)
	p.err = errors.New("connection refused")

	m := NewManager(nil, nil)
	m.Register(p)

	s := m.RunAll(context.Background())
	if len(s.Checks) != 1 {
		t.Fatalf("expected one result per probe, got %d", len(s.Checks))
	}
	r := s.Checks[0]
	if r.Status != StatusUnhealthy || r.Error != "connection refused" {
		t.Errorf("expected unhealthy with error, got %+v", r)
	}
}

func TestManager_ProbePanicBecomesResult(t *testing.T) {
	p := newStubProbe("panicky", false, StatusHealthy)
	p.panics = true

	m := NewManager(nil, nil)
	m.Register(p)

	s := m.RunAll(context.Background())
	if s.Checks[0].Status != StatusUnhealthy {
		t.Errorf("expected unhealthy from panic, got %s", s.Checks[0].Status)
	}
}

func TestManager_HungProbeTimesOut(t *testing.T) {
	hung := newStubProbe("hung", false, StatusHealthy)
	hung.hang = true

	m := NewManager(nil, nil)
	m.RegisterAll([]Probe{
		hung,
		newStubProbe("fast", false, StatusHealthy),
	})

	start := time.Now()
	s := m.RunAll(context.Background())
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("RunAll blocked past probe timeouts: %v", elapsed)
	}
	if len(s.Checks) != 2 {
		t.Fatalf("expected one result per probe, got %d", len(s.Checks))
	}

	r, ok := s.ResultFor("hung")
	if !ok {
		t.Fatal("missing result for hung probe")
	}
	if r.Status != StatusUnhealthy || r.Error != "timeout" {
		t.Errorf("expected unhealthy timeout result, got %+v", r)
	}
}

func TestManager_LastSummary(t *testing.T) {
	m := NewManager(nil, nil)
	if _, ok := m.LastSummary(); ok {
		t.Fatal("expected no summary before first run")
	}

	m.Register(newStubProbe("a", false, StatusHealthy))
	first := m.RunAll(context.Background())

	got, ok := m.LastSummary()
	if !ok {
		t.Fatal("expected summary after run")
	}
	if got.Timestamp != first.Timestamp {
		t.Error("last summary does not match most recent run")
	}
}
