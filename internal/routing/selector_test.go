package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/health"
	"github.com/vietddude/courier/internal/resilience/breaker"
)

// =============================================================================
// Stubs
// =============================================================================

type stubTransport struct {
	name string
	kind domain.ProtocolKind
}

func (s *stubTransport) Name() string              { return s.name }
func (s *stubTransport) Kind() domain.ProtocolKind { return s.kind }
func (s *stubTransport) Call(ctx context.Context, method string, payload any) (any, error) {
	return nil, nil
}
func (s *stubTransport) Close() error { return nil }

type stubHealth struct {
	summary health.Summary
	has     bool
}

func (s *stubHealth) LastSummary() (health.Summary, bool) { return s.summary, s.has }

func summaryWith(results ...health.Result) *stubHealth {
	return &stubHealth{
		summary: health.Summary{Checks: results, Timestamp: time.Now()},
		has:     true,
	}
}

func newSelector(h *stubHealth, prefs map[domain.OperationKind][]string, names ...string) (*Selector, *breaker.Registry) {
	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, OpenDuration: time.Minute}, nil)
	s := NewSelector(reg, h, prefs, nil, nil)
	for _, n := range names {
		s.AddTransport(&stubTransport{name: n, kind: domain.ProtocolRPC})
	}
	return s, reg
}

// =============================================================================
// Tests
// =============================================================================

func TestSelector_PrefersDeclaredOrder(t *testing.T) {
	prefs := map[domain.OperationKind][]string{
		domain.OpKindAct: {"stream-1", "rpc-1", "bus-1"},
	}
	s, _ := newSelector(&stubHealth{}, prefs, "rpc-1", "stream-1", "bus-1")

	for i := 0; i < 5; i++ {
		chosen, err := s.Select(domain.OpKindAct, nil)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if chosen.Name() != "stream-1" {
			t.Fatalf("expected deterministic preference stream-1, got %s", chosen.Name())
		}
	}
}

func TestSelector_SkipsOpenBreaker(t *testing.T) {
	prefs := map[domain.OperationKind][]string{
		domain.OpKindAct: {"rpc-1", "rpc-2"},
	}
	s, reg := newSelector(&stubHealth{}, prefs, "rpc-1", "rpc-2")

	reg.Get("rpc-1").RecordFailure() // threshold 1: trips open

	chosen, err := s.Select(domain.OpKindAct, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if chosen.Name() != "rpc-2" {
		t.Errorf("expected fallback to rpc-2, got %s", chosen.Name())
	}
}

func TestSelector_SkipsUnhealthy(t *testing.T) {
	h := summaryWith(
		health.Result{Name: "rpc-1", Status: health.StatusUnhealthy},
		health.Result{Name: "rpc-2", Status: health.StatusDegraded},
	)
	s, _ := newSelector(h, nil, "rpc-1", "rpc-2")

	chosen, err := s.Select(domain.OpKindAct, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if chosen.Name() != "rpc-2" {
		t.Errorf("degraded transport should be selectable, got %s", chosen.Name())
	}
}

func TestSelector_NoViableTransport(t *testing.T) {
	h := summaryWith(health.Result{Name: "rpc-1", Status: health.StatusUnhealthy})
	s, reg := newSelector(h, nil, "rpc-1", "rpc-2")
	reg.Get("rpc-2").RecordFailure()

	_, err := s.Select(domain.OpKindAct, nil)
	if !errors.Is(err, domain.ErrNoViableTransport) {
		t.Fatalf("expected ErrNoViableTransport, got %v", err)
	}

	var nve *domain.NoViableTransportError
	if !errors.As(err, &nve) {
		t.Fatal("expected NoViableTransportError type")
	}
	if nve.Reasons["rpc-1"] != "unhealthy" || nve.Reasons["rpc-2"] != "breaker open" {
		t.Errorf("unexpected reasons: %v", nve.Reasons)
	}
}

func TestSelector_UnhealthyOnlyCandidateStillRejected(t *testing.T) {
	h := summaryWith(health.Result{Name: "rpc-1", Status: health.StatusUnhealthy})
	s, _ := newSelector(h, nil, "rpc-1")

	if _, err := s.Select(domain.OpKindAct, []string{"rpc-1"}); !errors.Is(err, domain.ErrNoViableTransport) {
		t.Fatalf("sole unhealthy candidate must be rejected, got %v", err)
	}
}

func TestSelector_ExplicitCandidateSubset(t *testing.T) {
	prefs := map[domain.OperationKind][]string{
		domain.OpKindToolCall: {"tool-1"},
	}
	s, _ := newSelector(&stubHealth{}, prefs, "rpc-1", "tool-1")

	chosen, err := s.Select(domain.OpKindToolCall, []string{"tool-1"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if chosen.Name() != "tool-1" {
		t.Errorf("expected tool-1, got %s", chosen.Name())
	}
}

func TestSelector_UnknownCandidate(t *testing.T) {
	s, _ := newSelector(&stubHealth{}, nil, "rpc-1")

	_, err := s.Select(domain.OpKindAct, []string{"ghost"})
	var nve *domain.NoViableTransportError
	if !errors.As(err, &nve) {
		t.Fatalf("expected NoViableTransportError, got %v", err)
	}
	if nve.Reasons["ghost"] != "unknown transport" {
		t.Errorf("unexpected reasons: %v", nve.Reasons)
	}
}
