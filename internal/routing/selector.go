// Package routing chooses a transport for an operation using declared
// preference order, circuit breaker state, and the latest health summary.
package routing

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/events"
	"github.com/vietddude/courier/internal/health"
	"github.com/vietddude/courier/internal/metrics"
	"github.com/vietddude/courier/internal/resilience/breaker"
	"github.com/vietddude/courier/internal/transport"
)

// HealthSource supplies the latest aggregate health summary. Satisfied by
// *health.Manager.
type HealthSource interface {
	LastSummary() (health.Summary, bool)
}

// Selector picks a transport per operation kind. Selection is
// deterministic: filtered candidates are ordered by the static preference
// list for the kind, then by registration order.
type Selector struct {
	mu          sync.RWMutex
	transports  map[string]transport.Transport
	order       []string // registration order
	preferences map[domain.OperationKind][]string

	breakers *breaker.Registry
	healthy  HealthSource
	sink     events.Sink
	log      *slog.Logger
}

// NewSelector creates a selector. preferences maps operation kind to an
// ordered transport name list; unlisted transports rank after listed ones.
func NewSelector(
	breakers *breaker.Registry,
	healthy HealthSource,
	preferences map[domain.OperationKind][]string,
	sink events.Sink,
	log *slog.Logger,
) *Selector {
	if sink == nil {
		sink = events.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		transports:  make(map[string]transport.Transport),
		preferences: preferences,
		breakers:    breakers,
		healthy:     healthy,
		sink:        sink,
		log:         log,
	}
}

// AddTransport registers a transport under its name.
func (s *Selector) AddTransport(t transport.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transports[t.Name()]; !ok {
		s.order = append(s.order, t.Name())
	}
	s.transports[t.Name()] = t
}

// Transport returns a registered transport by name.
func (s *Selector) Transport(name string) (transport.Transport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transports[name]
	return t, ok
}

// Transports returns all registered transport names in registration order.
func (s *Selector) Transports() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Select chooses a transport for the operation kind among candidates.
// Candidates whose breaker is open or whose latest health result is
// unhealthy are filtered out; the survivors are ranked by the kind's
// preference list. An empty candidate list means all registered
// transports.
func (s *Selector) Select(kind domain.OperationKind, candidates []string) (transport.Transport, error) {
	if len(candidates) == 0 {
		candidates = s.Transports()
	}

	summary, hasSummary := s.healthy.LastSummary()
	reasons := make(map[string]string)
	var viable []string

	for _, name := range candidates {
		if _, ok := s.Transport(name); !ok {
			reasons[name] = "unknown transport"
			continue
		}

		if state := s.breakers.Get(name).State(); state == breaker.StateOpen {
			reasons[name] = "breaker open"
			continue
		}

		if hasSummary {
			if r, ok := summary.ResultFor(name); ok && r.Status == health.StatusUnhealthy {
				reasons[name] = "unhealthy"
				continue
			}
		}

		viable = append(viable, name)
	}

	if len(viable) == 0 {
		s.log.Warn("no viable transport", "kind", kind, "candidates", candidates, "reasons", reasons)
		return nil, &domain.NoViableTransportError{
			Kind:       kind,
			Candidates: candidates,
			Reasons:    reasons,
		}
	}

	s.rank(kind, viable)
	chosen := viable[0]

	metrics.SelectionsTotal.WithLabelValues(string(kind), chosen).Inc()
	s.sink.Emit(events.Event{
		Kind:      events.KindSelection,
		Operation: string(kind),
		To:        chosen,
	})

	t, _ := s.Transport(chosen)
	return t, nil
}

// rank sorts names in place by the preference list for kind; names not in
// the list keep their relative order after listed ones.
func (s *Selector) rank(kind domain.OperationKind, names []string) {
	prefs := s.preferences[kind]
	rank := make(map[string]int, len(prefs))
	for i, name := range prefs {
		rank[name] = i
	}

	sort.SliceStable(names, func(i, j int) bool {
		ri, iOK := rank[names[i]]
		rj, jOK := rank[names[j]]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		default:
			return false
		}
	})
}
