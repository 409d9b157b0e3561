package breaker

import (
	"sync"

	"github.com/vietddude/courier/internal/events"
	"github.com/vietddude/courier/internal/metrics"
)

// Registry hands out one breaker per transport key. Breakers are created
// lazily on first use and share a single configuration.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	breakers map[string]*Breaker
	sink     events.Sink
}

// NewRegistry creates a registry with the given shared breaker config.
func NewRegistry(cfg Config, sink events.Sink) *Registry {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
		sink:     sink,
	}
}

// Get returns the breaker for key, creating it if needed.
func (r *Registry) Get(key string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[key]; ok {
		return b
	}

	b = New(key, r.cfg)
	b.onTransition = func(key string, from, to State) {
		metrics.BreakerTransitionsTotal.WithLabelValues(key, to.String()).Inc()
		metrics.BreakerState.WithLabelValues(key).Set(stateGaugeValue(to))
		r.sink.Emit(events.Event{
			Kind:      events.KindBreakerTransition,
			Transport: key,
			From:      from.String(),
			To:        to.String(),
		})
	}
	r.breakers[key] = b
	return b
}

// Snapshots returns the current state of every known breaker.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		snaps = append(snaps, b.Snapshot())
	}
	return snaps
}

func stateGaugeValue(s State) float64 {
	switch s {
	case StateClosed:
		return 0
	case StateHalfOpen:
		return 1
	default:
		return 2
	}
}
