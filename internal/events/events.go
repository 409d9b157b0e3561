// Package events defines the structured event stream the resilience layer
// emits. Log and trace collaborators consume these events through the Sink
// interface; the field set is a stable contract.
package events

import (
	"log/slog"
	"time"
)

// Kind identifies an event type.
type Kind string

const (
	KindAttemptStarted    Kind = "attempt_started"
	KindAttemptSucceeded  Kind = "attempt_succeeded"
	KindAttemptFailed     Kind = "attempt_failed"
	KindBreakerTransition Kind = "breaker_transition"
	KindProbeResult       Kind = "probe_result"
	KindSelection         Kind = "selection"
	KindDeadLetter        Kind = "dead_letter"
)

// Event is one structured observation from the resilience core.
type Event struct {
	Kind      Kind
	Operation string
	Transport string
	Attempt   int
	From      string // breaker transitions: previous state
	To        string // breaker transitions: new state; selections: chosen transport
	Status    string // probe results: reported status
	Duration  time.Duration
	Err       error
}

// Sink receives events. Implementations must be safe for concurrent use
// and must not block.
type Sink interface {
	Emit(ev Event)
}

// SlogSink writes events to a slog logger.
type SlogSink struct {
	Log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = slog.Default()
	}
	return &SlogSink{Log: log}
}

func (s *SlogSink) Emit(ev Event) {
	attrs := []any{"kind", string(ev.Kind)}
	if ev.Operation != "" {
		attrs = append(attrs, "operation", ev.Operation)
	}
	if ev.Transport != "" {
		attrs = append(attrs, "transport", ev.Transport)
	}
	if ev.Attempt > 0 {
		attrs = append(attrs, "attempt", ev.Attempt)
	}
	if ev.From != "" || ev.To != "" {
		attrs = append(attrs, "from", ev.From, "to", ev.To)
	}
	if ev.Status != "" {
		attrs = append(attrs, "status", ev.Status)
	}
	if ev.Duration > 0 {
		attrs = append(attrs, "duration", ev.Duration)
	}

	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
		s.Log.Warn("resilience event", attrs...)
		return
	}
	s.Log.Debug("resilience event", attrs...)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}
