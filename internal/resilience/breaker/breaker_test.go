package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New("test", cfg)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_TripsOnceAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, OpenDuration: time.Minute})

	transitions := 0
	b.onTransition = func(key string, from, to State) {
		if to == StateOpen {
			transitions++
		}
	}

	for i := 0; i < 3; i++ {
		if b.State() != StateClosed {
			t.Fatalf("expected closed before threshold, got %v", b.State())
		}
		b.RecordFailure()
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open after %d failures, got %v", 3, b.State())
	}
	if transitions != 1 {
		t.Errorf("expected exactly one transition to open, got %d", transitions)
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, OpenDuration: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Errorf("expected closed after counter reset, got %v", b.State())
	}
}

func TestBreaker_OpenShortCircuits(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 1, OpenDuration: time.Minute})
	b.RecordFailure()

	*now = now.Add(30 * time.Second)

	for i := 0; i < 5; i++ {
		err := b.Allow()
		if err == nil {
			t.Fatal("expected short-circuit while open")
		}
		if !errors.Is(err, domain.ErrBreakerOpen) {
			t.Fatalf("expected ErrBreakerOpen, got %v", err)
		}
		var boe *domain.BreakerOpenError
		if !errors.As(err, &boe) {
			t.Fatal("expected BreakerOpenError type")
		}
	}

	if got := b.Snapshot().ConsecutiveFails; got != 1 {
		t.Errorf("failure counter changed while open: %d", got)
	}
}

func TestBreaker_HalfOpenAfterOpenDuration(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 1, OpenDuration: time.Minute, HalfOpenMax: 1})
	b.RecordFailure()

	*now = now.Add(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial call permitted after open duration, got %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}

	// Trial budget of 1 is spent; further calls short-circuit.
	if err := b.Allow(); err == nil {
		t.Fatal("expected short-circuit beyond half-open budget")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Errorf("expected closed after trial success, got %v", b.State())
	}
	if got := b.Snapshot().ConsecutiveFails; got != 0 {
		t.Errorf("expected counter reset after close, got %d", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Config{FailureThreshold: 1, OpenDuration: time.Minute, HalfOpenMax: 1})
	b.RecordFailure()

	*now = now.Add(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected trial call, got %v", err)
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("expected open after trial failure, got %v", b.State())
	}

	// Open duration timer restarted: still open just before it elapses.
	*now = now.Add(time.Minute - time.Second)
	if err := b.Allow(); err == nil {
		t.Error("expected short-circuit before restarted timer elapses")
	}
}

func TestBreaker_CallbackMayReenter(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1, OpenDuration: time.Minute})

	// The transition callback reads breaker state itself; delivery must
	// happen outside the critical section or this deadlocks.
	var observed State
	b.onTransition = func(key string, from, to State) {
		observed = b.State()
		_ = b.Snapshot()
	}

	done := make(chan struct{})
	go func() {
		b.RecordFailure()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("transition callback deadlocked against breaker mutex")
	}

	if observed != StateOpen {
		t.Errorf("expected callback to observe open state, got %v", observed)
	}
}

func TestRegistry_PerKeyIsolation(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, OpenDuration: time.Minute}, nil)

	r.Get("rpc").RecordFailure()

	if r.Get("rpc").State() != StateOpen {
		t.Error("expected rpc breaker open")
	}
	if r.Get("bus").State() != StateClosed {
		t.Error("expected bus breaker unaffected")
	}
	if r.Get("rpc") != r.Get("rpc") {
		t.Error("expected same breaker instance per key")
	}
}
