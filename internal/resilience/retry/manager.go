package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/events"
	"github.com/vietddude/courier/internal/metrics"
	"github.com/vietddude/courier/internal/resilience/breaker"
	"github.com/vietddude/courier/internal/resilience/deadletter"
)

// Manager executes operations with retries, backoff, circuit breaking,
// and dead-lettering.
type Manager struct {
	policy   Policy
	breakers *breaker.Registry
	dlq      *deadletter.Queue
	sink     events.Sink

	mu  sync.Mutex
	rng *rand.Rand
}

// NewManager creates a retry manager. A nil sink discards events.
func NewManager(policy Policy, breakers *breaker.Registry, dlq *deadletter.Queue, sink events.Sink) *Manager {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Manager{
		policy:   policy.WithDefaults(),
		breakers: breakers,
		dlq:      dlq,
		sink:     sink,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs op against the transport identified by key.
//
// The breaker for key is consulted before every attempt; an open breaker
// fails fast with a BreakerOpenError and counts no attempt. Failed
// attempts are recorded against the breaker and retried with backoff
// until the policy is exhausted, at which point the operation is
// dead-lettered and a RetryExhaustedError is returned.
//
// Operations not flagged Idempotent get a single attempt: retrying a call
// that may have partially succeeded is the caller's explicit opt-in.
func (m *Manager) Execute(ctx context.Context, op domain.Operation, key string) (any, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	maxAttempts := m.policy.MaxAttempts
	if !op.Idempotent {
		maxAttempts = 1
	}

	b := m.breakers.Get(key)
	var history []domain.Attempt

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := b.Allow(); err != nil {
			return nil, err
		}

		m.sink.Emit(events.Event{
			Kind:      events.KindAttemptStarted,
			Operation: op.Name,
			Transport: key,
			Attempt:   attempt,
		})

		start := time.Now()
		result, err := op.Invoke(ctx)
		elapsed := time.Since(start)
		metrics.AttemptLatency.WithLabelValues(key, string(op.Kind)).Observe(elapsed.Seconds())

		if err == nil {
			b.RecordSuccess()
			metrics.AttemptsTotal.WithLabelValues(key, string(op.Kind), "success").Inc()
			m.sink.Emit(events.Event{
				Kind:      events.KindAttemptSucceeded,
				Operation: op.Name,
				Transport: key,
				Attempt:   attempt,
				Duration:  elapsed,
			})
			return result, nil
		}

		// Cancellation is not a transport failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		history = append(history, domain.Attempt{
			Number:    attempt,
			Timestamp: start,
			Error:     err.Error(),
		})
		b.RecordFailure()
		metrics.AttemptsTotal.WithLabelValues(key, string(op.Kind), "failure").Inc()
		m.sink.Emit(events.Event{
			Kind:      events.KindAttemptFailed,
			Operation: op.Name,
			Transport: key,
			Attempt:   attempt,
			Duration:  elapsed,
			Err:       err,
		})

		if attempt == maxAttempts {
			return nil, m.exhaust(ctx, op, key, history, err)
		}

		delay := m.delay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	// Unreachable: the loop always returns.
	return nil, domain.ErrRetryExhausted
}

func (m *Manager) delay(attempt int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy.Delay(attempt, m.rng)
}

func (m *Manager) exhaust(ctx context.Context, op domain.Operation, key string, history []domain.Attempt, lastErr error) error {
	entry := deadletter.Entry{
		ID:         op.ID,
		Operation:  op.Name,
		Kind:       string(op.Kind),
		Transport:  key,
		FinalError: lastErr.Error(),
		Attempts:   history,
		EnqueuedAt: time.Now(),
	}

	if err := m.dlq.Enqueue(ctx, entry); err != nil {
		m.sink.Emit(events.Event{
			Kind:      events.KindDeadLetter,
			Operation: op.Name,
			Transport: key,
			Err:       err,
		})
	} else {
		m.sink.Emit(events.Event{
			Kind:      events.KindDeadLetter,
			Operation: op.Name,
			Transport: key,
		})
	}

	return &domain.RetryExhaustedError{
		Op:       op.Name,
		Key:      key,
		Attempts: history,
		LastErr:  lastErr,
	}
}
