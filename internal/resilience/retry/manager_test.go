package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/resilience/breaker"
	"github.com/vietddude/courier/internal/resilience/deadletter"
)

func testManager(policy Policy, breakerCfg breaker.Config) (*Manager, *deadletter.Queue, *breaker.Registry) {
	reg := breaker.NewRegistry(breakerCfg, nil)
	dlq := deadletter.NewQueue(deadletter.Config{Capacity: 100}, nil)
	return NewManager(policy, reg, dlq, nil), dlq, reg
}

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
		Jitter:      JitterNone,
	}
}

func op(name string, idempotent bool, invoke func(ctx context.Context) (any, error)) domain.Operation {
	return domain.Operation{
		Name:       name,
		Kind:       domain.OpKindAct,
		Transport:  string(domain.ProtocolRPC),
		Idempotent: idempotent,
		Invoke:     invoke,
	}
}

func TestManager_SuccessFirstAttempt(t *testing.T) {
	m, _, reg := testManager(fastPolicy(3), breaker.Config{FailureThreshold: 5})

	calls := 0
	result, err := m.Execute(context.Background(), op("ping", true, func(ctx context.Context) (any, error) {
		calls++
		return "pong", nil
	}), "rpc-primary")

	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "pong" || calls != 1 {
		t.Errorf("got result=%v calls=%d", result, calls)
	}
	if reg.Get("rpc-primary").State() != breaker.StateClosed {
		t.Error("expected breaker closed after success")
	}
}

func TestManager_RetriesThenSucceeds(t *testing.T) {
	m, dlq, _ := testManager(fastPolicy(3), breaker.Config{FailureThreshold: 10})

	calls := 0
	result, err := m.Execute(context.Background(), op("flaky", true, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}), "rpc-primary")

	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Errorf("got result=%v calls=%d", result, calls)
	}
	if n, _ := dlq.Len(context.Background()); n != 0 {
		t.Errorf("expected no dead letters, got %d", n)
	}
}

func TestManager_ExhaustionDeadLetters(t *testing.T) {
	m, dlq, _ := testManager(fastPolicy(3), breaker.Config{FailureThreshold: 10})

	calls := 0
	_, err := m.Execute(context.Background(), op("doomed", true, func(ctx context.Context) (any, error) {
		calls++
		return nil, fmt.Errorf("failure %d", calls)
	}), "rpc-primary")

	if !errors.Is(err, domain.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}

	var ree *domain.RetryExhaustedError
	if !errors.As(err, &ree) {
		t.Fatal("expected RetryExhaustedError type")
	}
	if len(ree.Attempts) != 3 {
		t.Errorf("expected attempt history of length 3, got %d", len(ree.Attempts))
	}

	entries, _ := dlq.List(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected exactly one dead-letter entry, got %d", len(entries))
	}
	if len(entries[0].Attempts) != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", len(entries[0].Attempts))
	}
	if entries[0].FinalError != "failure 3" {
		t.Errorf("unexpected final error: %s", entries[0].FinalError)
	}
}

func TestManager_BreakerOpenFailsFast(t *testing.T) {
	m, dlq, reg := testManager(fastPolicy(3), breaker.Config{FailureThreshold: 1, OpenDuration: time.Minute})

	// Trip the breaker.
	reg.Get("rpc-primary").RecordFailure()

	calls := 0
	start := time.Now()
	_, err := m.Execute(context.Background(), op("blocked", true, func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("should not run")
	}), "rpc-primary")

	if !errors.Is(err, domain.ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no invocation through open breaker, got %d", calls)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("expected fast fail, no backoff delay")
	}
	if n, _ := dlq.Len(context.Background()); n != 0 {
		t.Errorf("short-circuited call must not dead-letter, got %d entries", n)
	}
}

func TestManager_CancellationDuringBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // long enough that cancellation must interrupt
		Multiplier:  1.0,
		MaxDelay:    time.Hour,
		Jitter:      JitterNone,
	}
	m, _, reg := testManager(policy, breaker.Config{FailureThreshold: 10})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := m.Execute(ctx, op("cancelled", true, func(ctx context.Context) (any, error) {
			return nil, errors.New("fail once")
		}), "rpc-primary")
		done <- err
	}()

	time.Sleep(50 * time.Millisecond) // let the first attempt fail and enter backoff
	before := reg.Get("rpc-primary").Snapshot().ConsecutiveFails
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation did not abort backoff suspension")
	}

	if after := reg.Get("rpc-primary").Snapshot().ConsecutiveFails; after != before {
		t.Errorf("breaker counter changed across cancellation: %d -> %d", before, after)
	}
}

func TestManager_NonIdempotentSingleAttempt(t *testing.T) {
	m, dlq, _ := testManager(fastPolicy(5), breaker.Config{FailureThreshold: 10})

	calls := 0
	_, err := m.Execute(context.Background(), op("transfer", false, func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("maybe partially applied")
	}), "rpc-primary")

	if calls != 1 {
		t.Fatalf("non-idempotent operation retried: %d calls", calls)
	}
	if !errors.Is(err, domain.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if n, _ := dlq.Len(context.Background()); n != 1 {
		t.Errorf("expected single dead-letter entry, got %d", n)
	}
}
