package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	ErrBreakerOpen       = errors.New("circuit breaker open")
	ErrRetryExhausted    = errors.New("retry attempts exhausted")
	ErrNoViableTransport = errors.New("no viable transport")
)

// TransportError wraps a single failed attempt against a transport.
// It is absorbed by the retry layer and only surfaces inside attempt history.
type TransportError struct {
	Transport string
	Op        string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Transport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BreakerOpenError is returned when a call is short-circuited.
// It carries enough state to diagnose without re-querying the breaker.
type BreakerOpenError struct {
	Key       string
	State     string
	OpenUntil time.Time
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s (state=%s, until=%s)",
		e.Key, e.State, e.OpenUntil.Format(time.RFC3339))
}

func (e *BreakerOpenError) Unwrap() error { return ErrBreakerOpen }

// RetryExhaustedError is returned after all attempts failed and the
// operation has been moved to the dead-letter queue.
type RetryExhaustedError struct {
	Op       string
	Key      string
	Attempts []Attempt
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation %s failed after %d attempts: %v", e.Op, len(e.Attempts), e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return ErrRetryExhausted }

// NoViableTransportError is returned when selection filtered out every
// candidate. Reasons maps candidate name to why it was rejected.
type NoViableTransportError struct {
	Kind       OperationKind
	Candidates []string
	Reasons    map[string]string
}

func (e *NoViableTransportError) Error() string {
	return fmt.Sprintf("no viable transport for %s among %v", e.Kind, e.Candidates)
}

func (e *NoViableTransportError) Unwrap() error { return ErrNoViableTransport }
