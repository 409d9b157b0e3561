// Package breaker implements a per-transport circuit breaker.
//
// Each breaker is an independent three-state machine (closed, open,
// half-open) keyed by transport. State is guarded per key; there is no
// global lock across keys.
package breaker

import (
	"sync"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config holds breaker thresholds and durations.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker from closed to open.
	FailureThreshold int `yaml:"failure_threshold"`

	// OpenDuration is how long the breaker stays open before allowing
	// half-open trial calls.
	OpenDuration time.Duration `yaml:"open_duration"`

	// HalfOpenMax is the number of trial calls allowed while half-open.
	HalfOpenMax int `yaml:"half_open_max"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold: 5,
	OpenDuration:     30 * time.Second,
	HalfOpenMax:      1,
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = DefaultConfig.OpenDuration
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = DefaultConfig.HalfOpenMax
	}
	return c
}

// Snapshot is a point-in-time copy of breaker state for diagnostics.
type Snapshot struct {
	Key              string    `json:"key"`
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	LastTransition   time.Time `json:"last_transition"`
	OpenUntil        time.Time `json:"open_until,omitempty"`
}

// Breaker is a circuit breaker for a single transport key.
type Breaker struct {
	key          string
	cfg          Config
	onTransition func(key string, from, to State)

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenTrials   int
	lastTransition   time.Time
	openUntil        time.Time
	queued           []transition

	now func() time.Time
}

// transition is a queued state change awaiting callback delivery.
type transition struct {
	from, to State
}

// New creates a breaker for the given key.
func New(key string, cfg Config) *Breaker {
	return &Breaker{
		key:   key,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
		now:   time.Now,
	}
}

// Key returns the transport key this breaker guards.
func (b *Breaker) Key() string {
	return b.key
}

// Allow reports whether a call may proceed. When the breaker is open (or
// half-open with the trial budget spent) it returns a BreakerOpenError;
// short-circuited calls never touch the failure counter.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	now := b.now()
	b.advance(now)

	var err error
	switch b.state {
	case StateClosed:
	case StateHalfOpen:
		if b.halfOpenTrials < b.cfg.HalfOpenMax {
			b.halfOpenTrials++
		} else {
			err = &domain.BreakerOpenError{Key: b.key, State: b.state.String(), OpenUntil: b.openUntil}
		}
	default:
		err = &domain.BreakerOpenError{Key: b.key, State: b.state.String(), OpenUntil: b.openUntil}
	}

	notes := b.takeQueued()
	b.mu.Unlock()

	b.notify(notes)
	return err
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()

	now := b.now()
	b.advance(now)

	b.consecutiveFails = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed, now)
	}

	notes := b.takeQueued()
	b.mu.Unlock()

	b.notify(notes)
}

// RecordFailure reports a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()

	now := b.now()
	b.advance(now)

	switch b.state {
	case StateClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}

	notes := b.takeQueued()
	b.mu.Unlock()

	b.notify(notes)
}

// State returns the current state, advancing open to half-open when the
// open duration has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()

	b.advance(b.now())
	state := b.state

	notes := b.takeQueued()
	b.mu.Unlock()

	b.notify(notes)
	return state
}

// Snapshot returns a copy of the breaker's current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()

	b.advance(b.now())
	snap := Snapshot{
		Key:              b.key,
		State:            b.state.String(),
		ConsecutiveFails: b.consecutiveFails,
		LastTransition:   b.lastTransition,
	}
	if b.state == StateOpen {
		snap.OpenUntil = b.openUntil
	}

	notes := b.takeQueued()
	b.mu.Unlock()

	b.notify(notes)
	return snap
}

// advance moves open to half-open once the open duration has elapsed.
// Caller must hold the mutex.
func (b *Breaker) advance(now time.Time) {
	if b.state == StateOpen && !now.Before(b.openUntil) {
		b.setState(StateHalfOpen, now)
	}
}

// setState transitions the breaker and queues the change for callback
// delivery after the mutex is released. Caller must hold the mutex.
func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.lastTransition = now

	switch state {
	case StateClosed:
		b.consecutiveFails = 0
		b.halfOpenTrials = 0
		b.openUntil = time.Time{}
	case StateOpen:
		b.halfOpenTrials = 0
		b.openUntil = now.Add(b.cfg.OpenDuration)
	case StateHalfOpen:
		b.halfOpenTrials = 0
	}

	b.queued = append(b.queued, transition{from: prev, to: state})
}

// takeQueued drains pending transitions. Caller must hold the mutex.
func (b *Breaker) takeQueued() []transition {
	notes := b.queued
	b.queued = nil
	return notes
}

// notify fires the transition callback outside the critical section, so
// callbacks may call State or Snapshot without deadlocking.
func (b *Breaker) notify(notes []transition) {
	if b.onTransition == nil {
		return
	}
	for _, n := range notes {
		b.onTransition(b.key, n.from, n.to)
	}
}
