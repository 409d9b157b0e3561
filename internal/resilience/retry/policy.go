// Package retry executes operations with bounded retries, exponential
// backoff, circuit breaking, and dead-lettering of exhausted operations.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// JitterMode controls how jitter is applied to computed delays.
type JitterMode string

const (
	JitterNone JitterMode = "none"
	JitterFull JitterMode = "full" // uniform random in [0, delay]
)

// Policy defines retry behavior. It is immutable configuration; Delay is
// pure given a fixed random source.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      JitterMode    `yaml:"jitter"`
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Multiplier:  2.0,
	MaxDelay:    30 * time.Second,
	Jitter:      JitterFull,
}

// WithDefaults fills in zero values from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultPolicy.BaseDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultPolicy.Multiplier
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultPolicy.MaxDelay
	}
	if p.Jitter == "" {
		p.Jitter = DefaultPolicy.Jitter
	}
	return p
}

// Delay computes the backoff delay for a 1-based attempt index using rng
// for jitter. Attempt indices beyond MaxAttempts signal exhaustion and
// must not reach Delay.
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	d := time.Duration(delay)
	if p.Jitter == JitterFull && rng != nil && d > 0 {
		d = time.Duration(rng.Int63n(int64(d) + 1))
	}
	if d < 0 {
		d = 0
	}
	return d
}
