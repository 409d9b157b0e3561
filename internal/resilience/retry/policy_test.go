package retry

import (
	"math/rand"
	"testing"
	"time"
)

func TestPolicy_DelayBounds(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    2 * time.Second,
		Jitter:      JitterNone,
	}

	var prev time.Duration
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Delay(attempt, nil)
		if d < 0 {
			t.Fatalf("attempt %d: negative delay %v", attempt, d)
		}
		if d > p.MaxDelay {
			t.Fatalf("attempt %d: delay %v exceeds max %v", attempt, d, p.MaxDelay)
		}
		if d < prev {
			t.Fatalf("attempt %d: delay %v decreased from %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestPolicy_ExponentialGrowth(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    time.Minute,
		Jitter:      JitterNone,
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, w := range want {
		if got := p.Delay(i+1, nil); got != w {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestPolicy_FullJitterWithinRange(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    time.Minute,
		Jitter:      JitterFull,
	}

	rng := rand.New(rand.NewSource(42))
	for attempt := 1; attempt <= 5; attempt++ {
		ceiling := p.Delay(attempt, nil) // jitter skipped without rng
		for i := 0; i < 100; i++ {
			d := p.Delay(attempt, rng)
			if d < 0 || d > ceiling {
				t.Fatalf("attempt %d: jittered delay %v outside [0, %v]", attempt, d, ceiling)
			}
		}
	}
}

func TestPolicy_DeterministicWithFixedSeed(t *testing.T) {
	p := DefaultPolicy

	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for attempt := 1; attempt <= 5; attempt++ {
		if d1, d2 := p.Delay(attempt, a), p.Delay(attempt, b); d1 != d2 {
			t.Fatalf("attempt %d: %v != %v with same seed", attempt, d1, d2)
		}
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{}.WithDefaults()
	if p.MaxAttempts < 1 {
		t.Errorf("expected max attempts >= 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 || p.MaxDelay <= 0 || p.Multiplier <= 0 {
		t.Error("expected positive defaults")
	}
}
