// Package deadletter preserves operations whose retries are exhausted.
//
// The queue is insertion-ordered and bounded; overflow behavior is explicit
// (drop-oldest or reject-new). Storage is pluggable: in-memory by default,
// optionally backed by Redis or Postgres.
package deadletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
	"github.com/vietddude/courier/internal/metrics"
)

// ErrQueueFull is returned by Enqueue under the reject-new overflow policy.
var ErrQueueFull = errors.New("dead-letter queue full")

// OverflowPolicy determines what happens when the queue is at capacity.
type OverflowPolicy string

const (
	DropOldest OverflowPolicy = "drop_oldest"
	RejectNew  OverflowPolicy = "reject_new"
)

// Entry is one dead-lettered operation. Immutable once written.
type Entry struct {
	ID         string           `json:"id"`
	Operation  string           `json:"operation"`
	Kind       string           `json:"kind"`
	Transport  string           `json:"transport"`
	FinalError string           `json:"final_error"`
	Attempts   []domain.Attempt `json:"attempts"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// Store is the persistence backend for dead-letter entries. All methods
// must preserve insertion order and be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Drain(ctx context.Context) ([]Entry, error)
	Len(ctx context.Context) (int, error)
	DropOldest(ctx context.Context, n int) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Config holds queue capacity and retention settings.
type Config struct {
	Capacity  int            `yaml:"capacity"`
	Overflow  OverflowPolicy `yaml:"overflow"`
	Retention time.Duration  `yaml:"retention"` // 0 = keep forever
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Capacity: 1000,
	Overflow: DropOldest,
}

// Queue is the dead-letter sink. It applies capacity, overflow, and
// retention policy on top of a Store.
type Queue struct {
	cfg   Config
	store Store
	now   func() time.Time
}

// NewQueue creates a queue over the given store. A nil store gets an
// in-memory backend.
func NewQueue(cfg Config, store Store) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig.Capacity
	}
	if cfg.Overflow == "" {
		cfg.Overflow = DefaultConfig.Overflow
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Queue{cfg: cfg, store: store, now: time.Now}
}

// Enqueue appends an entry, applying retention and overflow policy. It
// never blocks beyond the store's own operations.
func (q *Queue) Enqueue(ctx context.Context, e Entry) error {
	if err := q.purgeExpired(ctx); err != nil {
		return err
	}

	n, err := q.store.Len(ctx)
	if err != nil {
		return fmt.Errorf("dead-letter len: %w", err)
	}

	if n >= q.cfg.Capacity {
		switch q.cfg.Overflow {
		case RejectNew:
			return ErrQueueFull
		default:
			if err := q.store.DropOldest(ctx, n-q.cfg.Capacity+1); err != nil {
				return fmt.Errorf("dead-letter drop oldest: %w", err)
			}
		}
	}

	if err := q.store.Append(ctx, e); err != nil {
		return fmt.Errorf("dead-letter append: %w", err)
	}

	q.updateSizeGauge(ctx)
	return nil
}

// List returns entries in insertion order without removing them.
func (q *Queue) List(ctx context.Context) ([]Entry, error) {
	if err := q.purgeExpired(ctx); err != nil {
		return nil, err
	}
	return q.store.List(ctx)
}

// Drain removes and returns all entries in insertion order.
func (q *Queue) Drain(ctx context.Context) ([]Entry, error) {
	if err := q.purgeExpired(ctx); err != nil {
		return nil, err
	}
	entries, err := q.store.Drain(ctx)
	if err != nil {
		return nil, err
	}
	metrics.DeadLetterSize.Set(0)
	return entries, nil
}

// Len returns the current number of entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	if err := q.purgeExpired(ctx); err != nil {
		return 0, err
	}
	return q.store.Len(ctx)
}

// Close releases the underlying store.
func (q *Queue) Close() error {
	return q.store.Close()
}

func (q *Queue) purgeExpired(ctx context.Context) error {
	if q.cfg.Retention <= 0 {
		return nil
	}
	cutoff := q.now().Add(-q.cfg.Retention)
	if _, err := q.store.DeleteBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("dead-letter purge: %w", err)
	}
	return nil
}

func (q *Queue) updateSizeGauge(ctx context.Context) {
	if n, err := q.store.Len(ctx); err == nil {
		metrics.DeadLetterSize.Set(float64(n))
	}
}
