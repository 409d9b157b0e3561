package deadletter

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/courier/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// PostgresStore keeps entries in a dead_letters table.
type PostgresStore struct {
	db *sqlx.DB
}

type pgEntry struct {
	ID         string          `db:"id"`
	Operation  string          `db:"operation"`
	Kind       string          `db:"kind"`
	Transport  string          `db:"transport"`
	FinalError string          `db:"final_error"`
	Attempts   json.RawMessage `db:"attempts"`
	EnqueuedAt time.Time       `db:"enqueued_at"`
}

// NewPostgresStore connects, verifies the connection, and runs the
// dead_letters migration.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	attempts, err := json.Marshal(e.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dead_letters (id, operation, kind, transport, final_error, attempts, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Operation, e.Kind, e.Transport, e.FinalError, attempts, e.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	var rows []pgEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, operation, kind, transport, final_error, attempts, enqueued_at
		FROM dead_letters ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select dead letters: %w", err)
	}
	return fromPgEntries(rows)
}

func (s *PostgresStore) Drain(ctx context.Context) ([]Entry, error) {
	var rows []pgEntry
	err := s.db.SelectContext(ctx, &rows, `
		WITH removed AS (DELETE FROM dead_letters RETURNING *)
		SELECT id, operation, kind, transport, final_error, attempts, enqueued_at
		FROM removed ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("drain dead letters: %w", err)
	}
	return fromPgEntries(rows)
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM dead_letters`); err != nil {
		return 0, fmt.Errorf("count dead letters: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DropOldest(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM dead_letters
		WHERE seq IN (SELECT seq FROM dead_letters ORDER BY seq LIMIT $1)`, n)
	if err != nil {
		return fmt.Errorf("drop oldest: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE enqueued_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func fromPgEntries(rows []pgEntry) ([]Entry, error) {
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		var attempts []domain.Attempt
		if len(r.Attempts) > 0 {
			if err := json.Unmarshal(r.Attempts, &attempts); err != nil {
				return nil, fmt.Errorf("decode attempts: %w", err)
			}
		}
		entries = append(entries, Entry{
			ID:         r.ID,
			Operation:  r.Operation,
			Kind:       r.Kind,
			Transport:  r.Transport,
			FinalError: r.FinalError,
			Attempts:   attempts,
			EnqueuedAt: r.EnqueuedAt,
		})
	}
	return entries, nil
}
