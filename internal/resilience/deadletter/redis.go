package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "courier:dead_letters"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisStore keeps entries in a Redis list, one JSON document per entry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.rdb.RPush(ctx, redisKey, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	raw, err := s.rdb.LRange(ctx, redisKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return decodeEntries(raw)
}

func (s *RedisStore) Drain(ctx context.Context) ([]Entry, error) {
	pipe := s.rdb.TxPipeline()
	rangeCmd := pipe.LRange(ctx, redisKey, 0, -1)
	pipe.Del(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("drain failed: %w", err)
	}
	return decodeEntries(rangeCmd.Val())
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.rdb.LLen(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) DropOldest(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := s.rdb.LTrim(ctx, redisKey, int64(n), -1).Err(); err != nil {
		return fmt.Errorf("ltrim failed: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	// Entries are insertion-ordered; pop from the head while expired.
	removed := 0
	for {
		raw, err := s.rdb.LIndex(ctx, redisKey, 0).Result()
		if err == redis.Nil {
			return removed, nil
		}
		if err != nil {
			return removed, fmt.Errorf("lindex failed: %w", err)
		}

		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return removed, fmt.Errorf("decode entry: %w", err)
		}
		if !e.EnqueuedAt.Before(cutoff) {
			return removed, nil
		}

		if err := s.rdb.LPop(ctx, redisKey).Err(); err != nil {
			return removed, fmt.Errorf("lpop failed: %w", err)
		}
		removed++
	}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func decodeEntries(raw []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
