package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/courier/internal/core/domain"
)

// BusTransport implements message-bus operations over Redis pub/sub.
// Publishes are fire-and-forget; the call result is the receiver count.
type BusTransport struct {
	name          string
	rdb           *redis.Client
	channelPrefix string
}

// NewBusTransport creates a bus transport over an existing Redis client.
func NewBusTransport(name string, rdb *redis.Client, channelPrefix string) *BusTransport {
	if channelPrefix == "" {
		channelPrefix = "courier"
	}
	return &BusTransport{
		name:          name,
		rdb:           rdb,
		channelPrefix: channelPrefix,
	}
}

// NewBusTransportFromURL connects to Redis and verifies the connection.
func NewBusTransportFromURL(ctx context.Context, name, url, channelPrefix string) (*BusTransport, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewBusTransport(name, rdb, channelPrefix), nil
}

func (t *BusTransport) Name() string              { return t.name }
func (t *BusTransport) Kind() domain.ProtocolKind { return domain.ProtocolBus }

// Call publishes the payload to the channel derived from method.
func (t *BusTransport) Call(ctx context.Context, method string, payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	channel := fmt.Sprintf("%s:%s", t.channelPrefix, method)
	receivers, err := t.rdb.Publish(ctx, channel, data).Result()
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: err}
	}

	return receivers, nil
}

func (t *BusTransport) Close() error {
	return t.rdb.Close()
}
