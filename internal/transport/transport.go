// Package transport implements the wire adapters an operation can be
// carried over: JSON-RPC over HTTP, gRPC streaming, a Redis message bus,
// and HTTP tool invocation.
//
// Adapters are deliberately thin: resilience (retries, breakers,
// selection) lives above them, and byte-level protocol details beyond the
// JSON envelope live below.
package transport

import (
	"context"

	"github.com/vietddude/courier/internal/core/domain"
)

// Transport is one interchangeable protocol implementation. Name doubles
// as the circuit-breaker key for the transport.
type Transport interface {
	// Name returns the transport identifier (e.g., "rpc-primary")
	Name() string

	// Kind returns the protocol family this transport implements
	Kind() domain.ProtocolKind

	// Call performs a single operation. The payload interpretation is
	// per-protocol: JSON-RPC params, a bus message, tool arguments, or a
	// StreamFunc for streaming transports.
	Call(ctx context.Context, method string, payload any) (any, error)

	// Close cleans up resources
	Close() error
}

// Config holds settings for one configured transport endpoint.
type Config struct {
	Name     string              `yaml:"name"`
	Kind     domain.ProtocolKind `yaml:"kind"`
	Endpoint string              `yaml:"endpoint"`
	Timeout  string              `yaml:"timeout"`
}
