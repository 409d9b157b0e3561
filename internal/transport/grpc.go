package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vietddude/courier/internal/core/domain"
)

// StreamFunc executes a streaming operation over an established gRPC
// connection. Callers pass it as the payload of a stream transport call,
// wrapping their generated client usage.
type StreamFunc func(ctx context.Context, conn grpc.ClientConnInterface) (any, error)

// GRPCTransport implements streaming operations over a shared gRPC
// connection. Operations inject their generated-client logic via
// StreamFunc; the transport owns connection lifecycle only.
type GRPCTransport struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn
}

// NewGRPCTransport creates a gRPC transport, deriving TLS from the
// endpoint scheme.
func NewGRPCTransport(name, endpoint string) (*GRPCTransport, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	return &GRPCTransport{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
	}, nil
}

func (t *GRPCTransport) Name() string              { return t.name }
func (t *GRPCTransport) Kind() domain.ProtocolKind { return domain.ProtocolStream }

// Conn returns the underlying gRPC connection for generated clients.
func (t *GRPCTransport) Conn() *grpc.ClientConn {
	return t.conn
}

// Call runs the StreamFunc payload against the connection.
func (t *GRPCTransport) Call(ctx context.Context, method string, payload any) (any, error) {
	fn, ok := payload.(StreamFunc)
	if !ok {
		return nil, fmt.Errorf("stream transport %s requires a StreamFunc payload for %s", t.name, method)
	}

	result, err := fn(ctx, t.conn)
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: err}
	}
	return result, nil
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}
