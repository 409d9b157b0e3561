package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
)

// HTTPTransport implements request/response operations as JSON-RPC over
// HTTP.
type HTTPTransport struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTransport creates a new JSON-RPC over HTTP transport.
func NewHTTPTransport(name, endpoint string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (t *HTTPTransport) Name() string              { return t.name }
func (t *HTTPTransport) Kind() domain.ProtocolKind { return domain.ProtocolRPC }

// Call makes a single JSON-RPC call. Payload is used as params.
func (t *HTTPTransport) Call(ctx context.Context, method string, payload any) (any, error) {
	if payload == nil {
		payload = []any{}
	}

	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  payload,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{
			Transport: t.name,
			Op:        method,
			Err:       fmt.Errorf("http %d: %s", resp.StatusCode, string(body)),
		}
	}

	var rpcResp struct {
		Result any `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}

	if rpcResp.Error != nil {
		return nil, &domain.TransportError{
			Transport: t.name,
			Op:        method,
			Err:       fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message),
		}
	}

	return rpcResp.Result, nil
}

func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
