package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vietddude/courier/internal/core/domain"
)

// ToolTransport implements tool invocation as JSON over HTTP: one POST
// per invocation to /tools/<name>/invoke.
type ToolTransport struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewToolTransport creates a tool invocation transport.
func NewToolTransport(name, baseURL string, timeout time.Duration) *ToolTransport {
	return &ToolTransport{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *ToolTransport) Name() string              { return t.name }
func (t *ToolTransport) Kind() domain.ProtocolKind { return domain.ProtocolTool }

// Call invokes the tool named by method with payload as its arguments.
func (t *ToolTransport) Call(ctx context.Context, method string, payload any) (any, error) {
	body := map[string]any{"arguments": payload}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}

	endpoint := fmt.Sprintf("%s/tools/%s/invoke", t.baseURL, url.PathEscape(method))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{
			Transport: t.name,
			Op:        method,
			Err:       fmt.Errorf("tool invocation failed: http %d: %s", resp.StatusCode, string(raw)),
		}
	}

	var result struct {
		Result any    `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Error != "" {
		return nil, &domain.TransportError{Transport: t.name, Op: method, Err: fmt.Errorf("tool error: %s", result.Error)}
	}

	return result.Result, nil
}

func (t *ToolTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
