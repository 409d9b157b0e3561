package probes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vietddude/courier/internal/health"
)

// APIProbe checks reachability of an HTTP endpoint.
type APIProbe struct {
	health.Base
	url    string
	client *http.Client
}

// NewAPIProbe creates a probe that GETs the given URL. A nil client gets
// a default with the probe's timeout.
func NewAPIProbe(url string, client *http.Client, opts health.ProbeOpts) *APIProbe {
	p := &APIProbe{
		Base: health.NewBase(opts, "api"),
		url:  url,
	}
	if client == nil {
		client = &http.Client{Timeout: p.Timeout()}
	}
	p.client = client
	return p
}

func (p *APIProbe) Check(ctx context.Context) (health.Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return health.Result{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnhealthy,
			Message: fmt.Sprintf("endpoint unreachable: %v", err),
			Error:   err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	details := map[string]any{
		"url":              p.url,
		"status_code":      resp.StatusCode,
		"response_time_ms": time.Since(start).Milliseconds(),
	}

	switch {
	case resp.StatusCode < 300:
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusHealthy,
			Message: "endpoint reachable",
			Details: details,
		}, nil
	case resp.StatusCode >= 500:
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusUnhealthy,
			Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode),
			Details: details,
		}, nil
	default:
		return health.Result{
			Name:    p.Name(),
			Status:  health.StatusDegraded,
			Message: fmt.Sprintf("endpoint returned %d", resp.StatusCode),
			Details: details,
		}, nil
	}
}
