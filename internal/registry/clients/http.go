// Package clients provides concrete registry client implementations.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"veridoc/internal/registry"
)

// HTTPClient talks JSON over HTTP to one registry endpoint. Retry and
// failover policy live in the failover orchestrator, not here; this client
// makes exactly one attempt per Call and reports a categorized error.
type HTTPClient struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTP constructs a registry client for one endpoint. The http.Client
// carries no timeout of its own; the per-attempt deadline arrives via ctx.
func NewHTTP(name, baseURL string) *HTTPClient {
	return &HTTPClient{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (c *HTTPClient) Name() string { return c.name }

func (c *HTTPClient) Call(ctx context.Context, op registry.Operation, req registry.CheckRequest) (registry.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return registry.Result{}, registry.NewError(registry.ErrorInternal, c.name, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+string(op), bytes.NewReader(body))
	if err != nil {
		return registry.Result{}, registry.NewError(registry.ErrorInternal, c.name, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return registry.Result{}, registry.NewError(registry.ErrorTimeout, c.name, "attempt deadline exceeded", err)
		}
		return registry.Result{}, registry.NewError(registry.ErrorOutage, c.name, "transport failure", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return registry.Result{}, registry.NewError(registry.ErrorNotFound, c.name, "no matching record", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return registry.Result{}, registry.NewError(registry.ErrorAuthentication, c.name, "rejected credentials", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return registry.Result{}, registry.NewError(registry.ErrorRateLimited, c.name, "rate limited", nil)
	case resp.StatusCode >= 500:
		return registry.Result{}, registry.NewError(registry.ErrorOutage, c.name,
			fmt.Sprintf("upstream status %d", resp.StatusCode), nil)
	default:
		return registry.Result{}, registry.NewError(registry.ErrorBadData, c.name,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var result registry.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return registry.Result{}, registry.NewError(registry.ErrorBadData, c.name, "decode response", err)
	}
	if result.Source == "" {
		result.Source = c.name
	}
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}
	return result, nil
}
