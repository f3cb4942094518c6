// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cvpc/internal/httputil"
	"cvpc/internal/journal"
)

// Client talks to a running cvpc API server. Requests retry on HTTP 429
// via httputil.DoWithRetry.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a client for the API server at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// SubmitEvent posts an event and returns its journal ID.
func (c *Client) SubmitEvent(ctx context.Context, eventType string, data any) (string, error) {
	body, err := json.Marshal(SubmitRequest{Type: eventType, Data: data})
	if err != nil {
		return "", fmt.Errorf("marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp SubmitResponse
	if err := c.do(ctx, req, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// RecentEvents fetches the newest journaled events. An empty eventType
// matches all types; a non-positive limit uses the server default.
func (c *Client) RecentEvents(ctx context.Context, eventType string, limit int) ([]journal.Entry, error) {
	query := url.Values{}
	if eventType != "" {
		query.Set("type", eventType)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	target := c.baseURL + "/events"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	var entries []journal.Entry
	if err := c.do(ctx, req, http.StatusOK, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats fetches the journaled event count per type.
func (c *Client) Stats(ctx context.Context) (map[string]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats map[string]int
	if err := c.do(ctx, req, http.StatusOK, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Health reports whether the server answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, req *http.Request, wantStatus int, out any) error {
	resp, err := httputil.DoWithRetry(ctx, c.httpc, req, 0)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
