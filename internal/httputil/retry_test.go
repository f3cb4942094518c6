// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

// rateLimitedEventAPI emulates an /events endpoint that answers 429 for
// the first reject submissions and thenStatus afterwards. It returns the
// server and a counter of calls received.
func rateLimitedEventAPI(t *testing.T, reject int, thenStatus int) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if int(n) <= reject {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		w.WriteHeader(thenStatus)
	}))
	t.Cleanup(ts.Close)

	return ts, &calls
}

func submitEventRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/events",
		strings.NewReader(`{"type":"status","data":{"state":"playing"}}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		reject     int
		thenStatus int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{
			name:       "accepted immediately",
			reject:     0,
			thenStatus: http.StatusAccepted,
			maxRetries: 5,
			wantStatus: http.StatusAccepted,
			wantCalls:  1,
		},
		{
			name:       "accepted after two rate limits",
			reject:     2,
			thenStatus: http.StatusAccepted,
			maxRetries: 5,
			wantStatus: http.StatusAccepted,
			wantCalls:  3,
		},
		{
			name:       "rate limited past the retry budget",
			reject:     100,
			thenStatus: http.StatusAccepted,
			maxRetries: 3,
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  4, // 1 initial + 3 retries
		},
		{
			name:       "zero maxRetries uses the default of five",
			reject:     100,
			thenStatus: http.StatusAccepted,
			maxRetries: 0,
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  6, // 1 initial + 5 default retries
		},
		{
			name:       "server errors pass through without retrying",
			reject:     0,
			thenStatus: http.StatusInternalServerError,
			maxRetries: 5,
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := rateLimitedEventAPI(t, tt.reject, tt.thenStatus)
			req := submitEventRequest(t, ts.URL)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetryContextCancelledDuringBackoff(t *testing.T) {
	ts, _ := rateLimitedEventAPI(t, 100, http.StatusAccepted)

	// Use a longer base delay so the context cancels during the wait.
	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := DoWithRetry(ctx, ts.Client(), submitEventRequest(t, ts.URL), 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
