// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cvpc/internal/event"
	"cvpc/internal/httputil"
	"cvpc/internal/journal"
	"cvpc/pkg/types"
)

func init() {
	// Use a tiny base delay so client retries finish quickly.
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

func newTestServer(t *testing.T) (*httptest.Server, *journal.Store) {
	t.Helper()

	store, err := journal.Open(types.JournalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := New(types.HTTPConfig{Bind: "127.0.0.1", Port: 0, Timeout: 5 * time.Second},
		store, "test", zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return ts, store
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL, 5*time.Second)
	require.NoError(t, c.Health(context.Background()))
}

func TestVersion(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestSubmitAndListEvents(t *testing.T) {
	ctx := context.Background()
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL, 5*time.Second)

	id, err := c.SubmitEvent(ctx, event.TypeTask, map[string]any{"op": "play"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = c.SubmitEvent(ctx, event.TypeStatus, map[string]any{"state": "playing"})
	require.NoError(t, err)

	entries, err := c.RecentEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, event.TypeStatus, entries[0].Type)
	assert.Equal(t, journal.SourceAPI, entries[0].Source)

	// Filtered by type.
	entries, err = c.RecentEvents(ctx, event.TypeTask, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	payload, ok := entries[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "play", payload["op"])
}

func TestSubmitEventRequiresType(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/events", "application/json",
		strings.NewReader(`{"data": {"op": "play"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitEventRejectsBadJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/events", "application/json",
		strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListEventsRejectsInvalidLimit(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/events?limit=banana")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListEventsEmptyJournal(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL, 5*time.Second)

	entries, err := c.RecentEvents(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStatsEndpoint(t *testing.T) {
	ctx := context.Background()
	ts, store := newTestServer(t)
	c := NewClient(ts.URL, 5*time.Second)

	// Journal one event directly (agent source) and one via the API.
	_, err := store.Append(ctx, event.New(event.TypePing, nil), journal.SourceAgent)
	require.NoError(t, err)
	_, err = c.SubmitEvent(ctx, event.TypePing, nil)
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{event.TypePing: 2}, stats)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "post healthz", method: http.MethodPost, path: "/healthz"},
		{name: "delete events", method: http.MethodDelete, path: "/events"},
		{name: "post stats", method: http.MethodPost, path: "/stats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestServerAddr(t *testing.T) {
	store, err := journal.Open(types.JournalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	s := New(types.HTTPConfig{Bind: "0.0.0.0", Port: 8080}, store, "test", zap.NewNop())
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
}
