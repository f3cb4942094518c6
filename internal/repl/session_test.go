// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package repl

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cvpc/internal/event"
	"cvpc/internal/httpapi"
	"cvpc/internal/journal"
	"cvpc/pkg/types"
)

func newSession(t *testing.T) (*Session, *journal.Store) {
	t.Helper()

	store, err := journal.Open(types.JournalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httpapi.New(types.HTTPConfig{Bind: "127.0.0.1", Timeout: 5 * time.Second},
		store, "1.2.3", zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	api := httpapi.NewClient(ts.URL, 5*time.Second)
	return NewSession(store, api, "1.2.3"), store
}

func TestExecuteBasics(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	tests := []struct {
		name     string
		line     string
		contains string
		quit     bool
	}{
		{name: "empty line", line: "", contains: ""},
		{name: "whitespace line", line: "   ", contains: ""},
		{name: "help", line: "help", contains: "Commands:"},
		{name: "version", line: "version", contains: "cvpc 1.2.3"},
		{name: "unknown command", line: "rewind", contains: `unknown command "rewind"`},
		{name: "case insensitive", line: "HELP", contains: "Commands:"},
		{name: "exit", line: "exit", quit: true},
		{name: "quit", line: "quit", quit: true},
		{name: "q", line: "q", quit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, quit := s.Execute(ctx, tt.line)
			assert.Equal(t, tt.quit, quit)
			if tt.contains == "" {
				assert.Empty(t, output)
			} else {
				assert.Contains(t, output, tt.contains)
			}
		})
	}
}

func TestStatusEmptyJournal(t *testing.T) {
	s, _ := newSession(t)
	output, quit := s.Execute(context.Background(), "status")
	assert.False(t, quit)
	assert.Equal(t, "journal is empty", output)
}

func TestSendAndInspect(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	output, _ := s.Execute(ctx, `send task {"op": "play"}`)
	assert.Contains(t, output, "submitted ")

	output, _ = s.Execute(ctx, "status")
	assert.Contains(t, output, "task")
	assert.Contains(t, output, "total")

	output, _ = s.Execute(ctx, "events task")
	assert.Contains(t, output, "task")
	assert.Contains(t, output, `"op":"play"`)
	assert.Contains(t, output, journal.SourceAPI)
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	output, _ := s.Execute(ctx, "send")
	assert.Contains(t, output, "usage: send")

	output, _ = s.Execute(ctx, "send task {broken")
	assert.Contains(t, output, "invalid JSON data")
}

func TestSendWithoutAPIServer(t *testing.T) {
	store, err := journal.Open(types.JournalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	s := NewSession(store, nil, "dev")
	output, _ := s.Execute(context.Background(), "send ping")
	assert.Contains(t, output, "no API server configured")
}

func TestEventsShowsJournaledAgentEvents(t *testing.T) {
	ctx := context.Background()
	s, store := newSession(t)

	_, err := store.Append(ctx, event.New(event.TypeStatus, map[string]any{"state": "paused"}), journal.SourceAgent)
	require.NoError(t, err)

	output, _ := s.Execute(ctx, "events")
	assert.Contains(t, output, event.TypeStatus)
	assert.Contains(t, output, journal.SourceAgent)
}

func TestEventsInvalidLimit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "non-numeric", input: "events status banana"},
		{name: "trailing junk", input: "events status 5x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t)
			output, _ := s.Execute(context.Background(), tt.input)
			assert.Contains(t, output, "invalid limit")
		})
	}
}

func TestEventsEmpty(t *testing.T) {
	s, _ := newSession(t)
	output, _ := s.Execute(context.Background(), "events")
	assert.Equal(t, "no events", output)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s, store := newSession(t)

	_, err := store.Append(ctx, event.New(event.TypePing, nil), journal.SourceAgent)
	require.NoError(t, err)

	output, _ := s.Execute(ctx, "export")
	assert.Contains(t, output, "export.yaml")
	assert.Contains(t, output, "export.json")
}
