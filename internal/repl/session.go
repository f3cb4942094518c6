// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package repl implements the interactive cvpc> interface. Command
// execution lives in Session, which is plain Go and testable; the
// terminal front-end is a bubbletea program wrapping a Session.
package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cvpc/internal/httpapi"
	"cvpc/internal/journal"
)

const helpText = `Commands:
  help                     show this help
  version                  print the cvpc version
  status                   journaled event counts per type
  events [type] [limit]    list recent journaled events
  send <type> [json-data]  submit an event to the API server
  export [type]            export the journal to YAML and JSON
  exit | quit | q          leave the session`

// Session executes REPL commands against the journal and, when an API
// client is configured, a running cvpc server.
type Session struct {
	store   *journal.Store
	api     *httpapi.Client
	version string
}

// NewSession returns a session. api may be nil; the send command then
// reports that no server is configured.
func NewSession(store *journal.Store, api *httpapi.Client, version string) *Session {
	return &Session{store: store, api: api, version: version}
}

// Execute runs one input line and returns its output. quit is true when
// the line was an exit command.
func (s *Session) Execute(ctx context.Context, line string) (output string, quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "exit", "quit", "q":
		return "", true
	case "help":
		return helpText, false
	case "version":
		return "cvpc " + s.version, false
	case "status":
		return s.status(ctx), false
	case "events":
		return s.events(ctx, args), false
	case "send":
		return s.send(ctx, args), false
	case "export":
		return s.export(ctx, args), false
	default:
		return fmt.Sprintf("unknown command %q (try 'help')", cmd), false
	}
}

func (s *Session) status(ctx context.Context) string {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return "error: " + err.Error()
	}
	if len(stats) == 0 {
		return "journal is empty"
	}

	eventTypes := make([]string, 0, len(stats))
	total := 0
	for eventType, count := range stats {
		eventTypes = append(eventTypes, eventType)
		total += count
	}
	sort.Strings(eventTypes)

	var b strings.Builder
	for _, eventType := range eventTypes {
		fmt.Fprintf(&b, "%-12s %d\n", eventType, stats[eventType])
	}
	fmt.Fprintf(&b, "%-12s %d", "total", total)
	return b.String()
}

func (s *Session) events(ctx context.Context, args []string) string {
	eventType := ""
	limit := 0
	if len(args) > 0 {
		eventType = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Sprintf("invalid limit %q", args[1])
		}
		limit = n
	}

	entries, err := s.store.Recent(ctx, eventType, limit)
	if err != nil {
		return "error: " + err.Error()
	}
	if len(entries) == 0 {
		return "no events"
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		payload := ""
		if e.Data != nil {
			if data, err := json.Marshal(e.Data); err == nil {
				payload = " " + string(data)
			}
		}
		fmt.Fprintf(&b, "%s  %-8s %-10s%s",
			e.ReceivedAt.Format("2006-01-02 15:04:05"), e.Source, e.Type, payload)
	}
	return b.String()
}

func (s *Session) send(ctx context.Context, args []string) string {
	if s.api == nil {
		return "no API server configured (start one with 'cvpc server')"
	}
	if len(args) == 0 {
		return "usage: send <type> [json-data]"
	}

	var data any
	if len(args) > 1 {
		raw := strings.Join(args[1:], " ")
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Sprintf("invalid JSON data: %v", err)
		}
	}

	id, err := s.api.SubmitEvent(ctx, args[0], data)
	if err != nil {
		return "error: " + err.Error()
	}
	return "submitted " + id
}

func (s *Session) export(ctx context.Context, args []string) string {
	eventType := ""
	if len(args) > 0 {
		eventType = args[0]
	}

	yamlPath, err := s.store.ExportYAML(ctx, eventType)
	if err != nil {
		return "error: " + err.Error()
	}
	jsonPath, err := s.store.ExportJSON(ctx, eventType)
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("exported %s and %s", yamlPath, jsonPath)
}
