// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package event defines the cvpc event frame and its msgpack wire codec,
// plus the registry that dispatches incoming events to typed handlers.
//
// On the wire an event is a msgpack map with two keys: "type" (string) and
// "data" (any msgpack value). This matches the frame format expected by the
// coordinating Durable Object.
package event

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Well-known event types handled by the built-in registry.
const (
	TypePing    = "ping"
	TypeMessage = "message"
	TypeTask    = "task"
	TypeStatus  = "status"
)

// Event is a single frame exchanged with the server.
type Event struct {
	// Type routes the event to a handler. An empty type is dispatched to
	// the registry's default handler.
	Type string `msgpack:"type" json:"type"`

	// Data is the event payload. Decoded payloads contain msgpack's
	// natural Go mappings (map[string]any, []any, scalars).
	Data any `msgpack:"data" json:"data"`
}

// New returns an event of the given type carrying data.
func New(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}

// NewID returns a unique identifier for a journaled or submitted event.
func NewID() string {
	return uuid.NewString()
}

// Encode serializes the event to its msgpack wire form.
func Encode(ev Event) ([]byte, error) {
	data, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %q event: %w", ev.Type, err)
	}
	return data, nil
}

// Decode parses a msgpack frame into an Event. Unknown keys are ignored
// and a missing type yields the empty string, which the registry routes to
// its default handler.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := msgpack.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event frame: %w", err)
	}
	return ev, nil
}
