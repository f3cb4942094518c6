// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	var seen []string
	r.Register("custom", HandlerFunc(func(ctx context.Context, ev Event) error {
		seen = append(seen, ev.Type)
		return nil
	}))

	r.Dispatch(ctx, New("custom", nil))
	r.Dispatch(ctx, New("custom", "payload"))
	assert.Equal(t, []string{"custom", "custom"}, seen)
}

func TestRegistryBuiltins(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	// Built-in handlers must absorb every well-known type without panic.
	for _, eventType := range []string{TypePing, TypeMessage, TypeTask, TypeStatus} {
		r.Dispatch(ctx, New(eventType, map[string]any{"k": "v"}))
	}
}

func TestRegistryUnknownTypeUsesDefault(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	var got Event
	r.SetDefault(HandlerFunc(func(ctx context.Context, ev Event) error {
		got = ev
		return nil
	}))

	r.Dispatch(ctx, New("mystery", 7))
	assert.Equal(t, "mystery", got.Type)
}

func TestRegistryUnregister(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	var defaults, handled int
	r.SetDefault(HandlerFunc(func(ctx context.Context, ev Event) error {
		defaults++
		return nil
	}))
	r.Register("temp", HandlerFunc(func(ctx context.Context, ev Event) error {
		handled++
		return nil
	}))

	r.Dispatch(ctx, New("temp", nil))
	r.Unregister("temp")
	r.Dispatch(ctx, New("temp", nil))

	assert.Equal(t, 1, handled)
	assert.Equal(t, 1, defaults)
}

func TestRegistrySwallowsHandlerError(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	r.Register("failing", HandlerFunc(func(ctx context.Context, ev Event) error {
		return errors.New("boom")
	}))

	// Must not panic or propagate.
	r.Dispatch(ctx, New("failing", nil))

	// The registry stays usable after a handler error.
	var ok bool
	r.Register("after", HandlerFunc(func(ctx context.Context, ev Event) error {
		ok = true
		return nil
	}))
	r.Dispatch(ctx, New("after", nil))
	require.True(t, ok)
}
