// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package event

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler processes the payload of one event type.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Registry routes events to handlers by type. Events with no registered
// handler go to the default handler. A handler error is logged and
// swallowed: one bad event must not take the dispatch loop down.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
	logger   *zap.Logger
}

// NewRegistry returns a registry pre-populated with the built-in handlers
// for ping, message, task, and status events.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
		fallback: HandlerFunc(func(ctx context.Context, ev Event) error {
			logger.Warn("unknown event", zap.String("type", ev.Type), zap.Any("data", ev.Data))
			return nil
		}),
	}

	r.Register(TypePing, HandlerFunc(func(ctx context.Context, ev Event) error {
		logger.Debug("ping received")
		return nil
	}))
	r.Register(TypeMessage, HandlerFunc(func(ctx context.Context, ev Event) error {
		logger.Info("message received", zap.Any("data", ev.Data))
		return nil
	}))
	r.Register(TypeTask, HandlerFunc(func(ctx context.Context, ev Event) error {
		logger.Info("task received", zap.Any("data", ev.Data))
		return nil
	}))
	r.Register(TypeStatus, HandlerFunc(func(ctx context.Context, ev Event) error {
		logger.Info("status update", zap.Any("data", ev.Data))
		return nil
	}))

	return r
}

// Register installs handler for eventType, replacing any previous one.
func (r *Registry) Register(eventType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = handler
	r.logger.Debug("handler registered", zap.String("type", eventType))
}

// Unregister removes the handler for eventType if present.
func (r *Registry) Unregister(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[eventType]; ok {
		delete(r.handlers, eventType)
		r.logger.Debug("handler unregistered", zap.String("type", eventType))
	}
}

// SetDefault replaces the fallback handler for unregistered event types.
func (r *Registry) SetDefault(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

// Dispatch routes ev to its handler. Handler errors are logged, never
// returned.
func (r *Registry) Dispatch(ctx context.Context, ev Event) {
	r.mu.RLock()
	handler, ok := r.handlers[ev.Type]
	if !ok {
		handler = r.fallback
	}
	r.mu.RUnlock()

	if err := handler.Handle(ctx, ev); err != nil {
		r.logger.Error("event handler failed",
			zap.String("type", ev.Type),
			zap.Error(err))
	}
}
