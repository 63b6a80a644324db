package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/procurehub/purchase-workflow/internal/domain/event"
)

// Dispatcher fans domain events out to subscribed handlers. Subscriptions
// are keyed by event type; a handler sees only the types it asked for.
type Dispatcher interface {
	// Subscribe registers a handler under an auto-generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler under an explicit name, which
	// shows up in logs and allows later removal
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes the named handler for an event type
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs the handlers in subscription order and stops at the
	// first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs each handler in its own goroutine and returns
	// immediately; handler errors are logged, never surfaced
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers reports the subscriptions for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close rejects further dispatches and waits for in-flight async
	// handlers to drain
	Close() error
}

// Logger is the minimal logging surface the dispatcher needs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type inProcDispatcher struct {
	mu     sync.RWMutex
	subs   map[event.Type][]HandlerInfo
	logger Logger

	inflight sync.WaitGroup
	closed   atomic.Bool
}

// Option configures the dispatcher
type Option func(*inProcDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *inProcDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates an in-process dispatcher with no subscriptions
func NewDispatcher(opts ...Option) Dispatcher {
	d := &inProcDispatcher{
		subs: make(map[event.Type][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *inProcDispatcher) Subscribe(eventType event.Type, handler Handler) {
	name := fmt.Sprintf("handler-%d", len(d.subs[eventType]))
	d.SubscribeNamed(eventType, name, handler)
}

func (d *inProcDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.subs[eventType] = append(d.subs[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	if d.logger != nil {
		d.logger.Info("Handler registered",
			"event_type", eventType,
			"handler_name", name,
		)
	}
}

func (d *inProcDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.subs[eventType][:0]
	for _, s := range d.subs[eventType] {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	d.subs[eventType] = kept

	if d.logger != nil {
		d.logger.Info("Handler unregistered",
			"event_type", eventType,
			"handler_name", name,
		)
	}
}

func (d *inProcDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	for _, sub := range d.subscribers(evt.Type) {
		if err := d.runHandler(ctx, evt, sub); err != nil {
			if d.logger != nil {
				d.logger.Error("Handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", sub.Name,
					"error", err,
				)
			}
			return fmt.Errorf("handler %s failed: %w", sub.Name, err)
		}
	}

	return nil
}

func (d *inProcDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("Async dispatch dropped, dispatcher is closed",
				"event_type", evt.Type,
				"event_id", evt.ID,
			)
		}
		return
	}

	for _, sub := range d.subscribers(evt.Type) {
		d.inflight.Add(1)
		go func(s HandlerInfo) {
			defer d.inflight.Done()

			if err := d.runHandler(ctx, evt, s); err != nil && d.logger != nil {
				d.logger.Error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", s.Name,
					"error", err,
				)
			}
		}(sub)
	}
}

func (d *inProcDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]HandlerInfo, len(d.subs[eventType]))
	for i, s := range d.subs[eventType] {
		// Handler funcs stay private to the dispatcher
		out[i] = HandlerInfo{
			Name:        s.Name,
			EventType:   s.EventType,
			Description: s.Description,
		}
	}

	return out
}

func (d *inProcDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	if d.logger != nil {
		d.logger.Info("Closing dispatcher, draining async handlers")
	}

	d.inflight.Wait()

	if d.logger != nil {
		d.logger.Info("Dispatcher closed")
	}

	return nil
}

func (d *inProcDispatcher) subscribers(t event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subs[t]
}

// runHandler invokes one handler with panic recovery so a misbehaving
// subscriber cannot take the dispatcher down
func (d *inProcDispatcher) runHandler(ctx context.Context, evt *event.Event, sub HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			if d.logger != nil {
				d.logger.Error("Handler panic recovered",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", sub.Name,
					"panic", r,
				)
			}
		}
	}()

	return sub.Handler(ctx, evt)
}
