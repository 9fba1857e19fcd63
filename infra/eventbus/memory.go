package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
)

// MemoryEventBus dispatches events synchronously to the handlers registered
// for their type. Handler errors are joined and returned from Emit; a
// panicking handler is recovered and reported as an error.
type MemoryEventBus struct {
	handlers  map[events.EventType][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []events.Event
}

// NewWithMemory creates a new in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers:  make(map[events.EventType][]eventbus.HandlerFunc),
		logger:    logger.With("bus", "memory"),
		published: make([]events.Event, 0),
	}
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to all registered handlers for its type.
func (b *MemoryEventBus) Emit(ctx context.Context, event events.Event) error {
	eventType := events.EventType(event.Type())

	b.mu.Lock()
	b.published = append(b.published, event)
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
	b.mu.Unlock()

	var errs []error
	for _, handler := range handlers {
		if err := b.dispatch(ctx, handler, event); err != nil {
			b.logger.Error("failed to process event", "type", eventType, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *MemoryEventBus) dispatch(ctx context.Context, handler eventbus.HandlerFunc, event events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic recovered in event handler", "type", event.Type(), "panic", r)
			err = errors.New("event handler panicked")
		}
	}()
	return handler(ctx, event)
}

// ClearPublished clears the list of published events. This is useful for testing.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = make([]events.Event, 0)
}

// Published returns a copy of the published events. This is useful for testing.
func (b *MemoryEventBus) Published() []events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]events.Event(nil), b.published...)
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)

type queued struct {
	ctx   context.Context
	event events.Event
}

// MemoryAsyncEventBus queues events and runs handlers on a worker goroutine,
// so Emit never waits for handlers. Events are handled in emission order.
type MemoryAsyncEventBus struct {
	handlers map[events.EventType][]eventbus.HandlerFunc
	mu       sync.RWMutex
	eventCh  chan queued
	done     chan struct{}
	closed   bool
	closeMu  sync.RWMutex
	once     sync.Once
	log      *slog.Logger
}

// NewWithMemoryAsync creates an asynchronous in-memory event bus with the
// given queue capacity.
func NewWithMemoryAsync(logger *slog.Logger, capacity int) *MemoryAsyncEventBus {
	if capacity <= 0 {
		capacity = 100
	}
	b := &MemoryAsyncEventBus{
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		eventCh:  make(chan queued, capacity),
		done:     make(chan struct{}),
		log:      logger.With("event-bus", "memory-async"),
	}
	go b.process()
	return b
}

func (b *MemoryAsyncEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// ErrBusClosed is returned by Emit after Close.
var ErrBusClosed = errors.New("event bus closed")

// Emit enqueues the event. It blocks only while the queue is full.
func (b *MemoryAsyncEventBus) Emit(ctx context.Context, event events.Event) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.eventCh <- queued{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to be handled.
// Emit returns ErrBusClosed afterwards.
func (b *MemoryAsyncEventBus) Close() {
	b.once.Do(func() {
		b.closeMu.Lock()
		b.closed = true
		close(b.eventCh)
		b.closeMu.Unlock()
	})
	<-b.done
}

func (b *MemoryAsyncEventBus) process() {
	defer close(b.done)
	for w := range b.eventCh {
		b.mu.RLock()
		handlers := append([]eventbus.HandlerFunc(nil), b.handlers[events.EventType(w.event.Type())]...)
		b.mu.RUnlock()
		for _, handler := range handlers {
			func() {
				defer func() {
					if r := recover(); r != nil {
						b.log.Error("panic recovered in event handler", "type", w.event.Type(), "panic", r)
					}
				}()
				if err := handler(w.ctx, w.event); err != nil {
					b.log.Error("failed to process event", "type", w.event.Type(), "error", err)
				}
			}()
		}
	}
}

var _ eventbus.Bus = (*MemoryAsyncEventBus)(nil)
