// Package common holds helpers shared by the ledger event handlers.
package common

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"golang.org/x/sync/singleflight"
)

// DefaultWindow is how many ledger versions a delivery is remembered for.
const DefaultWindow = 4096

// Delivery identifies one handler's processing of one ledger event.
type Delivery struct {
	Handler string
	EventID string
}

// stamped is implemented by every event carrying events.Meta.
type stamped interface {
	EventID() string
	LedgerVersion() uint64
}

// DeliveryTracker remembers which deliveries completed. Broker-backed buses
// deliver at least once, so a redelivered event has the same Delivery.
// Entries more than window versions behind the newest one are forgotten.
type DeliveryTracker struct {
	mu       sync.Mutex
	done     map[Delivery]uint64
	newest   uint64
	window   uint64
	inflight singleflight.Group
}

// NewDeliveryTracker creates a tracker. A zero window means DefaultWindow.
func NewDeliveryTracker(window uint64) *DeliveryTracker {
	if window == 0 {
		window = DefaultWindow
	}
	return &DeliveryTracker{done: make(map[Delivery]uint64), window: window}
}

// Done reports whether d completed successfully.
func (t *DeliveryTracker) Done(d Delivery) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.done[d]
	return ok
}

// Len returns the number of remembered deliveries.
func (t *DeliveryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

func (t *DeliveryTracker) complete(d Delivery, version uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done[d] = version
	if version <= t.newest {
		return
	}
	t.newest = version
	if t.newest <= t.window {
		return
	}
	floor := t.newest - t.window
	for k, v := range t.done {
		if v < floor {
			delete(t.done, k)
		}
	}
}

// Once wraps handler so each ledger event is handled at most once
// successfully by it. Concurrent deliveries of one event share a single
// attempt; a failed attempt leaves the event free for a retry. Events
// without an id always reach handler.
func Once(
	name string,
	handler eventbus.HandlerFunc,
	tracker *DeliveryTracker,
	logger *slog.Logger,
) eventbus.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, e events.Event) error {
		s, ok := e.(stamped)
		if !ok || s.EventID() == "" {
			return handler(ctx, e)
		}
		d := Delivery{Handler: name, EventID: s.EventID()}
		log := logger.With(
			"handler", name,
			"event_type", e.Type(),
			"event_id", d.EventID,
			"version", s.LedgerVersion(),
		)
		if tracker.Done(d) {
			log.Info("🔁 [SKIP] Event already handled")
			return nil
		}

		_, err, _ := tracker.inflight.Do(name+"|"+d.EventID, func() (any, error) {
			if tracker.Done(d) {
				return nil, nil
			}
			if err := handler(ctx, e); err != nil {
				return nil, err
			}
			tracker.complete(d, s.LedgerVersion())
			return nil, nil
		})
		if err != nil {
			log.Warn("Handler failed, event left for redelivery", "error", err)
			return err
		}
		return nil
	}
}
