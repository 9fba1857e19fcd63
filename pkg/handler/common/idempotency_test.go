package common

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func counting(calls *atomic.Int32) func(context.Context, events.Event) error {
	return func(context.Context, events.Event) error {
		calls.Add(1)
		return nil
	}
}

func TestOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("events without an id always run", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		wrapped := Once("test-handler", counting(&calls), NewDeliveryTracker(0), quiet)

		require.NoError(t, wrapped(ctx, &plainEvent{}))
		require.NoError(t, wrapped(ctx, &plainEvent{}))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("skips redelivered event", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		tracker := NewDeliveryTracker(0)
		wrapped := Once("test-handler", counting(&calls), tracker, quiet)
		evt := &events.DonationRecorded{Meta: events.NewMeta(1, time.Now())}

		require.NoError(t, wrapped(ctx, evt))
		require.NoError(t, wrapped(ctx, evt))
		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, tracker.Done(Delivery{Handler: "test-handler", EventID: evt.EventID()}))
	})

	t.Run("handlers sharing a tracker each see the event", func(t *testing.T) {
		t.Parallel()
		var first, second atomic.Int32
		tracker := NewDeliveryTracker(0)
		a := Once("reconcile", counting(&first), tracker, quiet)
		b := Once("notify", counting(&second), tracker, quiet)
		evt := &events.RequestDecided{Meta: events.NewMeta(2, time.Now())}

		require.NoError(t, a(ctx, evt))
		require.NoError(t, b(ctx, evt))
		require.NoError(t, b(ctx, evt))
		assert.Equal(t, int32(1), first.Load())
		assert.Equal(t, int32(1), second.Load())
	})

	t.Run("failed attempt can be retried", func(t *testing.T) {
		t.Parallel()
		handlerErr := errors.New("handler error")
		var calls atomic.Int32
		handler := func(context.Context, events.Event) error {
			if calls.Add(1) == 1 {
				return handlerErr
			}
			return nil
		}
		tracker := NewDeliveryTracker(0)
		wrapped := Once("test-handler", handler, tracker, quiet)
		evt := &events.DonationRecorded{Meta: events.NewMeta(1, time.Now())}
		d := Delivery{Handler: "test-handler", EventID: evt.EventID()}

		assert.ErrorIs(t, wrapped(ctx, evt), handlerErr)
		assert.False(t, tracker.Done(d))
		require.NoError(t, wrapped(ctx, evt))
		assert.True(t, tracker.Done(d))
	})

	t.Run("concurrent deliveries run once", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		handler := func(context.Context, events.Event) error {
			calls.Add(1)
			time.Sleep(10 * time.Millisecond)
			return nil
		}
		wrapped := Once("test-handler", handler, NewDeliveryTracker(0), nil)
		evt := &events.RequestDecided{Meta: events.NewMeta(1, time.Now())}

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, wrapped(ctx, evt))
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestDeliveryTrackerForgetsOldVersions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	var calls atomic.Int32
	tracker := NewDeliveryTracker(5)
	wrapped := Once("test-handler", counting(&calls), tracker, quiet)

	old := &events.RequestClosed{Meta: events.NewMeta(1, time.Now())}
	require.NoError(t, wrapped(ctx, old))
	for v := uint64(2); v <= 10; v++ {
		require.NoError(t, wrapped(ctx, &events.RequestClosed{Meta: events.NewMeta(v, time.Now())}))
	}

	assert.False(t, tracker.Done(Delivery{Handler: "test-handler", EventID: old.EventID()}))
	assert.LessOrEqual(t, tracker.Len(), 6)
	assert.Equal(t, int32(10), calls.Load())
}

type plainEvent struct{}

func (e *plainEvent) Type() string { return "test.event" }
