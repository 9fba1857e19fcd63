//go:build kafka

package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainerskafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// setupKafkaBus starts a Kafka container and returns a bus connected to it.
func setupKafkaBus(tb testing.TB, cfg *KafkaEventBusConfig) *KafkaEventBus {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := testcontainerskafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	if err != nil {
		tb.Skipf("kafka container unavailable: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(tb, err)

	bus, err := NewWithKafka(strings.Join(brokers, ","), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestKafkaBusHandlerReceivesEvent(t *testing.T) {
	bus := setupKafkaBus(t, nil)
	received := make(chan events.Event, 1)
	bus.Register(events.EventTypeUserRegistered, func(_ context.Context, e events.Event) error {
		received <- e
		return nil
	})

	sent := &events.UserRegistered{Meta: events.NewMeta(1, time.Now()), UserID: "u_new", Email: "new@college.edu"}
	require.NoError(t, bus.Emit(context.Background(), sent))
	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.(*events.UserRegistered).ID)
	case <-time.After(30 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestKafkaBusDLQRetry(t *testing.T) {
	bus := setupKafkaBus(t, &KafkaEventBusConfig{DLQRetryInterval: time.Second, DLQBatchSize: 5})
	attempts := make(chan struct{}, 4)
	var calls atomic.Int32
	bus.Register(events.EventTypeVerificationDecided, func(context.Context, events.Event) error {
		attempts <- struct{}{}
		if calls.Add(1) == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), &events.VerificationDecided{
		Meta: events.NewMeta(2, time.Now()), UserID: "u7", Decision: "approved",
	}))
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(60 * time.Second):
			t.Fatalf("attempt %d not delivered", i+1)
		}
	}
}
