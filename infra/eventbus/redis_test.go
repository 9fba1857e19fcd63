//go:build redis

package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisBus starts a Redis container and returns a bus connected to it.
func setupRedisBus(tb testing.TB, cfg *RedisEventBusConfig) *RedisEventBus {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.0.5",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		tb.Skipf("redis container unavailable: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(tb, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(tb, err)

	bus, err := NewWithRedis("redis://"+host+":"+port.Port(), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = bus.Close() })
	return bus
}

func donationEvent() *events.DonationRecorded {
	return &events.DonationRecorded{
		Meta:         events.NewMeta(5, time.Now()),
		DonationID:   "d_1",
		RequestID:    "r1",
		DonorID:      "u2",
		Amount:       decimal.NewFromInt(400),
		AmountRaised: decimal.NewFromInt(1100),
	}
}

func TestRedisBusHandlerReceivesEvent(t *testing.T) {
	bus := setupRedisBus(t, nil)
	received := make(chan *events.DonationRecorded, 1)
	bus.Register(events.EventTypeDonationRecorded, func(_ context.Context, e events.Event) error {
		received <- e.(*events.DonationRecorded)
		return nil
	})

	sent := donationEvent()
	require.NoError(t, bus.Emit(context.Background(), sent))
	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.True(t, got.AmountRaised.Equal(sent.AmountRaised))
	case <-time.After(10 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRedisBusDLQ(t *testing.T) {
	bus := setupRedisBus(t, &RedisEventBusConfig{DLQRetryInterval: time.Hour, Block: time.Second})
	done := make(chan struct{}, 1)
	bus.Register(events.EventTypeRequestDecided, func(context.Context, events.Event) error {
		done <- struct{}{}
		return errors.New("notifier down")
	})

	require.NoError(t, bus.Emit(context.Background(), &events.RequestDecided{
		Meta: events.NewMeta(2, time.Now()), RequestID: "r1", Decision: "approved",
	}))
	<-done
	assert.Eventually(t, func() bool {
		n, err := bus.DLQLen(context.Background(), events.EventTypeRequestDecided)
		return err == nil && n == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisBusDLQRetry(t *testing.T) {
	bus := setupRedisBus(t, &RedisEventBusConfig{DLQRetryInterval: 500 * time.Millisecond, Block: time.Second})
	attempts := make(chan struct{}, 4)
	var calls atomic.Int32
	bus.Register(events.EventTypeRequestClosed, func(context.Context, events.Event) error {
		attempts <- struct{}{}
		if calls.Add(1) == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), &events.RequestClosed{Meta: events.NewMeta(3, time.Now())}))
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(10 * time.Second):
			t.Fatalf("attempt %d not delivered", i+1)
		}
	}
	n, err := bus.DLQLen(context.Background(), events.EventTypeRequestClosed)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func BenchmarkRedisEmit(b *testing.B) {
	bus := setupRedisBus(b, nil)
	evt := donationEvent()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bus.Emit(ctx, evt); err != nil {
			b.Fatal(err)
		}
	}
}
