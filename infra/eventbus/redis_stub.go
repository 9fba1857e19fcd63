//go:build !redis

package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
)

// ErrRedisDisabled is returned when the binary was built without the redis tag.
var ErrRedisDisabled = errors.New("redis event bus: build with -tags redis to enable")

type RedisEventBusConfig struct {
	Stream           string
	Group            string
	DLQRetryInterval time.Duration
	DLQBatchSize     int64
	Block            time.Duration
}

func DefaultRedisEventBusConfig() *RedisEventBusConfig {
	return &RedisEventBusConfig{
		Stream:           "studentaid:events",
		Group:            "studentaid",
		DLQRetryInterval: 5 * time.Minute,
		DLQBatchSize:     10,
		Block:            5 * time.Second,
	}
}

type RedisEventBus struct{}

func NewWithRedis(
	url string,
	logger *slog.Logger,
	config *RedisEventBusConfig,
) (*RedisEventBus, error) {
	return nil, ErrRedisDisabled
}

func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {}

func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	return ErrRedisDisabled
}

func (b *RedisEventBus) DLQLen(ctx context.Context, eventType events.EventType) (int64, error) {
	return 0, ErrRedisDisabled
}

func (b *RedisEventBus) Close() error { return nil }

var _ eventbus.Bus = (*RedisEventBus)(nil)
