//go:build !kafka

package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
)

// ErrKafkaDisabled is returned when the binary was built without the kafka tag.
var ErrKafkaDisabled = errors.New("kafka event bus: build with -tags kafka to enable")

type KafkaEventBusConfig struct {
	GroupID          string
	TopicPrefix      string
	DLQRetryInterval time.Duration
	DLQBatchSize     int
}

func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return &KafkaEventBusConfig{
		GroupID:          "studentaid",
		TopicPrefix:      "studentaid",
		DLQRetryInterval: 5 * time.Minute,
		DLQBatchSize:     10,
	}
}

type KafkaEventBus struct{}

func NewWithKafka(
	brokers string,
	logger *slog.Logger,
	config *KafkaEventBusConfig,
) (*KafkaEventBus, error) {
	return nil, ErrKafkaDisabled
}

func (b *KafkaEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {}

func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	return ErrKafkaDisabled
}

func (b *KafkaEventBus) Close() error { return nil }

var _ eventbus.Bus = (*KafkaEventBus)(nil)
