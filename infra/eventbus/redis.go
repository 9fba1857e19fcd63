//go:build redis

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBusConfig holds configuration for the Redis Streams bus.
type RedisEventBusConfig struct {
	// Stream prefixes every stream name, one stream per event type.
	Stream           string
	Group            string
	DLQRetryInterval time.Duration
	DLQBatchSize     int64
	Block            time.Duration
}

// DefaultRedisEventBusConfig returns the configuration used when none is given.
func DefaultRedisEventBusConfig() *RedisEventBusConfig {
	return &RedisEventBusConfig{
		Stream:           "studentaid:events",
		Group:            "studentaid",
		DLQRetryInterval: 5 * time.Minute,
		DLQBatchSize:     10,
		Block:            5 * time.Second,
	}
}

// RedisEventBus delivers events through Redis Streams. Failed deliveries are
// moved to a dead letter stream and replayed periodically.
type RedisEventBus struct {
	client *redis.Client
	config *RedisEventBusConfig
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType][]eventbus.HandlerFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis connects to url and starts the dead letter retry worker.
func NewWithRedis(
	url string,
	logger *slog.Logger,
	config *RedisEventBusConfig,
) (*RedisEventBus, error) {
	if url == "" {
		return nil, fmt.Errorf("redis event bus: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	if config == nil {
		config = DefaultRedisEventBusConfig()
	}
	if config.Stream == "" {
		config.Stream = "studentaid:events"
	}
	if config.Group == "" {
		config.Group = "studentaid"
	}
	if config.DLQBatchSize <= 0 {
		config.DLQBatchSize = 10
	}
	if config.DLQRetryInterval <= 0 {
		config.DLQRetryInterval = 5 * time.Minute
	}
	if config.Block <= 0 {
		config.Block = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisEventBus{
		client:   client,
		config:   config,
		logger:   logger.With("bus", "redis"),
		handlers: make(map[events.EventType][]eventbus.HandlerFunc),
		ctx:      ctx,
		cancel:   cancel,
	}
	b.startDLQRetryWorker()
	b.logger.Info("🚀 Redis event bus initialized",
		"stream_prefix", config.Stream,
		"group", config.Group,
		"dlq_retry_interval", config.DLQRetryInterval,
	)
	return b, nil
}

// Emit appends the event to the stream of its type.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	payload, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}
	stream := streamNameFor(b.config.Stream, events.EventType(event.Type()))
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(payload)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type(), "stream", stream)
	return nil
}

// Register adds handler for eventType. The first registration for a type
// creates its consumer group and starts a consumer.
func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	first := len(b.handlers[eventType]) == 0
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
	if !first {
		return
	}

	stream := streamNameFor(b.config.Stream, eventType)
	group := groupNameFor(b.config.Group, eventType)
	err := b.client.XGroupCreateMkStream(b.ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		b.logger.Error("failed to create consumer group", "error", err, "stream", stream)
		return
	}

	consumer := fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(eventType, stream, group, consumer)
	}()
	b.logger.Info("handler registered", "event_type", eventType, "stream", stream, "consumer", consumer)
}

func (b *RedisEventBus) consume(eventType events.EventType, stream, group, consumer string) {
	for {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    b.config.Block,
		}).Result()
		if b.ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err, "stream", stream)
				time.Sleep(time.Second)
			}
			continue
		}
		for _, s := range res {
			for _, msg := range s.Messages {
				b.process(eventType, msg)
				if err := b.client.XAck(b.ctx, stream, group, msg.ID).Err(); err != nil {
					b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
				}
			}
		}
	}
}

func (b *RedisEventBus) process(eventType events.EventType, msg redis.XMessage) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.logger.Error("message without event field", "msg_id", msg.ID)
		return
	}
	_, evt, err := decodeEnvelope([]byte(raw))
	if err != nil {
		b.logger.Error("dropping undecodable message", "error", err, "msg_id", msg.ID)
		return
	}

	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[eventType]...)
	b.mu.RUnlock()

	if !executeHandlers(b.ctx, b.logger, eventType, evt, handlers, msg.ID) {
		b.pushToDLQ(eventType, msg.Values)
	}
}

func (b *RedisEventBus) pushToDLQ(eventType events.EventType, values map[string]any) {
	dlq := dlqStreamName(b.config.Stream, eventType)
	if err := b.client.XAdd(b.ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq, "event_type", eventType)
}

func (b *RedisEventBus) startDLQRetryWorker() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.config.DLQRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				b.retryDLQs()
			}
		}
	}()
}

// retryDLQs moves up to DLQBatchSize dead letters per registered type back
// onto their source stream.
func (b *RedisEventBus) retryDLQs() {
	b.mu.RLock()
	types := make([]events.EventType, 0, len(b.handlers))
	for et := range b.handlers {
		types = append(types, et)
	}
	b.mu.RUnlock()

	for _, et := range types {
		dlq := dlqStreamName(b.config.Stream, et)
		msgs, err := b.client.XRangeN(b.ctx, dlq, "-", "+", b.config.DLQBatchSize).Result()
		if err != nil {
			b.logger.Error("failed to read DLQ", "error", err, "stream", dlq)
			continue
		}
		for _, msg := range msgs {
			if err := b.client.XAdd(b.ctx, &redis.XAddArgs{
				Stream: streamNameFor(b.config.Stream, et),
				Values: msg.Values,
			}).Err(); err != nil {
				b.logger.Error("failed to republish DLQ message", "error", err, "msg_id", msg.ID)
				break
			}
			b.client.XDel(b.ctx, dlq, msg.ID)
		}
		if len(msgs) > 0 {
			b.logger.Info("🔁 DLQ messages replayed", "event_type", et, "count", len(msgs))
		}
	}
}

// DLQLen reports how many dead letters wait for eventType.
func (b *RedisEventBus) DLQLen(ctx context.Context, eventType events.EventType) (int64, error) {
	return b.client.XLen(ctx, dlqStreamName(b.config.Stream, eventType)).Result()
}

// Close stops consumers and the retry worker, then closes the client.
func (b *RedisEventBus) Close() error {
	if b == nil {
		return nil
	}
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
