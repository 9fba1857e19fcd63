// Package initializer builds the application dependencies from configuration.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	infraeventbus "github.com/amirasaad/studentaid/infra/eventbus"
	"github.com/amirasaad/studentaid/infra/persistence"
	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/eventbus"
	"github.com/amirasaad/studentaid/pkg/ledger"
)

// InitializeDependencies opens the ledger store and the event bus described
// by cfg. cleanup closes them in reverse order and must be called once the
// application stops.
func InitializeDependencies(ctx context.Context, cfg *config.App) (
	deps *app.Deps,
	cleanup func(context.Context) error,
	err error,
) {
	return initialize(ctx, cfg, os.Stdout)
}

// InitializeDependenciesWithLogOutput is InitializeDependencies with the log
// written to out instead of stdout.
func InitializeDependenciesWithLogOutput(ctx context.Context, cfg *config.App, out io.Writer) (
	deps *app.Deps,
	cleanup func(context.Context) error,
	err error,
) {
	return initialize(ctx, cfg, out)
}

func initialize(ctx context.Context, cfg *config.App, out io.Writer) (
	deps *app.Deps,
	cleanup func(context.Context) error,
	err error,
) {
	logger := setupLogger(cfg.Log, out)
	if cfg.Ledger == nil {
		cfg.Ledger = &config.Ledger{Backend: config.BackendMemory}
	}
	var closers []func(context.Context) error
	closeAll := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			_ = closeAll(ctx)
		}
	}()

	persister, closePersister, err := initPersister(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize ledger persistence: %w", err)
	}
	if closePersister != nil {
		closers = append(closers, closePersister)
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Ledger.WriteBehind {
		opts = append(opts, ledger.WithWriteBehind(cfg.Ledger.RetryInterval))
	}
	store, err := ledger.Open(ctx, persister, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	closers = append(closers, store.Close)

	bus, closeBus, err := initEventBus(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if closeBus != nil {
		closers = append(closers, closeBus)
	}

	deps = &app.Deps{
		Store:    store,
		EventBus: bus,
		Logger:   logger,
	}
	return deps, closeAll, nil
}

// initPersister selects the ledger backend named by cfg.Ledger.Backend.
func initPersister(ctx context.Context, cfg *config.App, logger *slog.Logger) (
	ledger.Persister,
	func(context.Context) error,
	error,
) {
	lc := cfg.Ledger
	logger.Info("Initializing ledger persistence", "backend", lc.Backend, "key", lc.Key)
	switch lc.Backend {
	case config.BackendMemory, "":
		return ledger.NewMemoryPersister(), nil, nil
	case config.BackendFile:
		p, err := persistence.NewFilePersister(lc.FilePath, lc.Key)
		return p, nil, err
	case config.BackendPostgres:
		db, err := persistence.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		if err := persistence.Migrate(db, cfg.DB.MigrationPath); err != nil {
			_ = closeDB(ctx)
			return nil, nil, err
		}
		return persistence.NewPostgresPersister(db, lc.Key), closeDB, nil
	case config.BackendRedis:
		client, err := persistence.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewRedisPersister(client, cfg.Redis.KeyPrefix, lc.Key),
			func(context.Context) error { return client.Close() }, nil
	case config.BackendS3:
		client, err := persistence.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewS3Persister(client, cfg.S3.Bucket, lc.Key), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ledger backend %q", lc.Backend)
	}
}

// initEventBus selects the bus named by cfg.EventBus.Driver. When a broker
// is configured but unreachable the in-memory asynchronous bus is used so
// the ledger stays writable.
func initEventBus(cfg *config.App, logger *slog.Logger) (
	eventbus.Bus,
	func(context.Context) error,
	error,
) {
	memory := func() (eventbus.Bus, func(context.Context) error, error) {
		bus := infraeventbus.NewWithMemoryAsync(logger, 256)
		return bus, func(context.Context) error { bus.Close(); return nil }, nil
	}

	ec := cfg.EventBus
	if ec == nil {
		return memory()
	}
	switch ec.Driver {
	case config.BusMemory, "":
		return memory()
	case config.BusRedis:
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, fmt.Errorf("event bus driver redis requires REDIS_URL")
		}
		bus, err := infraeventbus.NewWithRedis(cfg.Redis.URL, logger, &infraeventbus.RedisEventBusConfig{
			Stream:           ec.Stream,
			Group:            ec.GroupID,
			DLQRetryInterval: ec.DLQRetryInterval,
			DLQBatchSize:     int64(ec.DLQBatchSize),
		})
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory", "error", err)
			return memory()
		}
		return bus, func(context.Context) error { return bus.Close() }, nil
	case config.BusKafka:
		if ec.Brokers == "" {
			return nil, nil, fmt.Errorf("event bus driver kafka requires EVENT_BUS_BROKERS")
		}
		bus, err := infraeventbus.NewWithKafka(ec.Brokers, logger, &infraeventbus.KafkaEventBusConfig{
			GroupID:          ec.GroupID,
			TopicPrefix:      ec.TopicPrefix,
			DLQRetryInterval: ec.DLQRetryInterval,
			DLQBatchSize:     ec.DLQBatchSize,
		})
		if err != nil {
			logger.Warn("Kafka event bus unavailable, falling back to memory", "error", err)
			return memory()
		}
		return bus, func(context.Context) error { return bus.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus driver %q", ec.Driver)
	}
}
