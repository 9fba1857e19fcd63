//go:build kafka

// Command kafka_smoketest publishes a donation event through the Kafka event
// bus and waits for it to come back, to check a local broker setup.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infraeventbus "github.com/amirasaad/studentaid/infra/eventbus"
	"github.com/amirasaad/studentaid/pkg/domain/events"
	"github.com/shopspring/decimal"
)

// RunSmokeTest round-trips one DonationRecorded event through the brokers.
func RunSmokeTest(ctx context.Context, logger *slog.Logger) error {
	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	cfg := infraeventbus.DefaultKafkaEventBusConfig()
	if groupID := strings.TrimSpace(os.Getenv("GROUP_ID")); groupID != "" {
		cfg.GroupID = groupID
	}
	cfg.GroupID += "-smoketest-" + time.Now().Format("20060102150405")

	bus, err := infraeventbus.NewWithKafka(brokers, logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	sent := &events.DonationRecorded{
		Meta:         events.NewMeta(0, time.Now().UTC()),
		DonationID:   "d_smoketest",
		RequestID:    "r_smoketest",
		DonorID:      "u_smoketest",
		Amount:       decimal.NewFromInt(1),
		AmountRaised: decimal.NewFromInt(1),
	}
	received := make(chan events.Event, 1)
	bus.Register(events.EventTypeDonationRecorded, func(_ context.Context, e events.Event) error {
		if e.(*events.DonationRecorded).EventID() == sent.EventID() {
			select {
			case received <- e:
			default:
			}
		}
		return nil
	})

	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "event_id", sent.EventID())

	select {
	case e := <-received:
		logger.Info("consumed", "event_id", e.(*events.DonationRecorded).EventID())
	case <-ctx.Done():
		return errors.New("timed out waiting for the event to be consumed")
	}
	logger.Info("kafka smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := RunSmokeTest(ctx, logger); err != nil {
		logger.Error("kafka smoke test failed", "error", err)
		os.Exit(1)
	}
}
