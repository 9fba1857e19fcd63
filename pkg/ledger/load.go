package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/studentaid/internal/fixtures/seed"
)

// Seed decodes the embedded demo dataset.
func Seed() (Snapshot, error) {
	s, err := Decode(seed.Ledger())
	if err != nil {
		return Snapshot{}, fmt.Errorf("embedded seed: %w", err)
	}
	return s, nil
}

// Load returns the snapshot held by p when one exists and is well-formed,
// and fallback otherwise. It never fails: unreadable or malformed state is
// logged and treated as absent.
func Load(ctx context.Context, p Persister, fallback Snapshot, logger *slog.Logger) Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("context", "ledger.Load")
	data, err := p.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		log.Info("No persisted ledger found, using seed", "seed_version", fallback.Version)
		return fallback.Clone()
	case err != nil:
		log.Warn("Reading persisted ledger failed, using seed", "error", err)
		return fallback.Clone()
	}
	s, err := Decode(data)
	if err != nil {
		log.Warn("Persisted ledger is malformed, using seed", "error", err)
		return fallback.Clone()
	}
	log.Info("Persisted ledger loaded",
		"version", s.Version,
		"users", len(s.Users),
		"requests", len(s.Requests),
		"donations", len(s.Donations),
	)
	return s
}
