package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
)

// writeBehind persists the most recent committed snapshot in the background.
// Intermediate versions are coalesced: only the latest pending snapshot is
// ever written. Failed writes are retried every interval.
type writeBehind struct {
	persister Persister
	interval  time.Duration
	logger    *slog.Logger

	saveMu  sync.Mutex
	mu      sync.Mutex
	pending *Snapshot
	saved   uint64
	lastErr error

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newWriteBehind(p Persister, interval time.Duration, logger *slog.Logger) *writeBehind {
	return &writeBehind{
		persister: p,
		interval:  interval,
		logger:    logger.With("component", "ledger-write-behind"),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *writeBehind) start() {
	go w.run()
}

func (w *writeBehind) schedule(s Snapshot) {
	w.mu.Lock()
	w.pending = &s
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writeBehind) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
		case <-ticker.C:
		}
		if err := w.saveLatest(context.Background()); err != nil {
			w.logger.Warn("Background ledger save failed, will retry", "error", err, "retry_in", w.interval)
		}
	}
}

// saveLatest writes the pending snapshot, if any. A snapshot scheduled while
// the write was in flight stays pending.
func (w *writeBehind) saveLatest(ctx context.Context) error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	snap := w.pending
	w.mu.Unlock()
	if snap == nil {
		return nil
	}

	data, err := Encode(*snap)
	if err == nil {
		err = w.persister.Save(ctx, data)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lastErr = &domain.PersistenceError{Op: "save", Err: err}
		return w.lastErr
	}
	if w.pending == snap {
		w.pending = nil
	}
	w.saved = snap.Version
	w.lastErr = nil
	w.logger.Debug("Ledger snapshot saved", "version", snap.Version)
	return nil
}

// flush writes any pending snapshot now and reports the outcome.
func (w *writeBehind) flush(ctx context.Context) error {
	return w.saveLatest(ctx)
}

// close stops the worker and makes a final save attempt.
func (w *writeBehind) close(ctx context.Context) error {
	close(w.stop)
	<-w.done
	return w.flush(ctx)
}

// status returns the last saved version and the last error, if any.
func (w *writeBehind) status() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved, w.lastErr
}
