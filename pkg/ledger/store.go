// Package ledger holds the authoritative state of the aid ledger: users,
// requests, donations and admin logs. All mutations go through Store.Do,
// which serializes writers, persists the new snapshot and publishes it to
// subscribers.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/studentaid/pkg/domain"
	"github.com/amirasaad/studentaid/pkg/domain/user"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("ledger store is closed")

// Store is the single mutable authority over the ledger.
type Store struct {
	writeMu sync.Mutex // serializes load-modify-persist
	mu      sync.RWMutex
	current Snapshot
	closed  bool

	persister Persister
	broker    *broker
	wb        *writeBehind
	clock     func() time.Time
	logger    *slog.Logger
	seed      *Snapshot
	interval  time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSeed replaces the embedded seed used when nothing is persisted.
func WithSeed(seed Snapshot) Option {
	return func(s *Store) { s.seed = &seed }
}

// WithWriteBehind makes commits visible before they are durable. A
// background writer persists the latest snapshot and retries failures every
// interval; Flush and Close report the last failure.
func WithWriteBehind(interval time.Duration) Option {
	return func(s *Store) { s.interval = interval }
}

// Open loads the ledger from p, falling back to the seed, and returns a
// ready Store. A nil persister keeps state in memory only.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persister: p,
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.persister == nil {
		s.persister = NewMemoryPersister()
	}
	s.logger = s.logger.With("component", "ledger")

	seed := Snapshot{}
	if s.seed != nil {
		seed = *s.seed
	} else {
		var err error
		if seed, err = Seed(); err != nil {
			return nil, err
		}
	}

	s.current = Load(ctx, s.persister, seed, s.logger)
	s.broker = newBroker(s.current, s.logger)
	if s.interval > 0 {
		s.wb = newWriteBehind(s.persister, s.interval, s.logger)
		s.wb.start()
	}
	s.logger.Info("Ledger opened", "version", s.current.Version, "write_behind", s.wb != nil)
	return s, nil
}

// Snapshot returns a private copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Version returns the current snapshot version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Version
}

// FindUserByEmail performs a case-insensitive exact match.
func (s *Store) FindUserByEmail(email string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.UserByEmail(email)
}

// Do runs fn against a working copy of the ledger and commits the result.
//
// If fn returns an error nothing changes. Otherwise the new snapshot gets
// the next version and is persisted; in the default mode a persistence
// failure is returned as a domain.PersistenceError and the in-memory state
// is left as it was. With write-behind the snapshot becomes visible first
// and durability follows. Subscribers are notified after the swap.
func (s *Store) Do(ctx context.Context, fn func(tx *Tx) error) (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	closed, base := s.closed, s.current
	s.mu.RUnlock()
	if closed {
		return Snapshot{}, ErrClosed
	}

	tx := newTx(base.Clone(), s.now(base.UpdatedAt))
	if err := fn(tx); err != nil {
		return Snapshot{}, err
	}
	if !tx.dirty {
		return base.Clone(), nil
	}
	next := tx.commit()

	if s.wb == nil {
		if err := s.save(ctx, next); err != nil {
			s.logger.Error("Ledger commit not persisted", "version", next.Version, "error", err)
			return Snapshot{}, err
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	if s.wb != nil {
		s.wb.schedule(next)
	}
	s.broker.publish(next)
	return next.Clone(), nil
}

func (s *Store) save(ctx context.Context, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return &domain.PersistenceError{Op: "encode", Err: err}
	}
	if err := s.persister.Save(ctx, data); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// now never goes backwards relative to the last commit, so admin log
// timestamps are non-decreasing even if the wall clock steps back.
func (s *Store) now(last time.Time) time.Time {
	t := s.clock().UTC()
	if t.Before(last) {
		return last
	}
	return t
}

// Flush forces any pending background write and returns its outcome. In
// the default mode every commit is already durable and Flush is a no-op.
func (s *Store) Flush(ctx context.Context) error {
	if s.wb == nil {
		return nil
	}
	return s.wb.flush(ctx)
}

// Durability reports the last version known to be persisted and the last
// background write error. In the default mode it is the current version.
func (s *Store) Durability() (uint64, error) {
	if s.wb == nil {
		return s.Version(), nil
	}
	return s.wb.status()
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.broker.count()
}

// Close stops subscriptions and, with write-behind, makes a final save.
// Further calls to Do fail with ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.broker.close()
	if s.wb != nil {
		if err := s.wb.close(ctx); err != nil {
			s.logger.Error("Final ledger save failed", "error", err)
			return err
		}
	}
	s.logger.Info("Ledger closed", "version", s.Version())
	return nil
}
