package ledger

import (
	"context"
	"log/slog"
	"sync"
)

// broker fans committed snapshots out to subscribers. Each subscriber owns a
// goroutine and a one-slot mailbox: a newer snapshot replaces an undelivered
// older one, so slow subscribers skip ahead instead of blocking commits.
type broker struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	latest Snapshot
	nextID uint64
	closed bool
	logger *slog.Logger
}

type subscriber struct {
	id      uint64
	mailbox chan Snapshot
	done    chan struct{}
	once    sync.Once
	fn      func(Snapshot)
	onExit  func()
	logger  *slog.Logger
}

func newBroker(initial Snapshot, logger *slog.Logger) *broker {
	return &broker{
		subs:   make(map[uint64]*subscriber),
		latest: initial,
		logger: logger.With("component", "ledger-broker"),
	}
}

// subscribe registers fn and queues the latest published snapshot as its
// first delivery. Taking both under b.mu leaves no gap for a commit to slip
// through unobserved.
func (b *broker) subscribe(fn func(Snapshot), onExit func()) (*subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{
		id:      b.nextID,
		mailbox: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		fn:      fn,
		onExit:  onExit,
		logger:  b.logger.With("subscriber", b.nextID),
	}
	if b.closed {
		sub.stop()
		go sub.run()
		return sub, func() {}
	}
	b.subs[sub.id] = sub
	sub.offer(b.latest)
	go sub.run()

	return sub, func() {
		b.mu.Lock()
		delete(b.subs, sub.id)
		b.mu.Unlock()
		sub.stop()
	}
}

// publish offers s to every subscriber. Called in commit order.
func (b *broker) publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = s
	for _, sub := range b.subs {
		sub.offer(s)
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}
}

func (b *broker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// offer never blocks: it replaces a pending undelivered snapshot. Only the
// broker sends on the mailbox, under b.mu.
func (s *subscriber) offer(snap Snapshot) {
	select {
	case s.mailbox <- snap:
		return
	default:
	}
	select {
	case <-s.mailbox:
	default:
	}
	select {
	case s.mailbox <- snap:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	if s.onExit != nil {
		defer s.onExit()
	}
	var (
		last      uint64
		delivered bool
	)
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.mailbox:
			if delivered && snap.Version <= last {
				continue
			}
			select {
			case <-s.done:
				return
			default:
			}
			last, delivered = snap.Version, true
			s.deliver(snap)
		}
	}
}

func (s *subscriber) deliver(snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in ledger subscriber", "version", snap.Version, "panic", r)
		}
	}()
	s.fn(snap.Clone())
}

// Subscribe delivers the current snapshot to fn, then every later version.
// fn runs on a goroutine owned by the subscription; deliveries are never
// older than one already made. The returned cancel stops delivery and is
// safe to call more than once.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	_, cancel = s.broker.subscribe(fn, nil)
	return cancel
}

// Watch is the channel form of Subscribe. The channel is closed when ctx is
// done or the store closes. Intermediate versions may be skipped if the
// reader falls behind.
func (s *Store) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot)
	var sub *subscriber
	ready := make(chan struct{})
	send := func(snap Snapshot) {
		<-ready
		select {
		case ch <- snap:
		case <-ctx.Done():
		case <-sub.done:
		}
	}
	sub, cancel := s.broker.subscribe(send, func() { close(ch) })
	close(ready)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return ch
}
