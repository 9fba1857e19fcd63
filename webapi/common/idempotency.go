package common

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/singleflight"
)

// IdempotencyHeader carries the client-chosen key of a retryable POST.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses served from the idempotency cache.
const ReplayedHeader = "Idempotent-Replayed"

const sweepEvery = 256

type storedResponse struct {
	status      int
	body        []byte
	contentType string
	at          time.Time
}

// IdempotencyStore remembers successful responses by key for ttl.
type IdempotencyStore struct {
	ttl      time.Duration
	mu       sync.Mutex
	done     map[string]storedResponse
	added    int
	inflight singleflight.Group
}

// NewIdempotencyStore creates a store. A non-positive ttl defaults to 24h.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{ttl: ttl, done: make(map[string]storedResponse)}
}

func (s *IdempotencyStore) lookup(key string) (storedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.done[key]
	if ok && time.Since(r.at) > s.ttl {
		delete(s.done, key)
		return storedResponse{}, false
	}
	return r, ok
}

// remember stores r and drops every expired entry once the map has grown
// by sweepEvery keys since the last sweep.
func (s *IdempotencyStore) remember(key string, r storedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[key] = r
	s.added++
	if s.added < sweepEvery {
		return
	}
	s.added = 0
	for k, v := range s.done {
		if r.at.Sub(v.at) > s.ttl {
			delete(s.done, k)
		}
	}
}

// Idempotent replays the first successful response for a repeated
// Idempotency-Key. Concurrent requests with the same key wait for the first
// one and receive its outcome. Failed responses are not remembered, so the
// client may retry. Requests without the header pass through.
//
// The key is scoped by the bearer token and the route, so two callers cannot
// collide on a key.
func Idempotent(store *IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientKey := c.Get(IdempotencyHeader)
		if clientKey == "" {
			return c.Next()
		}
		key := c.Get(fiber.HeaderAuthorization) + "|" + c.Method() + " " + c.Path() + "|" + clientKey
		if r, ok := store.lookup(key); ok {
			return replay(c, r)
		}

		leader := false
		v, err, _ := store.inflight.Do(key, func() (any, error) {
			// A previous leader may have finished since the lookup above.
			if r, ok := store.lookup(key); ok {
				return r, nil
			}
			leader = true
			if err := c.Next(); err != nil {
				return nil, err
			}
			resp := c.Response()
			r := storedResponse{
				status:      resp.StatusCode(),
				body:        append([]byte(nil), resp.Body()...),
				contentType: string(resp.Header.ContentType()),
				at:          time.Now(),
			}
			if r.status < fiber.StatusBadRequest {
				store.remember(key, r)
			}
			return r, nil
		})
		if leader {
			return err
		}
		if err != nil {
			return ProblemDetailsJSON(c, "Concurrent request failed", err)
		}
		return replay(c, v.(storedResponse))
	}
}

func replay(c *fiber.Ctx, r storedResponse) error {
	c.Set(ReplayedHeader, strconv.FormatBool(true))
	if r.contentType != "" {
		c.Set(fiber.HeaderContentType, r.contentType)
	}
	return c.Status(r.status).Send(r.body)
}
