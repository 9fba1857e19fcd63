package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/redis/go-redis/v9"
)

// RedisPersister stores the document as a single string value.
type RedisPersister struct {
	client redis.Cmdable
	key    string
}

// NewRedisClient builds a client from cfg and checks connectivity.
func NewRedisClient(ctx context.Context, cfg *config.Redis) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.PoolSize = cfg.PoolSize
	opt.DialTimeout = cfg.DialTimeout
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisPersister returns a persister writing to prefix+key.
func NewRedisPersister(client redis.Cmdable, prefix, key string) *RedisPersister {
	return &RedisPersister{client: client, key: prefix + key}
}

func (p *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ledger.ErrNoSnapshot
	}
	return data, err
}

func (p *RedisPersister) Save(ctx context.Context, data []byte) error {
	return p.client.Set(ctx, p.key, data, 0).Err()
}

var _ ledger.Persister = (*RedisPersister)(nil)
