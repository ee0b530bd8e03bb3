package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"

	"cryptoflow/pkg/exception"
)

const (
	defaultMirrorPrefix = "cryptoflow:cache:"
	defaultMirrorTTL    = 10 * time.Minute
)

// RedisMirror keeps encoded cache payloads in Redis so a restarted process
// can serve a warm initial snapshot.
type RedisMirror struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisMirror(rdb redis.UniversalClient, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = defaultMirrorTTL
	}
	return &RedisMirror{rdb: rdb, prefix: defaultMirrorPrefix, ttl: ttl}
}

func (m *RedisMirror) Save(ctx context.Context, key string, payload []byte) error {
	if err := m.rdb.Set(ctx, m.prefix+key, payload, m.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set").With("key", key)
	}
	return nil
}

func (m *RedisMirror) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := m.rdb.Get(ctx, m.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(exception.ErrMirrorMiss, key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get").With("key", key)
	}
	return b, nil
}
