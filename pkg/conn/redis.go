package conn

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

type RedisOption struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and pings once. The caller owns Close.
func NewRedis(ctx context.Context, option RedisOption) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         option.Addr,
		Password:     option.Password,
		DB:           option.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis").With("addr", option.Addr)
	}

	return client, nil
}
