package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// PoolSize of 0 keeps the go-redis default of 10 per CPU.
	PoolSize int
}

const pingTimeout = 3 * time.Second

// New connects to Redis and fails fast when the server is unreachable.
// Locks, intents, the rate limiter and the ticket cache all share the
// returned client.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redisx.New"

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(err, rdb.Close()))
	}

	return rdb, nil
}
