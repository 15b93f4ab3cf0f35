package redisrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix   = "LOCK:"
	resultPrefix = "RES:"
)

// releaseIfOwner deletes the key only while it still holds our lock token,
// so an expired lock taken over by another writer is left alone.
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock takes key for lockTTL. The returned token must be passed to
// Release; ok is false when another writer holds the key or a result is
// already stored under it.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (token string, ok bool, err error) {
	token = lockPrefix + uuid.NewString()

	ok, err = s.rdb.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil || !ok {
		return "", false, err
	}

	return token, true, nil
}

// SaveResult replaces the lock with the final response payload.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	return s.rdb.Set(ctx, key, resultPrefix+jsonPayload, s.ttl).Err()
}

// GetResult returns the stored payload; a held lock reads as no result.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, resultPrefix) {
		return strings.TrimPrefix(v, resultPrefix), true, nil
	}

	return "", false, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key, token string) error {
	return releaseIfOwner.Run(ctx, s.rdb, []string{key}, token).Err()
}
