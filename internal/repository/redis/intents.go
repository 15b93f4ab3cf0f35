package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
	redisx "github.com/u3m2a1/nibog-sub001/internal/redis"
	"github.com/u3m2a1/nibog-sub001/internal/repository"
)

// IntentStore stages booking intents between checkout and payment
// resolution. Entries expire on their own when a checkout is abandoned.
type IntentStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIntentStore(rdb *redis.Client, ttl time.Duration) *IntentStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &IntentStore{rdb: rdb, ttl: ttl}
}

// Save stages intent under its transaction id.
//
// Returns:
//   - error: repository.ErrConflict if an intent is already staged for the id.
func (s *IntentStore) Save(ctx context.Context, intent *domain.TransactionIntent) error {
	const op = "redisrepo.IntentStore.Save"

	if intent.TransactionID == "" {
		return fmt.Errorf("%s: empty transaction id", op)
	}

	b, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.rdb.SetNX(ctx, redisx.KeyIntent(intent.TransactionID), b, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

// Get loads the staged intent.
//
// Returns:
//   - error: repository.ErrNotFound if nothing is staged or the entry expired.
func (s *IntentStore) Get(ctx context.Context, transactionID string) (*domain.TransactionIntent, error) {
	const op = "redisrepo.IntentStore.Get"

	b, err := s.rdb.Get(ctx, redisx.KeyIntent(transactionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var intent domain.TransactionIntent
	if err := json.Unmarshal(b, &intent); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	return &intent, nil
}

// Delete removes the staged intent. A missing entry is not an error, so
// concurrent resolvers can both call it.
func (s *IntentStore) Delete(ctx context.Context, transactionID string) error {
	const op = "redisrepo.IntentStore.Delete"

	if err := s.rdb.Del(ctx, redisx.KeyIntent(transactionID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
