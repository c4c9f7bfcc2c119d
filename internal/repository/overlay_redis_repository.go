package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// redisLockTTL bounds how long a crashed holder blocks other writers.
	// It must exceed the longest notification send made under the lock.
	redisLockTTL     = time.Minute
	redisLockRetry   = 25 * time.Millisecond
	redisReleaseWait = 5 * time.Second
)

// releaseLock deletes the lock only while it still carries our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisOverlayStore struct {
	client *redis.Client
	key    string
}

// NewRedisOverlayStore keeps the overlay as one JSON value under key. A
// single SET replaces it atomically. Writers hold "<key>:lock", taken with
// SET NX.
func NewRedisOverlayStore(client *redis.Client, key string) OverlayStore {
	return &redisOverlayStore{client: client, key: key}
}

func (s *redisOverlayStore) Lock(ctx context.Context) (func() error, error) {
	lockKey := s.key + ":lock"
	token := uuid.NewString()
	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, redisLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis lock %s: %w", lockKey, ctx.Err())
		case <-time.After(redisLockRetry):
		}
	}
	return func() error {
		releaseCtx, cancel := context.WithTimeout(context.Background(), redisReleaseWait)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, s.client, []string{lockKey}, token).Err(); err != nil {
			return fmt.Errorf("redis unlock %s: %w", lockKey, err)
		}
		return nil
	}, nil
}

func (s *redisOverlayStore) Load(ctx context.Context) (OverlayState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OverlayState{}, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	state := OverlayState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode overlay %s: %w", s.key, err)
	}
	return state, nil
}

func (s *redisOverlayStore) Save(ctx context.Context, state OverlayState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode overlay: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
