package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gwi.com/drive-agent/internal/core"
)

const keyPrefix = "drive-agent:session:"

// RedisStore keeps session state in Redis so several server instances can share it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (core.State, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Idle(), nil
	}
	if err != nil {
		return core.State{}, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	var state core.State
	if err := json.Unmarshal(data, &state); err != nil {
		return core.State{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state core.State) error {
	key := keyPrefix + sessionID
	if state.Phase == core.PhaseIdle {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del session %s: %w", sessionID, err)
		}
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ core.StateStore = (*RedisStore)(nil)
