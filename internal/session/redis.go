package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 绑定以 session:active:<sid> 存放，随会话 TTL 过期
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func activeKey(sessionID string) string { return fmt.Sprintf("session:active:%s", sessionID) }

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	id, err := s.client.Get(ctx, activeKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoBinding
	}
	if err != nil {
		return "", fmt.Errorf("get active persona: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, personaID string) error {
	if err := s.client.Set(ctx, activeKey(sessionID), personaID, s.ttl).Err(); err != nil {
		return fmt.Errorf("set active persona: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, activeKey(sessionID)).Err()
}
