package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore 单进程部署与测试使用
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStore{c: cache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	v, ok := s.c.Get(sessionID)
	if !ok {
		return "", ErrNoBinding
	}
	return v.(string), nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID, personaID string) error {
	s.c.SetDefault(sessionID, personaID)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.c.Delete(sessionID)
	return nil
}
