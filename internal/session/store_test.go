package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoBinding)

	require.NoError(t, s.Set(ctx, "sid-1", "persona-a"))
	require.NoError(t, s.Set(ctx, "sid-1", "persona-b"))
	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "persona-b", got, "a session holds at most one active persona")

	_, err = s.Get(ctx, "sid-2")
	assert.ErrorIs(t, err, ErrNoBinding)

	require.NoError(t, s.Delete(ctx, "sid-1"))
	require.NoError(t, s.Delete(ctx, "sid-1"))
	_, err = s.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoBinding)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Hour))
}

func TestRedisStore_BindingExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid", "p"))
	assert.Equal(t, time.Minute, mr.TTL("session:active:sid"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "sid")
	assert.ErrorIs(t, err, ErrNoBinding)
}
