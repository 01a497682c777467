package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"gwi.com/drive-agent/internal/core"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	state, err := s.Load(ctx, "unknown")
	require.NoError(t, err)
	require.Equal(t, core.Idle(), state)

	require.NoError(t, s.Save(ctx, "a", core.AwaitingConfirmation("what is x?")))
	state, err = s.Load(ctx, "a")
	require.NoError(t, err)
	q, ok := state.Pending()
	require.True(t, ok)
	require.Equal(t, "what is x?", q)

	other, err := s.Load(ctx, "b")
	require.NoError(t, err)
	_, ok = other.Pending()
	require.False(t, ok)

	require.NoError(t, s.Save(ctx, "a", core.Idle()))
	state, err = s.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, core.PhaseIdle, state.Phase)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(20 * time.Millisecond)
	require.NoError(t, s.Save(ctx, "a", core.AwaitingConfirmation("q")))

	require.Eventually(t, func() bool {
		state, err := s.Load(ctx, "a")
		return err == nil && state.Phase == core.PhaseIdle
	}, time.Second, 10*time.Millisecond)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewRedisStoreWithClient(client, time.Minute)
	_, err := s.Load(context.Background(), "a")
	require.Error(t, err)
	require.Error(t, s.Save(context.Background(), "a", core.AwaitingConfirmation("q")))
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", time.Minute)
	require.Error(t, err)
}
