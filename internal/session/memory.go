// Package session stores per-session conversation state.
package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"gwi.com/drive-agent/internal/core"
)

// MemoryStore keeps session state in process memory. Sessions expire after ttl of
// inactivity.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (core.State, error) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(core.State), nil
	}
	return core.Idle(), nil
}

// Save stores state; an Idle state simply forgets the session.
func (s *MemoryStore) Save(_ context.Context, sessionID string, state core.State) error {
	if state.Phase == core.PhaseIdle {
		s.cache.Delete(sessionID)
		return nil
	}
	s.cache.Set(sessionID, state, cache.DefaultExpiration)
	return nil
}

var _ core.StateStore = (*MemoryStore)(nil)
