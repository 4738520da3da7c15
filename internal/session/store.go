package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 24 * time.Hour

type entry struct {
	mu  sync.Mutex
	ctx Context
}

// Store maps user identities to Contexts. Access to one user's Context is
// serialized by a per-entry lock; different users never contend beyond the
// short lookup.
type Store struct {
	mu    sync.Mutex
	items *cache.Cache
	log   *zap.Logger
}

// NewStore creates a Store whose entries expire after idleTTL without use.
func NewStore(idleTTL time.Duration, log *zap.Logger) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	cleanup := idleTTL / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	s := &Store{
		items: cache.New(idleTTL, cleanup),
		log:   log,
	}
	s.items.OnEvicted(func(userID string, _ interface{}) {
		s.log.Debug("session expired", zap.String("user", userID))
	})
	return s
}

// acquire returns the entry for userID, creating it on first use, and
// pushes its expiry forward.
func (s *Store) acquire(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e *entry
	if v, ok := s.items.Get(userID); ok {
		e = v.(*entry)
	} else {
		e = &entry{}
	}
	s.items.Set(userID, e, cache.DefaultExpiration)
	return e
}

// With runs fn with exclusive access to the user's Context.
func (s *Store) With(userID string, fn func(*Context)) {
	e := s.acquire(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.ctx)
}

// Peek returns a snapshot of an existing session without creating one or
// touching its expiry.
func (s *Store) Peek(userID string) (Snapshot, bool) {
	v, ok := s.items.Get(userID)
	if !ok {
		return Snapshot{}, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Snapshot(), true
}

func (s *Store) Delete(userID string) {
	s.items.Delete(userID)
}

// Len counts live sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Sweep drops expired sessions now instead of waiting for the janitor.
func (s *Store) Sweep() {
	s.items.DeleteExpired()
}
