package permission

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStoreCapacity is the per-session bound on remembered decisions.
const DefaultStoreCapacity = 100

// MemoryStore remembers Allow/Deny decisions per session in memory.
// Each session holds at most capacity entries and evicts the least recently
// used one on overflow. Sessions are locked independently.
type MemoryStore struct {
	capacity int

	mu       sync.Mutex
	sessions map[string]*shard
}

type shard struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Decision]
	// cleared is set once Clear has unregistered the shard; writers retry
	// against a fresh shard.
	cleared bool
}

// NewMemoryStore returns a store bounded to capacity decisions per session.
// A non-positive capacity selects DefaultStoreCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		sessions: make(map[string]*shard),
	}
}

func (s *MemoryStore) shard(sessionID string, create bool) (*shard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sessions[sessionID]
	if !ok && create {
		cache, err := lru.New[string, Decision](s.capacity)
		if err != nil {
			return nil, err
		}
		sh = &shard{cache: cache}
		s.sessions[sessionID] = sh
	}
	return sh, nil
}

// Save remembers d under (sessionID, key). Ask is rejected with ErrInvalidDecision.
func (s *MemoryStore) Save(sessionID, key string, d Decision) error {
	if d != Allow && d != Deny {
		return ErrInvalidDecision
	}
	sh, err := s.shard(sessionID, true)
	if err != nil {
		return err
	}
	return s.saveTo(sh, sessionID, key, d)
}

// saveTo writes into sh, moving to the session's current shard if a Clear
// unregistered sh after it was looked up.
func (s *MemoryStore) saveTo(sh *shard, sessionID, key string, d Decision) error {
	for {
		sh.mu.Lock()
		if !sh.cleared {
			sh.cache.Add(key, d)
			sh.mu.Unlock()
			return nil
		}
		sh.mu.Unlock()

		var err error
		if sh, err = s.shard(sessionID, true); err != nil {
			return err
		}
	}
}

// Get returns the remembered decision and marks it recently used.
func (s *MemoryStore) Get(sessionID, key string) (Decision, bool) {
	sh, _ := s.shard(sessionID, false)
	if sh == nil {
		return Deny, false
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	d, ok := sh.cache.Get(key)
	if !ok {
		return Deny, false
	}
	return d, true
}

// GetAll returns a copy of the session's remembered decisions without
// touching their recency.
func (s *MemoryStore) GetAll(sessionID string) map[string]Decision {
	out := map[string]Decision{}
	sh, _ := s.shard(sessionID, false)
	if sh == nil {
		return out
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, k := range sh.cache.Keys() {
		if d, ok := sh.cache.Peek(k); ok {
			out[k] = d
		}
	}
	return out
}

// Clear forgets every decision for the session.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	sh, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}
	sh.mu.Lock()
	sh.cleared = true
	sh.cache.Purge()
	sh.mu.Unlock()
}

// Revoke forgets one decision.
func (s *MemoryStore) Revoke(sessionID, key string) {
	sh, _ := s.shard(sessionID, false)
	if sh == nil {
		return
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.cache.Remove(key)
}
