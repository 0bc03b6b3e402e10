package todo

import "sync"

// Store holds one todo list per session.
type Store struct {
	mu    sync.RWMutex
	lists map[string][]Todo
}

func NewStore() *Store {
	return &Store{lists: make(map[string][]Todo)}
}

// Read returns a copy of the session's list.
func (s *Store) Read(sessionID string) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.lists[sessionID]
	out := make([]Todo, len(src))
	copy(out, src)
	return out
}

// Write replaces the session's list with a copy of todos.
func (s *Store) Write(sessionID string, todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(todos) == 0 {
		delete(s.lists, sessionID)
		return
	}
	s.lists[sessionID] = append([]Todo(nil), todos...)
}
