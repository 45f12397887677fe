// Package convo holds per-client conversation history. The store is the
// single owner of turn sequences; callers only ever see copies.
package convo

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("convo: no conversation for client")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role
	Content string
}

type Store struct {
	mu       sync.Mutex
	byClient map[string][]Turn
}

func NewStore() *Store {
	return &Store{byClient: make(map[string][]Turn)}
}

// Create resets the client's history to empty. Idempotent; creating over an
// existing conversation replaces it.
func (s *Store) Create(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClient[clientID] = nil
}

func (s *Store) Append(clientID string, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.byClient[clientID]
	if !ok {
		return ErrNotFound
	}
	s.byClient[clientID] = append(turns, t)
	return nil
}

// PopLastIf removes the last turn iff pred accepts it. Returns the removed
// turn and whether a removal happened. Missing client or empty history is a
// no-op.
func (s *Store) PopLastIf(clientID string, pred func(Turn) bool) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.byClient[clientID]
	if !ok || len(turns) == 0 {
		return Turn{}, false
	}
	last := turns[len(turns)-1]
	if !pred(last) {
		return Turn{}, false
	}
	s.byClient[clientID] = turns[:len(turns)-1]
	return last, true
}

// Snapshot returns a copy of the ordered history. Callers may retain it; it
// never aliases store-owned memory.
func (s *Store) Snapshot(clientID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.byClient[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) Destroy(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byClient, clientID)
}
