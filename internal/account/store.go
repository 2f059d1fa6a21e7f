package account

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store is the shell's live registry of user account snapshots, fed by the
// ingestion workers and read by the margin-check loop. The engine itself
// only ever sees copies.
type Store struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: make(map[uuid.UUID]*User)}
}

// Upsert installs a user snapshot.
func (s *Store) Upsert(id uuid.UUID, u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[id] = &cp
}

// Get returns a copy of the user, if known.
func (s *Store) Get(id uuid.UUID) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// IDs returns all known user IDs in stable order, for sweep loops.
func (s *Store) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Len returns the number of tracked users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
