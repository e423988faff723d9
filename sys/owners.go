package sys

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// OwnerSet is the privileged-bypass predicate shared by every gate.
type OwnerSet struct {
	mu  sync.RWMutex
	ids map[snowflake.ID]struct{}
}

func NewOwnerSet(ids ...snowflake.ID) *OwnerSet {
	s := &OwnerSet{ids: make(map[snowflake.ID]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

func (s *OwnerSet) Add(ids ...snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id != 0 {
			s.ids[id] = struct{}{}
		}
	}
}

func (s *OwnerSet) IsOwner(id snowflake.ID) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}
