package inventory

import "sync/atomic"

// Store holds the live snapshot. Replace swaps it in one atomic assignment;
// in-flight readers keep whatever snapshot they already loaded.
type Store struct {
	current atomic.Pointer[Index]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewEmptyIndex())
	return s
}

func (s *Store) Replace(idx *Index) {
	if idx == nil {
		return
	}
	s.current.Store(idx)
}

func (s *Store) Current() *Index {
	return s.current.Load()
}
