package statestore

import "sync"

// MemoryStore keeps checkpoints in process memory. Used by tests and by
// nodes running with persistence disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	byH    map[uint64]*Checkpoint
	latest uint64
	any    bool
	closed bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{byH: make(map[uint64]*Checkpoint)}
}

func (s *MemoryStore) Save(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.byH[cp.Height] = cp
	if !s.any || cp.Height >= s.latest {
		s.latest = cp.Height
		s.any = true
	}
	return nil
}

func (s *MemoryStore) Load(height uint64) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	cp, ok := s.byH[height]
	if !ok {
		return nil, ErrNotFound
	}
	return cp, nil
}

func (s *MemoryStore) Latest() (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if !s.any {
		return nil, ErrNotFound
	}
	return s.byH[s.latest], nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
