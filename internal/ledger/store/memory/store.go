// Package memory is an in-process ledger backend. It keeps every key's
// latest value and version behind one lock, which is enough to make Apply
// atomic for a single process.
package memory

import (
	"context"
	"sort"
	"sync"

	"propreg/internal/ledger"
	"propreg/pkg/platform/sentinel"
)

type entry struct {
	value   []byte
	version uint64
	live    bool
}

// Store implements ledger.Backend.
type Store struct {
	mu    sync.RWMutex
	state map[string]entry
}

func New() *Store {
	return &Store{state: make(map[string]entry)}
}

func (s *Store) Read(_ context.Context, key string) (ledger.Versioned, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state[key]
	if !ok {
		return ledger.Versioned{}, nil
	}
	return ledger.Versioned{Value: cloneBytes(e.value), Version: e.version, Found: e.live}, nil
}

func (s *Store) Apply(ctx context.Context, reads map[string]uint64, writes []ledger.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range reads {
		if s.state[key].version != version {
			return sentinel.ErrConflict
		}
	}
	for _, m := range writes {
		e := s.state[m.Key]
		e.version++
		switch m.Op {
		case ledger.OpPut:
			e.value = cloneBytes(m.Value)
			e.live = true
		case ledger.OpDelete:
			e.value = nil
			e.live = false
		}
		s.state[m.Key] = e
	}
	return nil
}

// Keys lists live keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.state))
	for k, e := range s.state {
		if e.live {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
