package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/ethos/pkg/metrics"
)

// MemoryStore keeps state in a map. State is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]CharacterState
	metrics *metrics.Manager
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{states: make(map[string]CharacterState)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, characterID string) (st CharacterState, err error) {
	defer s.observe("get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return CharacterState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[characterID]
	if !ok {
		return CharacterState{}, ErrNotFound
	}
	return clone(st), nil
}

func (s *MemoryStore) Put(ctx context.Context, state CharacterState) (err error) { //nolint:gocritic // hugeParam: stored by value
	defer s.observe("put", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.CharacterID == "" {
		return ErrEmptyCharacterID
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.CharacterID] = clone(state)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, characterID string) (err error) {
	defer s.observe("delete", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[characterID]; !ok {
		return ErrNotFound
	}
	delete(s.states, characterID)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (n int, err error) {
	defer s.observe("count", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) observe(op string, start time.Time, err *error) {
	var e error
	if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) {
		e = *err
	}
	s.metrics.RecordStore(op, float64(time.Since(start).Microseconds())/1000, e)
}

func clone(st CharacterState) CharacterState { //nolint:gocritic // hugeParam
	st.Baseline = st.Baseline.Clone()
	st.Current = st.Current.Clone()
	return st
}
