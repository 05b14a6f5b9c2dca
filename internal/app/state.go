package app

import (
	"sync"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// stateTable maps signal names to their activation state. Entries are
// replaced whole so readers never see a partially updated state.
type stateTable struct {
	mu     sync.RWMutex
	states map[string]domain.SignalState
}

func newStateTable() *stateTable {
	return &stateTable{states: make(map[string]domain.SignalState)}
}

func (t *stateTable) get(name string) domain.SignalState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states[name]
}

func (t *stateTable) set(name string, st domain.SignalState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[name] = st
}

// frame returns the states of every signal in f, read under one lock.
func (t *stateTable) frame(f *domain.Frame) []domain.SignalState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.SignalState, len(f.Signals))
	for i, s := range f.Signals {
		out[i] = t.states[s.Name]
	}
	return out
}

func (t *stateTable) anyActive(f *domain.Frame) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range f.Signals {
		if t.states[s.Name].Active {
			return true
		}
	}
	return false
}
