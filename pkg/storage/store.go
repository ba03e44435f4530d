package storage

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

var (
	ErrEmptyKey = errors.New("empty state key")
	ErrClosed   = errors.New("state store is closed")
)

// StateStore persists leg state under string keys.
type StateStore interface {
	Save(ctx context.Context, key string, state common.LegState) error
	Load(ctx context.Context, key string) (common.LegState, bool, error)
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]common.LegState
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]common.LegState),
	}
}

func (m *Memory) Save(_ context.Context, key string, state common.LegState) error {
	if key == "" {
		return ErrEmptyKey
	}

	state.Extra = maps.Clone(state.Extra)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = state
	return nil
}

func (m *Memory) Load(_ context.Context, key string) (common.LegState, bool, error) {
	if key == "" {
		return common.LegState{}, false, ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.data[key]
	if !ok {
		return common.LegState{}, false, nil
	}
	state.Extra = maps.Clone(state.Extra)
	return state, true, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
