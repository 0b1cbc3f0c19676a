package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spellstone/spellstone-server-go/internal/game"
)

// ErrNotFound is returned when a game document does not exist.
var ErrNotFound = errors.New("game not found")

// Memory is an in-process document store. Mutations run under a single
// lock, so Apply is trivially atomic. Suitable for tests and single-node
// deployments.
type Memory struct {
	mu    sync.RWMutex
	games map[string]*game.GameState
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{games: make(map[string]*game.GameState)}
}

// Create persists a new game document.
func (m *Memory) Create(_ context.Context, state *game.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[state.ID]; exists {
		return fmt.Errorf("game %s already exists", state.ID)
	}
	m.games[state.ID] = state.Clone()
	return nil
}

// Load returns a snapshot of the current document.
func (m *Memory) Load(_ context.Context, gameID string) (*game.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return state.Clone(), nil
}

// Apply runs mutate against a working copy of the latest document and
// publishes it atomically. A mutate error discards the working copy.
func (m *Memory) Apply(_ context.Context, gameID string, mutate func(*game.GameState) error) (*game.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	m.games[gameID] = working
	return working.Clone(), nil
}
