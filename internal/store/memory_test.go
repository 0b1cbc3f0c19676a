package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellstone/spellstone-server-go/internal/game"
)

func newTestState(t *testing.T) *game.GameState {
	t.Helper()
	state, err := game.NewGameState([]string{"alice", "bob"}, []string{"ember_whelp"}, game.DefaultRules(), nil)
	require.NoError(t, err)
	return state
}

func TestMemoryCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	state := newTestState(t)

	require.NoError(t, m.Create(ctx, state))
	assert.Error(t, m.Create(ctx, state), "duplicate create must fail")

	loaded, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, loaded.ID)
	assert.Equal(t, state.Players, loaded.Players)
}

func TestMemoryLoadUnknownGame(t *testing.T) {
	_, err := NewMemory().Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryLoadReturnsIsolatedSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	state := newTestState(t)
	require.NoError(t, m.Create(ctx, state))

	snap, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	snap.PlayerStates["alice"].Health = 1

	again, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, game.DefaultRules().StartingHealth, again.PlayerStates["alice"].Health)
}

func TestMemoryApplyCommitsMutation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	state := newTestState(t)
	require.NoError(t, m.Create(ctx, state))

	result, err := m.Apply(ctx, state.ID, func(s *game.GameState) error {
		s.PlayerStates["bob"].Health = 10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.PlayerStates["bob"].Health)

	loaded, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.PlayerStates["bob"].Health)
}

func TestMemoryApplyErrorDiscardsMutation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	state := newTestState(t)
	require.NoError(t, m.Create(ctx, state))

	boom := errors.New("boom")
	_, err := m.Apply(ctx, state.ID, func(s *game.GameState) error {
		s.PlayerStates["bob"].Health = 1
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loaded, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, game.DefaultRules().StartingHealth, loaded.PlayerStates["bob"].Health)
}

func TestMemoryApplyIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	state := newTestState(t)
	state.PlayerStates["bob"].Health = 1000
	state.PlayerStates["bob"].MaxHealth = 1000
	require.NoError(t, m.Create(ctx, state))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Apply(ctx, state.ID, func(s *game.GameState) error {
				s.PlayerStates["bob"].Health--
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := m.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, 900, loaded.PlayerStates["bob"].Health)
}
