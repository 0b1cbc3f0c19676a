package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
)

// Rules are the game-start and per-turn tunables, loaded from config.
type Rules struct {
	StartingHealth   int
	StartingEnergy   int
	EnergyCap        int
	StartingHandSize int
}

// DefaultRules returns the standard ruleset.
func DefaultRules() Rules {
	return Rules{
		StartingHealth:   30,
		StartingEnergy:   1,
		EnergyCap:        10,
		StartingHandSize: 4,
	}
}

// NewGameState creates a waiting game document for the given seats and
// ordered deck. The players slice is fixed for the game's lifetime.
func NewGameState(players []string, deck []string, rules Rules, passcodeHash []byte) (*GameState, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("a game needs at least 2 players, got %d", len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, id := range players {
		if id == "" {
			return nil, fmt.Errorf("empty player id")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate player id %q", id)
		}
		seen[id] = true
	}

	state := &GameState{
		ID:           uuid.NewString(),
		Players:      append([]string(nil), players...),
		Turn:         1,
		Status:       StatusWaiting,
		PlayerStates: make(map[string]*PlayerState, len(players)),
		Hands:        make(map[string][]string, len(players)),
		Battlefields: make(map[string][]BattlefieldCard, len(players)),
		Deck:         append([]string(nil), deck...),
		Graveyards:   make(map[string][]string, len(players)),
		PasscodeHash: passcodeHash,
		CreatedAt:    time.Now().UTC(),
	}
	for _, id := range players {
		state.PlayerStates[id] = &PlayerState{
			Health:    rules.StartingHealth,
			MaxHealth: rules.StartingHealth,
			Energy:    rules.StartingEnergy,
			MaxEnergy: rules.StartingEnergy,
		}
		state.Hands[id] = []string{}
		state.Battlefields[id] = []BattlefieldCard{}
		state.Graveyards[id] = []string{}
	}
	return state, nil
}

// StartGame shuffles the deck, deals starting hands, and moves the game
// from waiting to playing.
func StartGame(state *GameState, rules Rules) bool {
	if state.Status != StatusWaiting {
		return false
	}
	catalog.ShuffleDeck(state.Deck, nil)
	for _, id := range state.Players {
		drawn, remaining := catalog.DrawCards(state.Deck, rules.StartingHandSize)
		state.Hands[id] = append(state.Hands[id], drawn...)
		state.Deck = remaining
	}
	state.Status = StatusPlaying
	AddGameLogEntry(state, LogEntry{
		Action:      "start",
		Description: fmt.Sprintf("game starts, %s goes first", state.CurrentPlayer()),
	})
	return true
}

// AdvanceTurn rotates the current player, increments the turn counter
// when wrapping back to the first seat, and refills the new current
// player's energy (growing max energy by one per turn up to the cap).
// Returns the new current player.
func AdvanceTurn(state *GameState, rules Rules) string {
	state.CurrentPlayerIndex = (state.CurrentPlayerIndex + 1) % len(state.Players)
	if state.CurrentPlayerIndex == 0 {
		state.Turn++
	}
	next := state.CurrentPlayer()
	ps := state.PlayerStates[next]
	if ps.MaxEnergy < rules.EnergyCap {
		ps.MaxEnergy++
	}
	ps.Energy = ps.MaxEnergy
	return next
}
