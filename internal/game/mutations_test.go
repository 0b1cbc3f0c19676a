package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
)

func standardCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Standard()
	require.NoError(t, err)
	return cat
}

// playingState returns a two-player game already in progress with empty
// hands and a small deck, ready for tests to arrange pieces directly.
func playingState(t *testing.T) *GameState {
	t.Helper()
	state, err := NewGameState([]string{"alice", "bob"}, []string{"fire_bolt", "ember_whelp", "arcane_insight"}, DefaultRules(), nil)
	require.NoError(t, err)
	state.Status = StatusPlaying
	return state
}

// putUnit places a card instance on a player's battlefield at full health.
func putUnit(t *testing.T, state *GameState, cat *catalog.Catalog, playerID, cardID, instanceID string) {
	t.Helper()
	def, ok := cat.Get(cardID)
	require.True(t, ok)
	state.Battlefields[playerID] = append(state.Battlefields[playerID], BattlefieldCard{
		InstanceID:    instanceID,
		CardID:        cardID,
		CurrentHealth: def.Health,
	})
}

func countUnits(state *GameState) int {
	n := 0
	for _, field := range state.Battlefields {
		n += len(field)
	}
	return n
}

func countGraveyard(state *GameState) int {
	n := 0
	for _, g := range state.Graveyards {
		n += len(g)
	}
	return n
}

func TestSpendEnergyInsufficientLeavesStateUnchanged(t *testing.T) {
	state := playingState(t)
	state.PlayerStates["alice"].Energy = 2

	assert.False(t, SpendEnergy(state, "alice", 3))
	assert.Equal(t, 2, state.PlayerStates["alice"].Energy)

	assert.True(t, SpendEnergy(state, "alice", 2))
	assert.Equal(t, 0, state.PlayerStates["alice"].Energy)
}

func TestGainEnergyClampsToMax(t *testing.T) {
	state := playingState(t)
	ps := state.PlayerStates["alice"]
	ps.Energy = 3
	ps.MaxEnergy = 5

	GainEnergy(state, "alice", 10)
	assert.Equal(t, 5, ps.Energy)
}

func TestDrawCardFromEmptyDeckIsLoggedNoOp(t *testing.T) {
	state := playingState(t)
	state.Deck = nil

	assert.False(t, DrawCard(state, "alice"))
	assert.Empty(t, state.Hands["alice"])
	require.NotEmpty(t, state.GameLog)
	assert.Equal(t, ActionDraw, state.GameLog[len(state.GameLog)-1].Action)
	assert.Contains(t, state.GameLog[len(state.GameLog)-1].Description, "deck is empty")
}

func TestDrawCardMovesTopOfDeckToHand(t *testing.T) {
	state := playingState(t)

	assert.True(t, DrawCard(state, "alice"))
	assert.Equal(t, []string{"fire_bolt"}, state.Hands["alice"])
	assert.Equal(t, []string{"ember_whelp", "arcane_insight"}, state.Deck)
}

func TestDealDamageToPlayerClampsAtZeroAndFinishes(t *testing.T) {
	state := playingState(t)
	state.PlayerStates["bob"].Health = 3

	assert.True(t, DealDamageToPlayer(state, "bob", 10))
	assert.Equal(t, 0, state.PlayerStates["bob"].Health)
	assert.Equal(t, StatusFinished, state.Status)

	found := false
	for _, entry := range state.GameLog {
		if entry.Action == ActionGameOver {
			found = true
		}
	}
	assert.True(t, found, "expected a game_over log entry")
}

func TestDealDamageToCreatureKillsAndConservesCards(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	putUnit(t, state, cat, "bob", "ember_whelp", "u1")

	before := countUnits(state) + countGraveyard(state)

	assert.True(t, DealDamageToCreature(state, "bob", "u1", 99))
	assert.Empty(t, state.Battlefields["bob"])
	assert.Equal(t, []string{"ember_whelp"}, state.Graveyards["bob"])
	assert.Equal(t, before, countUnits(state)+countGraveyard(state))
}

func TestDealDamageToCreatureSurvivor(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	putUnit(t, state, cat, "bob", "stone_guardian", "u1")

	assert.True(t, DealDamageToCreature(state, "bob", "u1", 2))
	bc, _, ok := state.FindUnit("bob", "u1")
	require.True(t, ok)
	def, _ := cat.Get("stone_guardian")
	assert.Equal(t, def.Health-2, bc.CurrentHealth)
}

func TestHealPlayerClampsToMaxHealth(t *testing.T) {
	state := playingState(t)
	ps := state.PlayerStates["alice"]
	ps.Health = 28

	HealPlayer(state, "alice", 10)
	assert.Equal(t, ps.MaxHealth, ps.Health)
}

func TestHealCreatureClampsToPrintedHealth(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	putUnit(t, state, cat, "alice", "stone_guardian", "u1")
	bc, _, _ := state.FindUnit("alice", "u1")
	bc.CurrentHealth = 1

	HealCreature(state, cat, "alice", "u1", 50)
	def, _ := cat.Get("stone_guardian")
	assert.Equal(t, def.Health, bc.CurrentHealth)
}

func TestDestroyCreatureMovesToOwnersGraveyard(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	putUnit(t, state, cat, "bob", "soulstone_obelisk", "a1")

	assert.True(t, DestroyCreature(state, "bob", "a1"))
	assert.Empty(t, state.Battlefields["bob"])
	assert.Equal(t, []string{"soulstone_obelisk"}, state.Graveyards["bob"])
}

func TestPlayCardCreatureEntersBattlefield(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	state.Hands["alice"] = []string{"ember_whelp"}
	state.PlayerStates["alice"].Energy = 5

	assert.True(t, PlayCard(state, cat, "alice", "ember_whelp"))
	require.Len(t, state.Battlefields["alice"], 1)
	bc := state.Battlefields["alice"][0]
	assert.Equal(t, "ember_whelp", bc.CardID)
	assert.NotEmpty(t, bc.InstanceID)
	assert.False(t, bc.Sapped)

	def, _ := cat.Get("ember_whelp")
	assert.Equal(t, def.Health, bc.CurrentHealth)
	assert.Equal(t, 5-def.Cost, state.PlayerStates["alice"].Energy)
	assert.Empty(t, state.Hands["alice"])
}

func TestPlayCardRefusedWithoutEnergy(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	state.Hands["alice"] = []string{"dire_colossus"}
	state.PlayerStates["alice"].Energy = 1

	assert.False(t, PlayCard(state, cat, "alice", "dire_colossus"))
	assert.Equal(t, []string{"dire_colossus"}, state.Hands["alice"])
	assert.Equal(t, 1, state.PlayerStates["alice"].Energy)
	assert.Empty(t, state.Battlefields["alice"])
}

func TestPlayCardRefusedOffTurn(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	state.Hands["bob"] = []string{"ember_whelp"}
	state.PlayerStates["bob"].Energy = 5

	assert.False(t, PlayCard(state, cat, "bob", "ember_whelp"))
	assert.Equal(t, []string{"ember_whelp"}, state.Hands["bob"])
}

func TestPlayCardRejectsScriptedSpell(t *testing.T) {
	cat := standardCatalog(t)
	state := playingState(t)
	state.Hands["alice"] = []string{"fire_bolt"}
	state.PlayerStates["alice"].Energy = 5

	assert.False(t, PlayCard(state, cat, "alice", "fire_bolt"))
	assert.Equal(t, []string{"fire_bolt"}, state.Hands["alice"])
	assert.Equal(t, 5, state.PlayerStates["alice"].Energy)
}
