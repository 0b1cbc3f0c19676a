package game_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
	"github.com/spellstone/spellstone-server-go/internal/game"
	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
	"github.com/spellstone/spellstone-server-go/internal/store"
)

type engineFixture struct {
	engine *game.Engine
	store  *store.Memory
	cat    *catalog.Catalog
	gameID string
}

// newFixture creates a started two-player game over an in-memory store.
func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Standard()
	require.NoError(t, err)

	mem := store.NewMemory()
	engine := game.NewEngine(mem, cat, game.DefaultRules(), zaptest.NewLogger(t))

	gameID, err := engine.CreateGame(ctx, []string{"alice", "bob"}, "")
	require.NoError(t, err)
	require.NoError(t, engine.StartGame(ctx, gameID))

	return &engineFixture{engine: engine, store: mem, cat: cat, gameID: gameID}
}

// arrange mutates the game document directly to set up a scenario.
func (f *engineFixture) arrange(t *testing.T, mutate func(*game.GameState)) {
	t.Helper()
	_, err := f.store.Apply(context.Background(), f.gameID, func(s *game.GameState) error {
		mutate(s)
		return nil
	})
	require.NoError(t, err)
}

func (f *engineFixture) state(t *testing.T) *game.GameState {
	t.Helper()
	s, err := f.store.Load(context.Background(), f.gameID)
	require.NoError(t, err)
	return s
}

// giveUnit places a card instance on a player's battlefield at full health.
func (f *engineFixture) giveUnit(t *testing.T, playerID, cardID, instanceID string) {
	t.Helper()
	def, ok := f.cat.Get(cardID)
	require.True(t, ok)
	f.arrange(t, func(s *game.GameState) {
		s.Battlefields[playerID] = append(s.Battlefields[playerID], game.BattlefieldCard{
			InstanceID:    instanceID,
			CardID:        cardID,
			CurrentHealth: def.Health,
		})
	})
}

// promptChan subscribes to targeting prompt events before an action runs.
func (f *engineFixture) promptChan() <-chan game.Event {
	ch := make(chan game.Event, 4)
	f.engine.Bus().SubscribeTyped(game.EventTargetingPrompt, func(ev game.Event) {
		ch <- ev
	})
	return ch
}

func awaitPrompt(t *testing.T, ch <-chan game.Event) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for targeting prompt")
	}
}

type castResult struct {
	ok  bool
	err error
}

func TestJoinGameChecksPasscode(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.Standard()
	require.NoError(t, err)
	engine := game.NewEngine(store.NewMemory(), cat, game.DefaultRules(), zaptest.NewLogger(t))

	gameID, err := engine.CreateGame(ctx, []string{"alice", "bob"}, "sesame")
	require.NoError(t, err)

	assert.NoError(t, engine.JoinGame(ctx, gameID, "alice", "sesame"))
	assert.ErrorIs(t, engine.JoinGame(ctx, gameID, "alice", "wrong"), game.ErrWrongPasscode)
	assert.Error(t, engine.JoinGame(ctx, gameID, "mallory", "sesame"))
}

func TestCastSpellTwoPhaseCommit(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"fire_bolt"}
		s.PlayerStates["alice"].Energy = 5
	})

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "fire_bolt")
		results <- castResult{ok, err}
	}()

	awaitPrompt(t, prompts)
	require.NoError(t, f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindPlayer, PlayerID: "bob",
	}))
	require.NoError(t, f.engine.ConfirmTargets(f.gameID, nil))

	res := <-results
	require.NoError(t, res.err)
	assert.True(t, res.ok)

	s := f.state(t)
	assert.Equal(t, 27, s.PlayerStates["bob"].Health)
	assert.Equal(t, 3, s.PlayerStates["alice"].Energy)
	assert.Empty(t, s.Hands["alice"])
	assert.Equal(t, []string{"fire_bolt"}, s.Graveyards["alice"])
}

func TestCastSpellCancelledLeavesCostsUnpaid(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"fire_bolt"}
		s.PlayerStates["alice"].Energy = 5
	})
	before := f.state(t)

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "fire_bolt")
		results <- castResult{ok, err}
	}()

	awaitPrompt(t, prompts)
	require.NoError(t, f.engine.CancelTargeting(f.gameID))

	res := <-results
	require.NoError(t, res.err)
	assert.False(t, res.ok)

	after := f.state(t)
	assert.Equal(t, before.PlayerStates["alice"].Energy, after.PlayerStates["alice"].Energy)
	assert.Equal(t, before.Hands["alice"], after.Hands["alice"])
	assert.Empty(t, after.Graveyards["alice"])
	assert.Equal(t, game.Checksum(before), game.Checksum(after), "cancelled cast must mutate nothing")
}

func TestCastSpellRefusedWithoutEnergy(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"obliterate"}
		s.PlayerStates["alice"].Energy = 1
	})

	ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "obliterate")
	require.NoError(t, err)
	assert.False(t, ok)

	s := f.state(t)
	assert.Equal(t, []string{"obliterate"}, s.Hands["alice"])
	assert.Equal(t, 1, s.PlayerStates["alice"].Energy)
	last := s.GameLog[len(s.GameLog)-1]
	assert.Equal(t, game.ActionError, last.Action)
}

func TestCastSpellWithoutPromptResolvesSynchronously(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"surge_of_vigor"}
		s.PlayerStates["alice"].Energy = 3
		s.PlayerStates["alice"].MaxEnergy = 5
		s.PlayerStates["alice"].Health = 20
	})

	ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "surge_of_vigor")
	require.NoError(t, err)
	assert.True(t, ok)

	s := f.state(t)
	assert.Equal(t, 5, s.PlayerStates["alice"].Energy)
	assert.Equal(t, 22, s.PlayerStates["alice"].Health)
}

func TestCastSpellAutoTargetSkipsPrompt(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "stone_guardian", "u1")
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"mending_light"}
		s.PlayerStates["alice"].Energy = 5
		bc, _, _ := s.FindUnit("alice", "u1")
		bc.CurrentHealth = 1
	})

	// The only creature on the board is the sole legal target, so the
	// selection resolves without any click.
	ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "mending_light")
	require.NoError(t, err)
	assert.True(t, ok)

	s := f.state(t)
	bc, _, found := s.FindUnit("alice", "u1")
	require.True(t, found)
	assert.Equal(t, 4, bc.CurrentHealth)
}

func TestCastObliterateDestroysAndConserves(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "bob", "dire_colossus", "u1")
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"obliterate"}
		s.PlayerStates["alice"].Energy = 5
	})

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "obliterate")
		results <- castResult{ok, err}
	}()

	awaitPrompt(t, prompts)
	require.NoError(t, f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindCreature, PlayerID: "bob", InstanceID: "u1",
	}))
	require.NoError(t, f.engine.ConfirmTargets(f.gameID, nil))

	res := <-results
	require.NoError(t, res.err)
	assert.True(t, res.ok)

	s := f.state(t)
	assert.Empty(t, s.Battlefields["bob"])
	assert.Equal(t, []string{"dire_colossus"}, s.Graveyards["bob"])
}

func TestMutationsRejectedWhileTargeting(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"fire_bolt", "ember_whelp"}
		s.PlayerStates["alice"].Energy = 5
	})

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "fire_bolt")
		results <- castResult{ok, err}
	}()
	awaitPrompt(t, prompts)

	_, err := f.engine.PlayCard(context.Background(), f.gameID, "alice", "ember_whelp")
	assert.ErrorIs(t, err, targeting.ErrSessionActive)

	_, err = f.engine.EndTurn(context.Background(), f.gameID, "alice")
	assert.ErrorIs(t, err, targeting.ErrSessionActive)

	require.NoError(t, f.engine.CancelTargeting(f.gameID))
	<-results
}

func TestStartAttackAutoConfirmsOnClick(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "raid_captain", "u1")

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.StartAttack(context.Background(), f.gameID, "alice", "u1")
		results <- castResult{ok, err}
	}()

	awaitPrompt(t, prompts)
	// A single-target attack confirms on the first legal click.
	require.NoError(t, f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindPlayer, PlayerID: "bob",
	}))

	res := <-results
	require.NoError(t, res.err)
	assert.True(t, res.ok)

	s := f.state(t)
	assert.Equal(t, 26, s.PlayerStates["bob"].Health)
	bc, _, found := s.FindUnit("alice", "u1")
	require.True(t, found)
	assert.True(t, bc.Sapped)
}

func TestStartAttackPolicyRejectsPlayerClick(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "siege_ram", "u1")
	f.giveUnit(t, "bob", "stone_guardian", "u2")

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.StartAttack(context.Background(), f.gameID, "alice", "u1")
		results <- castResult{ok, err}
	}()
	awaitPrompt(t, prompts)

	err := f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindPlayer, PlayerID: "bob",
	})
	assert.ErrorIs(t, err, targeting.ErrIllegalTarget)

	require.NoError(t, f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindCreature, PlayerID: "bob", InstanceID: "u2",
	}))

	res := <-results
	require.NoError(t, res.err)
	assert.True(t, res.ok)
	assert.Equal(t, game.DefaultRules().StartingHealth, f.state(t).PlayerStates["bob"].Health)
}

func TestStartAttackRejectsSappedAttacker(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "raid_captain", "u1")
	f.arrange(t, func(s *game.GameState) {
		bc, _, _ := s.FindUnit("alice", "u1")
		bc.Sapped = true
	})

	ok, err := f.engine.StartAttack(context.Background(), f.gameID, "alice", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEndTurnRotatesDrawsAndRefills(t *testing.T) {
	f := newFixture(t)
	bobHand := len(f.state(t).Hands["bob"])

	ok, err := f.engine.EndTurn(context.Background(), f.gameID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	s := f.state(t)
	assert.Equal(t, "bob", s.CurrentPlayer())
	assert.Len(t, s.Hands["bob"], bobHand+1)
	assert.Equal(t, 2, s.PlayerStates["bob"].MaxEnergy)
	assert.Equal(t, 2, s.PlayerStates["bob"].Energy)
}

func TestEndTurnRefusedOffTurn(t *testing.T) {
	f := newFixture(t)

	ok, err := f.engine.EndTurn(context.Background(), f.gameID, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "alice", f.state(t).CurrentPlayer())
}

func TestEndTurnFiresEndTurnTrigger(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "ember_brazier", "a1")

	ok, err := f.engine.EndTurn(context.Background(), f.gameID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 29, f.state(t).PlayerStates["bob"].Health)
}

func TestEndTurnFiresStartTurnTriggerForNextPlayer(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "bob", "soulstone_obelisk", "a1")
	f.arrange(t, func(s *game.GameState) {
		s.PlayerStates["bob"].Health = 20
	})

	ok, err := f.engine.EndTurn(context.Background(), f.gameID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 21, f.state(t).PlayerStates["bob"].Health)
}

func TestPlayCardFiresPlayCardTrigger(t *testing.T) {
	f := newFixture(t)
	f.giveUnit(t, "alice", "echo_crystal", "a1")
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"ember_whelp"}
		s.PlayerStates["alice"].Energy = 3
		s.PlayerStates["alice"].MaxEnergy = 5
	})

	ok, err := f.engine.PlayCard(context.Background(), f.gameID, "alice", "ember_whelp")
	require.NoError(t, err)
	assert.True(t, ok)

	// 3 energy, minus the whelp's cost of 1, plus 1 from the crystal.
	assert.Equal(t, 3, f.state(t).PlayerStates["alice"].Energy)
}

func TestTriggerFailureIsIsolated(t *testing.T) {
	broken, err := catalog.New([]catalog.CardDefinition{
		{
			ID:   "cracked_idol",
			Name: "Cracked Idol",
			Type: catalog.CardTypeArtifact,
			ArtifactAbilities: []catalog.ArtifactAbility{{
				Trigger:     catalog.TriggerEndTurn,
				Effect:      json.RawMessage(`[{"op":"deal_damage","to":"selected"}]`),
				Description: "does nothing useful",
			}},
		},
		{
			ID:   "ember_brazier",
			Name: "Ember Brazier",
			Type: catalog.CardTypeArtifact,
			ArtifactAbilities: []catalog.ArtifactAbility{{
				Trigger:     catalog.TriggerEndTurn,
				Effect:      json.RawMessage(`[{"op":"deal_damage","amount":1,"to":"opponent"}]`),
				Description: "Deals 1 damage to the opponent",
			}},
		},
	})
	require.NoError(t, err)

	mem := store.NewMemory()
	engine := game.NewEngine(mem, broken, game.DefaultRules(), zaptest.NewLogger(t))

	state, err := game.NewGameState([]string{"alice", "bob"}, nil, game.DefaultRules(), nil)
	require.NoError(t, err)
	state.Status = game.StatusPlaying
	state.Battlefields["alice"] = []game.BattlefieldCard{
		{InstanceID: "a1", CardID: "cracked_idol", CurrentHealth: 1},
		{InstanceID: "a2", CardID: "ember_brazier", CurrentHealth: 1},
	}
	require.NoError(t, mem.Create(context.Background(), state))

	ok, err := engine.EndTurn(context.Background(), state.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	s, err := mem.Load(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, 29, s.PlayerStates["bob"].Health, "the healthy trigger still fires")

	var failed bool
	for _, entry := range s.GameLog {
		if entry.Action == game.ActionTriggerErr && entry.CardID == "cracked_idol" {
			failed = true
		}
	}
	assert.True(t, failed, "expected a trigger_failed log entry")
}

func TestBrokenSpellScriptLogsFailedCast(t *testing.T) {
	cat, err := catalog.New([]catalog.CardDefinition{{
		ID:          "fizzle",
		Name:        "Fizzle",
		Cost:        1,
		Type:        catalog.CardTypeSpell,
		SpellEffect: json.RawMessage(`[{"op":"explode"}]`),
	}})
	require.NoError(t, err)

	mem := store.NewMemory()
	engine := game.NewEngine(mem, cat, game.DefaultRules(), zaptest.NewLogger(t))

	state, err := game.NewGameState([]string{"alice", "bob"}, nil, game.DefaultRules(), nil)
	require.NoError(t, err)
	state.Status = game.StatusPlaying
	state.Hands["alice"] = []string{"fizzle"}
	state.PlayerStates["alice"].Energy = 3
	require.NoError(t, mem.Create(context.Background(), state))

	ok, err := engine.CastSpell(context.Background(), state.ID, "alice", "fizzle")
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := mem.Load(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fizzle"}, s.Hands["alice"])
	assert.Equal(t, 3, s.PlayerStates["alice"].Energy)
	last := s.GameLog[len(s.GameLog)-1]
	assert.Equal(t, game.ActionCastFailed, last.Action)
	assert.Contains(t, last.Description, "failed to cast")
}

func TestLethalSpellFinishesGame(t *testing.T) {
	f := newFixture(t)
	f.arrange(t, func(s *game.GameState) {
		s.Hands["alice"] = []string{"fire_bolt"}
		s.PlayerStates["alice"].Energy = 5
		s.PlayerStates["bob"].Health = 3
	})

	finished := make(chan game.Event, 1)
	f.engine.Bus().SubscribeTyped(game.EventGameFinished, func(ev game.Event) {
		select {
		case finished <- ev:
		default:
		}
	})

	prompts := f.promptChan()
	results := make(chan castResult, 1)
	go func() {
		ok, err := f.engine.CastSpell(context.Background(), f.gameID, "alice", "fire_bolt")
		results <- castResult{ok, err}
	}()
	awaitPrompt(t, prompts)
	require.NoError(t, f.engine.HandleTargetClick(f.gameID, targeting.Target{
		Kind: targeting.KindPlayer, PlayerID: "bob",
	}))
	require.NoError(t, f.engine.ConfirmTargets(f.gameID, nil))
	res := <-results
	require.NoError(t, res.err)
	require.True(t, res.ok)

	s := f.state(t)
	assert.Equal(t, game.StatusFinished, s.Status)
	assert.Equal(t, 0, s.PlayerStates["bob"].Health)

	select {
	case ev := <-finished:
		assert.Equal(t, f.gameID, ev.GameID)
	case <-time.After(time.Second):
		t.Fatal("expected a game finished event")
	}

	ok, err := f.engine.PlayCard(context.Background(), f.gameID, "alice", "ember_whelp")
	require.NoError(t, err)
	assert.False(t, ok, "a finished game accepts no plays")
}
