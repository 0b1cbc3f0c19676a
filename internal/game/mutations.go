package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
)

// Log action names. The gateway surfaces these verbatim.
const (
	ActionDraw       = "draw"
	ActionPlay       = "play"
	ActionCast       = "cast"
	ActionCastFailed = "cast_failed"
	ActionAttack     = "attack"
	ActionEndTurn    = "end_turn"
	ActionDamage     = "damage"
	ActionHeal       = "heal"
	ActionDestroy    = "destroy"
	ActionTrigger    = "trigger"
	ActionTriggerErr = "trigger_failed"
	ActionGameOver   = "game_over"
	ActionError      = "error"
)

// The mutation API below is the only way game state changes. Every
// operation mutates the state in place, synchronously, and reports
// legality failures as a false return with no mutation. Callers own the
// state exclusively for the duration of a call; the document store
// provides that exclusivity.

// AddGameLogEntry appends a log record, stamping it with the current time.
func AddGameLogEntry(state *GameState, entry LogEntry) {
	entry.Timestamp = time.Now().UTC()
	state.GameLog = append(state.GameLog, entry)
}

// SpendEnergy deducts energy from a player. Fails without mutation when
// the player cannot afford the amount; never produces negative energy.
func SpendEnergy(state *GameState, playerID string, amount int) bool {
	ps, ok := state.PlayerStates[playerID]
	if !ok || amount < 0 || ps.Energy < amount {
		return false
	}
	ps.Energy -= amount
	return true
}

// GainEnergy grants energy, clamped at the player's max.
func GainEnergy(state *GameState, playerID string, amount int) bool {
	ps, ok := state.PlayerStates[playerID]
	if !ok || amount < 0 {
		return false
	}
	ps.Energy += amount
	if ps.Energy > ps.MaxEnergy {
		ps.Energy = ps.MaxEnergy
	}
	return true
}

// RemoveCardFromHand removes the first matching entry from a hand.
func RemoveCardFromHand(state *GameState, playerID, cardID string) bool {
	hand := state.Hands[playerID]
	for i, id := range hand {
		if id == cardID {
			state.Hands[playerID] = append(hand[:i], hand[i+1:]...)
			return true
		}
	}
	return false
}

// AddCardToGraveyard appends a card id to a player's graveyard.
func AddCardToGraveyard(state *GameState, playerID, cardID string) {
	state.Graveyards[playerID] = append(state.Graveyards[playerID], cardID)
}

// DrawCard moves the top of the deck into the player's hand. Drawing from
// an empty deck is not an error: it is an observable, logged no-op.
func DrawCard(state *GameState, playerID string) bool {
	if len(state.Deck) == 0 {
		AddGameLogEntry(state, LogEntry{
			PlayerID:    playerID,
			Action:      ActionDraw,
			Description: fmt.Sprintf("%s tries to draw, but the deck is empty", playerID),
		})
		return false
	}
	cardID := state.Deck[0]
	state.Deck = state.Deck[1:]
	state.Hands[playerID] = append(state.Hands[playerID], cardID)
	AddGameLogEntry(state, LogEntry{
		PlayerID:    playerID,
		Action:      ActionDraw,
		Description: fmt.Sprintf("%s draws a card", playerID),
	})
	return true
}

// DealDamageToPlayer reduces a player's health, clamped at 0. A player
// reaching 0 health finishes the game.
func DealDamageToPlayer(state *GameState, playerID string, amount int) bool {
	ps, ok := state.PlayerStates[playerID]
	if !ok || amount < 0 {
		return false
	}
	ps.Health -= amount
	if ps.Health < 0 {
		ps.Health = 0
	}
	AddGameLogEntry(state, LogEntry{
		PlayerID:    playerID,
		Action:      ActionDamage,
		Description: fmt.Sprintf("%s takes %d damage (%d health left)", playerID, amount, ps.Health),
	})
	if ps.Health == 0 && state.Status == StatusPlaying {
		state.Status = StatusFinished
		AddGameLogEntry(state, LogEntry{
			PlayerID:    playerID,
			Action:      ActionGameOver,
			Description: fmt.Sprintf("%s is defeated", playerID),
		})
	}
	return true
}

// DealDamageToCreature reduces a battlefield unit's health, clamped at 0.
// A unit reaching 0 is immediately removed and moved to its owner's
// graveyard; the removal is a mandatory side effect, never optional.
// Artifacts on the battlefield are damaged the same way.
func DealDamageToCreature(state *GameState, ownerID, instanceID string, amount int) bool {
	bc, idx, ok := state.FindUnit(ownerID, instanceID)
	if !ok || amount < 0 {
		return false
	}
	bc.CurrentHealth -= amount
	AddGameLogEntry(state, LogEntry{
		PlayerID:    ownerID,
		Action:      ActionDamage,
		CardID:      bc.CardID,
		Description: fmt.Sprintf("%s takes %d damage", bc.CardID, amount),
	})
	if bc.CurrentHealth <= 0 {
		removeUnit(state, ownerID, idx)
	}
	return true
}

// HealPlayer restores health, clamped at the player's max.
func HealPlayer(state *GameState, playerID string, amount int) bool {
	ps, ok := state.PlayerStates[playerID]
	if !ok || amount < 0 {
		return false
	}
	ps.Health += amount
	if ps.Health > ps.MaxHealth {
		ps.Health = ps.MaxHealth
	}
	AddGameLogEntry(state, LogEntry{
		PlayerID:    playerID,
		Action:      ActionHeal,
		Description: fmt.Sprintf("%s restores %d health", playerID, amount),
	})
	return true
}

// HealCreature restores a unit's health, clamped at its definition's max.
func HealCreature(state *GameState, cat *catalog.Catalog, ownerID, instanceID string, amount int) bool {
	bc, _, ok := state.FindUnit(ownerID, instanceID)
	if !ok || amount < 0 {
		return false
	}
	def, ok := cat.Get(bc.CardID)
	if !ok {
		return false
	}
	bc.CurrentHealth += amount
	if bc.CurrentHealth > def.Health {
		bc.CurrentHealth = def.Health
	}
	AddGameLogEntry(state, LogEntry{
		PlayerID:    ownerID,
		Action:      ActionHeal,
		CardID:      bc.CardID,
		Description: fmt.Sprintf("%s restores %d health", def.Name, amount),
	})
	return true
}

// DestroyCreature removes a unit unconditionally, regardless of health.
func DestroyCreature(state *GameState, ownerID, instanceID string) bool {
	_, idx, ok := state.FindUnit(ownerID, instanceID)
	if !ok {
		return false
	}
	removeUnit(state, ownerID, idx)
	return true
}

// removeUnit takes a unit off the battlefield and into its owner's
// graveyard. Every battlefield exit goes through here so the instance
// count (battlefield + graveyard) is conserved.
func removeUnit(state *GameState, ownerID string, idx int) {
	field := state.Battlefields[ownerID]
	bc := field[idx]
	state.Battlefields[ownerID] = append(field[:idx], field[idx+1:]...)
	AddCardToGraveyard(state, ownerID, bc.CardID)
	AddGameLogEntry(state, LogEntry{
		PlayerID:    ownerID,
		Action:      ActionDestroy,
		CardID:      bc.CardID,
		Description: fmt.Sprintf("%s is destroyed", bc.CardID),
	})
}

// PlayCard is the non-scripted play path: creatures, artifacts, and
// spells without an effect script. It validates turn ownership,
// affordability and hand membership; on any precondition violation it
// fails silently with a log entry, never an error. Scripted spells are
// rejected here; they resolve through the two-phase cast path.
func PlayCard(state *GameState, cat *catalog.Catalog, playerID, cardID string) bool {
	if state.Status != StatusPlaying || state.CurrentPlayer() != playerID {
		logRefused(state, playerID, cardID, "not this player's turn")
		return false
	}
	def, ok := cat.Get(cardID)
	if !ok {
		logRefused(state, playerID, cardID, "unknown card")
		return false
	}
	if def.Type == catalog.CardTypeSpell && len(def.SpellEffect) > 0 {
		logRefused(state, playerID, cardID, "scripted spell must be cast")
		return false
	}
	if !handContains(state, playerID, cardID) {
		logRefused(state, playerID, cardID, "card not in hand")
		return false
	}
	if state.PlayerStates[playerID].Energy < def.Cost {
		logRefused(state, playerID, cardID, "not enough energy")
		return false
	}

	// Preconditions hold; from here the play is a single indivisible
	// multi-field update.
	SpendEnergy(state, playerID, def.Cost)
	RemoveCardFromHand(state, playerID, cardID)

	switch def.Type {
	case catalog.CardTypeCreature, catalog.CardTypeArtifact:
		state.Battlefields[playerID] = append(state.Battlefields[playerID], BattlefieldCard{
			InstanceID:    uuid.NewString(),
			CardID:        cardID,
			Sapped:        false,
			CurrentHealth: def.Health,
		})
	case catalog.CardTypeSpell:
		AddCardToGraveyard(state, playerID, cardID)
	}

	AddGameLogEntry(state, LogEntry{
		PlayerID:    playerID,
		Action:      ActionPlay,
		CardID:      cardID,
		Description: fmt.Sprintf("%s plays %s", playerID, def.Name),
	})
	return true
}

func handContains(state *GameState, playerID, cardID string) bool {
	for _, id := range state.Hands[playerID] {
		if id == cardID {
			return true
		}
	}
	return false
}

func logRefused(state *GameState, playerID, cardID, reason string) {
	AddGameLogEntry(state, LogEntry{
		PlayerID:    playerID,
		Action:      ActionError,
		CardID:      cardID,
		Description: reason,
	})
}
