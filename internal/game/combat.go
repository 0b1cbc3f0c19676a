package game

import (
	"fmt"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
)

// attackReady validates the shared attacker preconditions: the instance
// exists, belongs to the current player, is not sapped, and has positive
// attack. Returns the attacker's definition on success.
func attackReady(state *GameState, cat *catalog.Catalog, attackerOwner, attackerInstanceID string) (catalog.CardDefinition, *BattlefieldCard, bool) {
	if state.Status != StatusPlaying || state.CurrentPlayer() != attackerOwner {
		return catalog.CardDefinition{}, nil, false
	}
	bc, _, ok := state.FindUnit(attackerOwner, attackerInstanceID)
	if !ok || bc.Sapped {
		return catalog.CardDefinition{}, nil, false
	}
	def, ok := cat.Get(bc.CardID)
	if !ok || def.Attack <= 0 {
		return catalog.CardDefinition{}, nil, false
	}
	return def, bc, true
}

// policyAllows applies the attacker's targeting policy to a defender
// kind. A nil policy permits players, creatures and artifacts alike.
func policyAllows(pol *catalog.AttackTargeting, kind catalog.CardType, player bool) bool {
	if pol == nil {
		return true
	}
	if player {
		return pol.CanTargetPlayers
	}
	if kind == catalog.CardTypeArtifact {
		return pol.CanTargetArtifacts
	}
	return pol.CanTargetCreatures
}

// AttackPlayerWithCreature resolves an attack on a player. The attacker
// is marked sapped; attacking does not end the turn.
func AttackPlayerWithCreature(state *GameState, cat *catalog.Catalog, attackerOwner, attackerInstanceID, defenderPlayerID string, damage int) bool {
	def, bc, ok := attackReady(state, cat, attackerOwner, attackerInstanceID)
	if !ok {
		return false
	}
	if !policyAllows(def.AttackTargeting, "", true) {
		logRefused(state, attackerOwner, bc.CardID, fmt.Sprintf("%s cannot attack players", def.Name))
		return false
	}
	if _, exists := state.PlayerStates[defenderPlayerID]; !exists || defenderPlayerID == attackerOwner {
		return false
	}
	if damage <= 0 {
		damage = def.Attack
	}

	bc.Sapped = true
	AddGameLogEntry(state, LogEntry{
		PlayerID:    attackerOwner,
		Action:      ActionAttack,
		CardID:      bc.CardID,
		Description: fmt.Sprintf("%s attacks %s with %s", attackerOwner, defenderPlayerID, def.Name),
	})
	DealDamageToPlayer(state, defenderPlayerID, damage)
	return true
}

// AttackCreatureWithCreature resolves an attack on a battlefield unit.
// Combat is one-directional: only the attacker deals damage; the defender
// deals no return damage. The attacker is marked sapped.
func AttackCreatureWithCreature(state *GameState, cat *catalog.Catalog, attackerOwner, attackerInstanceID, defenderOwner, defenderInstanceID string) bool {
	def, bc, ok := attackReady(state, cat, attackerOwner, attackerInstanceID)
	if !ok {
		return false
	}
	if defenderOwner == attackerOwner {
		return false
	}
	defender, _, ok := state.FindUnit(defenderOwner, defenderInstanceID)
	if !ok {
		return false
	}
	defenderDef, ok := cat.Get(defender.CardID)
	if !ok {
		logRefused(state, defenderOwner, defender.CardID, "unknown card on battlefield")
		return false
	}
	if !policyAllows(def.AttackTargeting, defenderDef.Type, false) {
		logRefused(state, attackerOwner, bc.CardID, fmt.Sprintf("%s cannot attack %ss", def.Name, defenderDef.Type))
		return false
	}

	bc.Sapped = true
	AddGameLogEntry(state, LogEntry{
		PlayerID:    attackerOwner,
		Action:      ActionAttack,
		CardID:      bc.CardID,
		Description: fmt.Sprintf("%s attacks %s with %s", attackerOwner, defenderDef.Name, def.Name),
	})
	DealDamageToCreature(state, defenderOwner, defenderInstanceID, def.Attack)
	return true
}
