package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Checksum computes a deterministic SHA-256 over the gameplay-relevant
// fields of the state. Two replicas of the same document always produce
// the same checksum regardless of map iteration order; the game log is
// excluded because its timestamps are not replayable. Stores use this to
// detect divergence between replicas.
func Checksum(state *GameState) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%s\n",
		state.ID,
		state.CurrentPlayerIndex,
		state.Turn,
		state.Status,
	)

	for _, id := range state.Players {
		ps := state.PlayerStates[id]
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d|%d|%d\n",
			id, ps.Health, ps.MaxHealth, ps.Energy, ps.MaxEnergy)

		for _, cardID := range state.Hands[id] {
			fmt.Fprintf(&buf, "  HAND:%s\n", cardID)
		}
		for _, bc := range state.Battlefields[id] {
			fmt.Fprintf(&buf, "  UNIT:%s|%s|%t|%d\n",
				bc.InstanceID, bc.CardID, bc.Sapped, bc.CurrentHealth)
		}

		// Graveyards are unordered multisets; sort for determinism.
		graveyard := append([]string(nil), state.Graveyards[id]...)
		sort.Strings(graveyard)
		for _, cardID := range graveyard {
			fmt.Fprintf(&buf, "  GRAVEYARD:%s\n", cardID)
		}
	}

	for _, cardID := range state.Deck {
		fmt.Fprintf(&buf, "DECK:%s\n", cardID)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
