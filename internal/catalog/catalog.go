package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
)

// CardType classifies a card definition.
type CardType string

const (
	// CardTypeCreature is a unit that enters the battlefield and can attack.
	CardTypeCreature CardType = "creature"
	// CardTypeSpell is a one-shot card resolved from hand.
	CardTypeSpell CardType = "spell"
	// CardTypeArtifact is a battlefield permanent with triggered abilities.
	CardTypeArtifact CardType = "artifact"
)

// TriggerEvent identifies a lifecycle event that artifact abilities bind to.
type TriggerEvent string

const (
	TriggerStartTurn TriggerEvent = "start_turn"
	TriggerEndTurn   TriggerEvent = "end_turn"
	TriggerPlayCard  TriggerEvent = "play_card"
)

// AttackTargeting restricts what kinds of targets a creature may attack.
// A nil policy on a CardDefinition means all target kinds are allowed.
type AttackTargeting struct {
	CanTargetPlayers   bool `json:"canTargetPlayers"`
	CanTargetCreatures bool `json:"canTargetCreatures"`
	CanTargetArtifacts bool `json:"canTargetArtifacts"`
}

// ArtifactAbility binds an effect script to a lifecycle trigger.
type ArtifactAbility struct {
	Trigger     TriggerEvent    `json:"trigger"`
	Effect      json.RawMessage `json:"effect"`
	Description string          `json:"description"`
}

// CardDefinition is the immutable definition of a card. Definitions are
// looked up by ID and never copied into mutable game state; per-instance
// state (current health, sapped) lives entirely on the battlefield entry.
type CardDefinition struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Cost   int      `json:"cost"`
	Type   CardType `json:"type"`
	Attack int      `json:"attack,omitempty"`
	Health int      `json:"health,omitempty"`
	// SpellEffect is a serialized effect script (spell cards only).
	SpellEffect json.RawMessage `json:"spellEffect,omitempty"`
	// ArtifactAbilities are triggered abilities (artifact cards only).
	ArtifactAbilities []ArtifactAbility `json:"artifactAbilities,omitempty"`
	// AttackTargeting restricts attack declarations (creature cards only).
	AttackTargeting *AttackTargeting `json:"attackTargeting,omitempty"`
}

// Catalog is an immutable registry of card definitions, resolved once per
// process and shared by every game.
type Catalog struct {
	cards map[string]CardDefinition
}

// New builds a catalog from a list of definitions.
func New(defs []CardDefinition) (*Catalog, error) {
	cards := make(map[string]CardDefinition, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("card %q has empty id", def.Name)
		}
		if _, exists := cards[def.ID]; exists {
			return nil, fmt.Errorf("duplicate card id %q", def.ID)
		}
		switch def.Type {
		case CardTypeCreature, CardTypeSpell, CardTypeArtifact:
		default:
			return nil, fmt.Errorf("card %q has unknown type %q", def.ID, def.Type)
		}
		cards[def.ID] = def
	}
	return &Catalog{cards: cards}, nil
}

// Get returns the definition for a card id.
func (c *Catalog) Get(id string) (CardDefinition, bool) {
	def, ok := c.cards[id]
	return def, ok
}

// Has reports whether the catalog contains a card id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.cards[id]
	return ok
}

// Size returns the number of definitions in the catalog.
func (c *Catalog) Size() int {
	return len(c.cards)
}

// IDs returns all card ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.cards))
	for id := range c.cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every definition, sorted by id.
func (c *Catalog) All() []CardDefinition {
	defs := make([]CardDefinition, 0, len(c.cards))
	for _, id := range c.IDs() {
		defs = append(defs, c.cards[id])
	}
	return defs
}

// BuildDeck expands a copy-count table into an ordered deck of card ids.
// Every referenced id must exist in the catalog; a missing id is a content
// error reported here, at construction time, not at play time. Ids are
// emitted in sorted order so the pre-shuffle deck is deterministic.
func BuildDeck(c *Catalog, counts map[string]int) ([]string, error) {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		if !c.Has(id) {
			return nil, fmt.Errorf("deck references unknown card id %q", id)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var deck []string
	for _, id := range ids {
		n := counts[id]
		if n < 0 {
			return nil, fmt.Errorf("negative copy count %d for card %q", n, id)
		}
		for i := 0; i < n; i++ {
			deck = append(deck, id)
		}
	}
	return deck, nil
}

// ShuffleDeck permutes the deck in place using Fisher-Yates. A nil rng
// falls back to the global math/rand source.
func ShuffleDeck(deck []string, rng *rand.Rand) {
	swap := func(i, j int) { deck[i], deck[j] = deck[j], deck[i] }
	if rng != nil {
		rng.Shuffle(len(deck), swap)
		return
	}
	rand.Shuffle(len(deck), swap)
}

// DrawCards splits the deck into the first n ids and the remainder. When n
// exceeds the deck size the whole deck is drawn. Both returned slices are
// copies; the input deck is not aliased.
func DrawCards(deck []string, n int) (drawn, remaining []string) {
	if n < 0 {
		n = 0
	}
	if n > len(deck) {
		n = len(deck)
	}
	drawn = append([]string(nil), deck[:n]...)
	remaining = append([]string(nil), deck[n:]...)
	return drawn, remaining
}
