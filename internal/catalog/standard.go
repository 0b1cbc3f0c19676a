package catalog

import "encoding/json"

func rawScript(s string) json.RawMessage { return json.RawMessage(s) }

// standardDefs is the built-in card set. Effect scripts are serialized
// instruction lists interpreted by the effects package.
var standardDefs = []CardDefinition{
	{
		ID:     "ember_whelp",
		Name:   "Ember Whelp",
		Cost:   1,
		Type:   CardTypeCreature,
		Attack: 1,
		Health: 2,
	},
	{
		ID:     "stone_guardian",
		Name:   "Stone Guardian",
		Cost:   3,
		Type:   CardTypeCreature,
		Attack: 2,
		Health: 5,
	},
	{
		ID:     "raid_captain",
		Name:   "Raid Captain",
		Cost:   4,
		Type:   CardTypeCreature,
		Attack: 4,
		Health: 3,
	},
	{
		ID:     "siege_ram",
		Name:   "Siege Ram",
		Cost:   2,
		Type:   CardTypeCreature,
		Attack: 3,
		Health: 2,
		// Trained against fortifications only; cannot strike players.
		AttackTargeting: &AttackTargeting{
			CanTargetPlayers:   false,
			CanTargetCreatures: true,
			CanTargetArtifacts: true,
		},
	},
	{
		ID:     "dire_colossus",
		Name:   "Dire Colossus",
		Cost:   6,
		Type:   CardTypeCreature,
		Attack: 6,
		Health: 6,
	},
	{
		ID:   "fire_bolt",
		Name: "Fire Bolt",
		Cost: 2,
		Type: CardTypeSpell,
		SpellEffect: rawScript(`[
			{"op":"select_targets","selector":{"count":1,"kind":"any","canTargetSelf":false,"autoTarget":false,"description":"Deal 3 damage to any target"}},
			{"op":"deal_damage","amount":3,"to":"selected"}
		]`),
	},
	{
		ID:   "mending_light",
		Name: "Mending Light",
		Cost: 2,
		Type: CardTypeSpell,
		SpellEffect: rawScript(`[
			{"op":"select_targets","selector":{"count":1,"kind":"creature","canTargetSelf":true,"autoTarget":true,"description":"Restore 3 health to a creature"}},
			{"op":"heal","amount":3,"to":"selected"}
		]`),
	},
	{
		ID:   "arcane_insight",
		Name: "Arcane Insight",
		Cost: 2,
		Type: CardTypeSpell,
		SpellEffect: rawScript(`[
			{"op":"draw_cards","count":2,"to":"caster"}
		]`),
	},
	{
		ID:   "surge_of_vigor",
		Name: "Surge of Vigor",
		Cost: 0,
		Type: CardTypeSpell,
		SpellEffect: rawScript(`[
			{"op":"gain_energy","amount":2,"to":"caster"},
			{"op":"heal","amount":2,"to":"caster"}
		]`),
	},
	{
		ID:   "obliterate",
		Name: "Obliterate",
		Cost: 5,
		Type: CardTypeSpell,
		SpellEffect: rawScript(`[
			{"op":"select_targets","selector":{"count":1,"kind":"creature","canTargetSelf":false,"autoTarget":false,"description":"Destroy a creature"}},
			{"op":"destroy","to":"selected"}
		]`),
	},
	{
		ID:     "soulstone_obelisk",
		Name:   "Soulstone Obelisk",
		Cost:   3,
		Type:   CardTypeArtifact,
		Health: 4,
		ArtifactAbilities: []ArtifactAbility{
			{
				Trigger:     TriggerStartTurn,
				Effect:      rawScript(`[{"op":"heal","amount":1,"to":"caster"}]`),
				Description: "At the start of your turn, restore 1 health to your hero.",
			},
		},
	},
	{
		ID:     "ember_brazier",
		Name:   "Ember Brazier",
		Cost:   4,
		Type:   CardTypeArtifact,
		Health: 3,
		ArtifactAbilities: []ArtifactAbility{
			{
				Trigger:     TriggerEndTurn,
				Effect:      rawScript(`[{"op":"deal_damage","amount":1,"to":"opponent"}]`),
				Description: "At the end of your turn, deal 1 damage to the enemy hero.",
			},
		},
	},
	{
		ID:     "echo_crystal",
		Name:   "Echo Crystal",
		Cost:   5,
		Type:   CardTypeArtifact,
		Health: 2,
		ArtifactAbilities: []ArtifactAbility{
			{
				Trigger:     TriggerPlayCard,
				Effect:      rawScript(`[{"op":"gain_energy","amount":1,"to":"caster"}]`),
				Description: "Whenever you play a card, gain 1 energy.",
			},
		},
	},
}

// StandardDeckCounts is the copy-count table for the standard deck.
var StandardDeckCounts = map[string]int{
	"ember_whelp":       4,
	"stone_guardian":    3,
	"raid_captain":      3,
	"siege_ram":         2,
	"dire_colossus":     2,
	"fire_bolt":         4,
	"mending_light":     3,
	"arcane_insight":    3,
	"surge_of_vigor":    2,
	"obliterate":        2,
	"soulstone_obelisk": 1,
	"ember_brazier":     1,
	"echo_crystal":      1,
}

// Standard returns the built-in catalog.
func Standard() (*Catalog, error) {
	return New(standardDefs)
}

// StandardDeck builds the standard ordered deck against the given catalog.
func StandardDeck(c *Catalog) ([]string, error) {
	return BuildDeck(c, StandardDeckCounts)
}
