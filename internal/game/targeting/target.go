package targeting

import "github.com/spellstone/spellstone-server-go/internal/catalog"

// Kind identifies what a target refers to.
type Kind string

const (
	// KindPlayer targets a player.
	KindPlayer Kind = "player"
	// KindCreature targets a creature on a battlefield.
	KindCreature Kind = "creature"
	// KindArtifact targets an artifact on a battlefield.
	KindArtifact Kind = "artifact"
)

// Target is a tagged union over players and battlefield units. Equality is
// structural over (Kind, PlayerID, InstanceID); InstanceID is empty for
// player targets.
type Target struct {
	Kind       Kind   `json:"kind"`
	PlayerID   string `json:"playerId"`
	InstanceID string `json:"instanceId,omitempty"`
}

// SelectorKind restricts which target kinds a selector accepts.
type SelectorKind string

const (
	// SelectPlayer accepts player targets only.
	SelectPlayer SelectorKind = "player"
	// SelectCreature accepts creature targets only.
	SelectCreature SelectorKind = "creature"
	// SelectAny accepts players, creatures and artifacts.
	SelectAny SelectorKind = "any"
)

// Selector describes what a spell or attack needs the player to pick.
type Selector struct {
	// Count is the required number of targets.
	Count int `json:"count"`
	// Kind restricts the accepted target kinds.
	Kind SelectorKind `json:"kind"`
	// CanTargetSelf allows the selecting player's own entities as targets.
	CanTargetSelf bool `json:"canTargetSelf"`
	// AutoTarget skips the interactive prompt when exactly one legal
	// target exists.
	AutoTarget bool `json:"autoTarget"`
	// Description is shown to the player during selection.
	Description string `json:"description"`
}

// ContextType distinguishes spell-cast targeting from attack targeting.
type ContextType string

const (
	// ContextSpell is a targeting session opened while casting a spell.
	ContextSpell ContextType = "spell"
	// ContextAttack is a targeting session opened while declaring an attack.
	ContextAttack ContextType = "attack"
)

// Context records why a targeting session was opened and for whom.
type Context struct {
	Type     ContextType
	PlayerID string
	// AttackerInstanceID identifies the attacking unit (attack sessions).
	AttackerInstanceID string
	// AttackPolicy further restricts legal target kinds for attacks. A nil
	// policy allows players, creatures and artifacts alike.
	AttackPolicy *catalog.AttackTargeting
}

// Unit is a battlefield entry as seen by the targeting resolver.
type Unit struct {
	Kind       Kind
	InstanceID string
}

// Board provides the read-only view of the game the resolver needs to
// judge target legality. Implementations must reflect current state at the
// time of each click.
type Board interface {
	// Players returns the player ids in seat order.
	Players() []string
	// Units returns a player's battlefield entries in battlefield order.
	Units(playerID string) []Unit
}
