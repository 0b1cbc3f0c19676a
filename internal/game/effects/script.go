package effects

import (
	"encoding/json"
	"fmt"

	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
)

// OpCode names an instruction in an effect script.
type OpCode string

const (
	// OpSelectTargets suspends the script on an interactive target prompt.
	OpSelectTargets OpCode = "select_targets"
	// OpDealDamage damages each resolved target.
	OpDealDamage OpCode = "deal_damage"
	// OpHeal heals each resolved target.
	OpHeal OpCode = "heal"
	// OpDrawCards draws cards for each resolved player target.
	OpDrawCards OpCode = "draw_cards"
	// OpGainEnergy grants energy to each resolved player target.
	OpGainEnergy OpCode = "gain_energy"
	// OpDestroy destroys each resolved unit target outright.
	OpDestroy OpCode = "destroy"
)

// TargetMode selects which entities an instruction applies to.
type TargetMode string

const (
	// ModeCaster resolves to the casting player.
	ModeCaster TargetMode = "caster"
	// ModeOpponent resolves to the next player after the caster in seat
	// order.
	ModeOpponent TargetMode = "opponent"
	// ModeSelected resolves to the most recent select_targets result.
	ModeSelected TargetMode = "selected"
)

// Instruction is one step of an effect script. Card data carries scripts
// as JSON lists of these; no host-language code is ever embedded in a
// card definition.
type Instruction struct {
	Op       OpCode              `json:"op"`
	Amount   int                 `json:"amount,omitempty"`
	Count    int                 `json:"count,omitempty"`
	To       TargetMode          `json:"to,omitempty"`
	Selector *targeting.Selector `json:"selector,omitempty"`
}

// Script is an ordered effect program.
type Script []Instruction

// ParseScript decodes and validates a serialized effect script.
func ParseScript(raw json.RawMessage) (Script, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty effect script")
	}
	var script Script
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("decode effect script: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return script, nil
}

// Validate checks every instruction for structural legality. Validation
// failures are content errors; they surface at catalog load or cast time,
// never as partial execution.
func (s Script) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("effect script has no instructions")
	}
	for i, ins := range s {
		switch ins.Op {
		case OpSelectTargets:
			if ins.Selector == nil {
				return fmt.Errorf("instruction %d: select_targets requires a selector", i)
			}
			if ins.Selector.Count < 1 {
				return fmt.Errorf("instruction %d: selector count must be at least 1", i)
			}
			switch ins.Selector.Kind {
			case targeting.SelectPlayer, targeting.SelectCreature, targeting.SelectAny:
			default:
				return fmt.Errorf("instruction %d: unknown selector kind %q", i, ins.Selector.Kind)
			}
		case OpDealDamage, OpHeal, OpGainEnergy:
			if ins.Amount < 1 {
				return fmt.Errorf("instruction %d: %s requires a positive amount", i, ins.Op)
			}
			if err := validateMode(ins.To); err != nil {
				return fmt.Errorf("instruction %d: %w", i, err)
			}
		case OpDrawCards:
			if ins.Count < 1 {
				return fmt.Errorf("instruction %d: draw_cards requires a positive count", i)
			}
			if err := validateMode(ins.To); err != nil {
				return fmt.Errorf("instruction %d: %w", i, err)
			}
		case OpDestroy:
			if ins.To != ModeSelected {
				return fmt.Errorf("instruction %d: destroy applies to selected targets only", i)
			}
		default:
			return fmt.Errorf("instruction %d: unknown op %q", i, ins.Op)
		}
	}
	return nil
}

func validateMode(mode TargetMode) error {
	switch mode {
	case ModeCaster, ModeOpponent, ModeSelected:
		return nil
	}
	return fmt.Errorf("unknown target mode %q", mode)
}

// RequiresTargeting reports whether the script contains an interactive
// select_targets instruction.
func (s Script) RequiresTargeting() bool {
	for _, ins := range s {
		if ins.Op == OpSelectTargets {
			return true
		}
	}
	return false
}
