package effects

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
)

// OperationKind names a staged mutation recorded during phase one.
type OperationKind string

const (
	OperationDamagePlayer OperationKind = "damage_player"
	OperationDamageUnit   OperationKind = "damage_unit"
	OperationHealPlayer   OperationKind = "heal_player"
	OperationHealUnit     OperationKind = "heal_unit"
	OperationDrawCards    OperationKind = "draw_cards"
	OperationGainEnergy   OperationKind = "gain_energy"
	OperationDestroyUnit  OperationKind = "destroy_unit"
)

// Operation is one entry of the staged operation log. Phase one appends
// operations instead of mutating state; phase two replays them in recorded
// order inside the synchronous mutation boundary. Unit operations cover
// creatures and artifacts alike; InstanceID identifies the battlefield
// entry.
type Operation struct {
	Kind       OperationKind `json:"kind"`
	PlayerID   string        `json:"playerId"`
	InstanceID string        `json:"instanceId,omitempty"`
	Amount     int           `json:"amount,omitempty"`
}

// ErrCancelled reports that the player cancelled a required target
// selection. It is a normal terminal outcome, not a script failure; the
// caller must leave all costs unpaid.
var ErrCancelled = errors.New("target selection cancelled")

// Env is the capability surface a script runs against during phase one.
// It exposes no mutable state: the only side effect a script can have is
// the operation log the interpreter returns.
type Env interface {
	// CasterID returns the player running the effect.
	CasterID() string
	// OpponentID returns the next player after the caster in seat order.
	OpponentID() string
	// SelectTargets suspends until the targeting resolver confirms or
	// cancels. Implementations return ErrCancelled on cancellation and
	// honor ctx for abandonment.
	SelectTargets(ctx context.Context, sel targeting.Selector) ([]targeting.Target, error)
}

// Interpreter runs effect scripts. Phase one (Run) executes the script
// against an Env and a staging operation log; it performs no real
// mutation, so a script that fails midway leaves nothing to undo.
type Interpreter struct {
	logger *zap.Logger
}

// NewInterpreter creates an interpreter.
func NewInterpreter(logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{logger: logger}
}

// Run executes phase one of a script and returns the staged operation
// log. On any error (including ErrCancelled) the returned log is nil and
// the caller must not apply anything.
func (it *Interpreter) Run(ctx context.Context, script Script, env Env) ([]Operation, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}

	var (
		ops      []Operation
		selected []targeting.Target
		haveSel  bool
	)

	for i, ins := range script {
		switch ins.Op {
		case OpSelectTargets:
			targets, err := env.SelectTargets(ctx, *ins.Selector)
			if err != nil {
				return nil, err
			}
			if len(targets) == 0 {
				return nil, ErrCancelled
			}
			selected = targets
			haveSel = true

		case OpDealDamage:
			targets, err := resolveTargets(ins.To, env, selected, haveSel)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			for _, t := range targets {
				if t.Kind == targeting.KindPlayer {
					ops = append(ops, Operation{Kind: OperationDamagePlayer, PlayerID: t.PlayerID, Amount: ins.Amount})
				} else {
					ops = append(ops, Operation{Kind: OperationDamageUnit, PlayerID: t.PlayerID, InstanceID: t.InstanceID, Amount: ins.Amount})
				}
			}

		case OpHeal:
			targets, err := resolveTargets(ins.To, env, selected, haveSel)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			for _, t := range targets {
				if t.Kind == targeting.KindPlayer {
					ops = append(ops, Operation{Kind: OperationHealPlayer, PlayerID: t.PlayerID, Amount: ins.Amount})
				} else {
					ops = append(ops, Operation{Kind: OperationHealUnit, PlayerID: t.PlayerID, InstanceID: t.InstanceID, Amount: ins.Amount})
				}
			}

		case OpDrawCards:
			targets, err := resolvePlayerTargets(ins.To, env, selected, haveSel)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			for _, t := range targets {
				ops = append(ops, Operation{Kind: OperationDrawCards, PlayerID: t.PlayerID, Amount: ins.Count})
			}

		case OpGainEnergy:
			targets, err := resolvePlayerTargets(ins.To, env, selected, haveSel)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			for _, t := range targets {
				ops = append(ops, Operation{Kind: OperationGainEnergy, PlayerID: t.PlayerID, Amount: ins.Amount})
			}

		case OpDestroy:
			targets, err := resolveTargets(ins.To, env, selected, haveSel)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			for _, t := range targets {
				if t.Kind == targeting.KindPlayer {
					return nil, fmt.Errorf("instruction %d: cannot destroy a player", i)
				}
				ops = append(ops, Operation{Kind: OperationDestroyUnit, PlayerID: t.PlayerID, InstanceID: t.InstanceID})
			}
		}
	}

	it.logger.Debug("effect script staged",
		zap.String("caster", env.CasterID()),
		zap.Int("instructions", len(script)),
		zap.Int("operations", len(ops)),
	)

	return ops, nil
}

func resolveTargets(mode TargetMode, env Env, selected []targeting.Target, haveSel bool) ([]targeting.Target, error) {
	switch mode {
	case ModeCaster:
		return []targeting.Target{{Kind: targeting.KindPlayer, PlayerID: env.CasterID()}}, nil
	case ModeOpponent:
		return []targeting.Target{{Kind: targeting.KindPlayer, PlayerID: env.OpponentID()}}, nil
	case ModeSelected:
		if !haveSel {
			return nil, errors.New("no targets selected before use")
		}
		return selected, nil
	}
	return nil, fmt.Errorf("unknown target mode %q", mode)
}

func resolvePlayerTargets(mode TargetMode, env Env, selected []targeting.Target, haveSel bool) ([]targeting.Target, error) {
	targets, err := resolveTargets(mode, env, selected, haveSel)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if t.Kind != targeting.KindPlayer {
			return nil, fmt.Errorf("target %s/%s is not a player", t.PlayerID, t.InstanceID)
		}
	}
	return targets, nil
}
