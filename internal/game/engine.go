package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
	"github.com/spellstone/spellstone-server-go/internal/game/effects"
	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
)

// Store is the external document store the engine mutates games through.
// Apply must be atomic: the callback runs against the latest version of
// the document with exclusive ownership, and a callback error publishes
// nothing. Persistence and replication live entirely behind this
// interface.
type Store interface {
	// Create persists a new game document.
	Create(ctx context.Context, state *GameState) error
	// Load returns a snapshot of the current document.
	Load(ctx context.Context, gameID string) (*GameState, error)
	// Apply runs mutate against the latest document and publishes the
	// result atomically, returning the published state.
	Apply(ctx context.Context, gameID string, mutate func(*GameState) error) (*GameState, error)
}

// ErrWrongPasscode is returned by JoinGame when the passcode check fails.
var ErrWrongPasscode = errors.New("wrong passcode")

// Engine is the rule engine facade. All gameplay flows through it: it
// owns the targeting session per game, runs effect scripts through the
// two-phase interpreter, and commits every mutation through the store's
// atomic apply boundary.
type Engine struct {
	logger *zap.Logger
	cat    *catalog.Catalog
	store  Store
	rules  Rules
	interp *effects.Interpreter
	bus    *EventBus

	mu       sync.Mutex
	sessions map[string]*targeting.Session
}

// NewEngine creates an engine over a store and catalog.
func NewEngine(store Store, cat *catalog.Catalog, rules Rules, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:   logger,
		cat:      cat,
		store:    store,
		rules:    rules,
		interp:   effects.NewInterpreter(logger),
		bus:      NewEventBus(),
		sessions: make(map[string]*targeting.Session),
	}
}

// Bus returns the engine's notification bus.
func (e *Engine) Bus() *EventBus { return e.bus }

// Catalog returns the immutable card catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// CreateGame creates a waiting game with the standard deck. A non-empty
// passcode is stored as a bcrypt hash and required on join.
func (e *Engine) CreateGame(ctx context.Context, players []string, passcode string) (string, error) {
	deck, err := catalog.StandardDeck(e.cat)
	if err != nil {
		return "", err
	}

	var hash []byte
	if passcode != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash passcode: %w", err)
		}
	}

	state, err := NewGameState(players, deck, e.rules, hash)
	if err != nil {
		return "", err
	}
	if err := e.store.Create(ctx, state); err != nil {
		return "", err
	}

	e.logger.Info("game created",
		zap.String("game_id", state.ID),
		zap.Strings("players", players),
	)
	return state.ID, nil
}

// JoinGame verifies that a player may attach to a game, checking the
// passcode when one was set at creation.
func (e *Engine) JoinGame(ctx context.Context, gameID, playerID, passcode string) error {
	state, err := e.store.Load(ctx, gameID)
	if err != nil {
		return err
	}
	if !state.HasPlayer(playerID) {
		return fmt.Errorf("player %q is not seated in game %s", playerID, gameID)
	}
	if len(state.PasscodeHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(state.PasscodeHash, []byte(passcode)); err != nil {
			return ErrWrongPasscode
		}
	}
	return nil
}

// StartGame shuffles, deals, and begins play.
func (e *Engine) StartGame(ctx context.Context, gameID string) error {
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		if !StartGame(state, e.rules) {
			return fmt.Errorf("game %s is not waiting to start", gameID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.publishState(state)
	return nil
}

// State returns a snapshot of the current game document.
func (e *Engine) State(ctx context.Context, gameID string) (*GameState, error) {
	return e.store.Load(ctx, gameID)
}

// GameLog returns the game's append-only log.
func (e *Engine) GameLog(ctx context.Context, gameID string) ([]LogEntry, error) {
	state, err := e.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return state.GameLog, nil
}

// session returns the game's targeting session, creating it on first use.
func (e *Engine) session(gameID string) *targeting.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[gameID]
	if !ok {
		s = targeting.NewSession()
		e.sessions[gameID] = s
	}
	return s
}

// TargetingActive reports whether a targeting session is open for a game.
func (e *Engine) TargetingActive(gameID string) bool {
	return e.session(gameID).Active()
}

// HandleTargetClick forwards a player's click to the open session.
func (e *Engine) HandleTargetClick(gameID string, t targeting.Target) error {
	return e.session(gameID).HandleTargetClick(t)
}

// ConfirmTargets confirms the open session's selection.
func (e *Engine) ConfirmTargets(gameID string, targets []targeting.Target) error {
	return e.session(gameID).ConfirmSelection(targets)
}

// CancelTargeting cancels the open session.
func (e *Engine) CancelTargeting(gameID string) error {
	return e.session(gameID).Cancel()
}

// PlayCard is the mutation surface for playing a card from hand. Scripted
// spells are routed through the two-phase cast path; everything else
// resolves synchronously. Precondition violations fail silently with a
// log entry; the boolean reports whether the play happened.
func (e *Engine) PlayCard(ctx context.Context, gameID, playerID, cardID string) (bool, error) {
	if e.TargetingActive(gameID) {
		return false, targeting.ErrSessionActive
	}

	if def, ok := e.cat.Get(cardID); ok && def.Type == catalog.CardTypeSpell && len(def.SpellEffect) > 0 {
		return e.CastSpell(ctx, gameID, playerID, cardID)
	}

	var played bool
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		played = PlayCard(state, e.cat, playerID, cardID)
		if played {
			e.fireTriggers(state, playerID, catalog.TriggerPlayCard)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	e.publishState(state)
	return played, nil
}

// EndTurn ends the current player's turn: end_turn triggers fire for the
// departing player, the seat rotates, the new current player gains energy
// and draws, and start_turn triggers fire. Rejected while a targeting
// session is open.
func (e *Engine) EndTurn(ctx context.Context, gameID, playerID string) (bool, error) {
	if e.TargetingActive(gameID) {
		return false, targeting.ErrSessionActive
	}

	var ended bool
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		if state.Status != StatusPlaying || state.CurrentPlayer() != playerID {
			logRefused(state, playerID, "", "cannot end turn now")
			return nil
		}

		e.fireTriggers(state, playerID, catalog.TriggerEndTurn)
		if state.Status != StatusPlaying {
			ended = true
			return nil
		}

		next := AdvanceTurn(state, e.rules)
		AddGameLogEntry(state, LogEntry{
			PlayerID:    playerID,
			Action:      ActionEndTurn,
			Description: fmt.Sprintf("%s ends the turn, %s is up", playerID, next),
		})
		DrawCard(state, next)
		e.fireTriggers(state, next, catalog.TriggerStartTurn)
		ended = true
		return nil
	})
	if err != nil {
		return false, err
	}
	e.publishState(state)
	return ended, nil
}

// StartAttack opens an attack targeting session for the given attacker
// and resolves the attack once the player confirms a defender. With a
// single-target selector, the first legal click confirms immediately.
// Cancellation resolves to a no-op.
func (e *Engine) StartAttack(ctx context.Context, gameID, playerID, attackerInstanceID string) (bool, error) {
	snapshot, err := e.store.Load(ctx, gameID)
	if err != nil {
		return false, err
	}
	if snapshot.Status != StatusPlaying || snapshot.CurrentPlayer() != playerID {
		return false, nil
	}
	bc, _, ok := snapshot.FindUnit(playerID, attackerInstanceID)
	if !ok || bc.Sapped {
		return false, nil
	}
	def, ok := e.cat.Get(bc.CardID)
	if !ok || def.Attack <= 0 {
		return false, nil
	}

	sel := targeting.Selector{
		Count:       1,
		Kind:        targeting.SelectAny,
		Description: fmt.Sprintf("Choose a target for %s", def.Name),
	}
	tctx := targeting.Context{
		Type:               targeting.ContextAttack,
		PlayerID:           playerID,
		AttackerInstanceID: attackerInstanceID,
		AttackPolicy:       def.AttackTargeting,
	}

	out, err := e.awaitSelection(ctx, gameID, sel, tctx)
	if err != nil {
		return false, err
	}
	if !out.Confirmed {
		return false, nil
	}
	target := out.Targets[0]

	var attacked bool
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		if target.Kind == targeting.KindPlayer {
			attacked = AttackPlayerWithCreature(state, e.cat, playerID, attackerInstanceID, target.PlayerID, 0)
		} else {
			attacked = AttackCreatureWithCreature(state, e.cat, playerID, attackerInstanceID, target.PlayerID, target.InstanceID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	e.publishState(state)
	return attacked, nil
}

// CastSpell resolves a scripted spell through the two-phase interpreter.
// Phase one runs the script against a snapshot and the targeting
// resolver, staging operations; phase two replays them inside the store's
// atomic apply after re-verifying affordability and paying costs. A
// cancelled selection leaves all costs unpaid; a script failure records a
// failed-cast log entry and mutates nothing else.
func (e *Engine) CastSpell(ctx context.Context, gameID, playerID, cardID string) (bool, error) {
	if e.TargetingActive(gameID) {
		return false, targeting.ErrSessionActive
	}

	snapshot, err := e.store.Load(ctx, gameID)
	if err != nil {
		return false, err
	}

	def, ok := e.cat.Get(cardID)
	refusal := ""
	switch {
	case !ok:
		refusal = "unknown card"
	case def.Type != catalog.CardTypeSpell || len(def.SpellEffect) == 0:
		refusal = "card is not a scripted spell"
	case snapshot.Status != StatusPlaying || snapshot.CurrentPlayer() != playerID:
		refusal = "not this player's turn"
	case !handContains(snapshot, playerID, cardID):
		refusal = "card not in hand"
	case snapshot.PlayerStates[playerID].Energy < def.Cost:
		refusal = "not enough energy"
	}
	if refusal != "" {
		state, applyErr := e.store.Apply(ctx, gameID, func(state *GameState) error {
			logRefused(state, playerID, cardID, refusal)
			return nil
		})
		if applyErr != nil {
			return false, applyErr
		}
		e.publishState(state)
		return false, nil
	}

	script, err := effects.ParseScript(def.SpellEffect)
	if err != nil {
		return false, e.logCastFailure(ctx, gameID, playerID, cardID, def.Name)
	}

	// Phase one: stage operations against the snapshot; interactive
	// target prompts suspend here.
	env := &castEnv{engine: e, gameID: gameID, caster: playerID, opponent: snapshot.NextPlayer(playerID)}
	ops, err := e.interp.Run(ctx, script, env)
	if err != nil {
		if errors.Is(err, effects.ErrCancelled) {
			// The player changed their mind; nothing happened.
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		e.logger.Warn("spell script failed",
			zap.String("game_id", gameID),
			zap.String("card_id", cardID),
			zap.Error(err),
		)
		return false, e.logCastFailure(ctx, gameID, playerID, cardID, def.Name)
	}

	// Phase two: pay costs and replay the staged operations in recorded
	// order, all inside one atomic apply against fresh state.
	var cast bool
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		if state.Status != StatusPlaying || state.CurrentPlayer() != playerID ||
			!handContains(state, playerID, cardID) ||
			state.PlayerStates[playerID].Energy < def.Cost {
			logRefused(state, playerID, cardID, "spell is no longer castable")
			return nil
		}

		SpendEnergy(state, playerID, def.Cost)
		RemoveCardFromHand(state, playerID, cardID)
		AddCardToGraveyard(state, playerID, cardID)
		AddGameLogEntry(state, LogEntry{
			PlayerID:    playerID,
			Action:      ActionCast,
			CardID:      cardID,
			Description: fmt.Sprintf("%s casts %s", playerID, def.Name),
		})
		for _, op := range ops {
			e.applyOperation(state, op)
		}
		e.fireTriggers(state, playerID, catalog.TriggerPlayCard)
		cast = true
		return nil
	})
	if err != nil {
		return false, err
	}
	e.publishState(state)
	return cast, nil
}

func (e *Engine) logCastFailure(ctx context.Context, gameID, playerID, cardID, cardName string) error {
	state, err := e.store.Apply(ctx, gameID, func(state *GameState) error {
		AddGameLogEntry(state, LogEntry{
			PlayerID:    playerID,
			Action:      ActionCastFailed,
			CardID:      cardID,
			Description: fmt.Sprintf("%s failed to cast %s", playerID, cardName),
		})
		return nil
	})
	if err != nil {
		return err
	}
	e.publishState(state)
	return nil
}

// applyOperation replays one staged operation against real state.
// Operations whose target vanished since staging degrade to no-ops.
func (e *Engine) applyOperation(state *GameState, op effects.Operation) {
	switch op.Kind {
	case effects.OperationDamagePlayer:
		DealDamageToPlayer(state, op.PlayerID, op.Amount)
	case effects.OperationDamageUnit:
		DealDamageToCreature(state, op.PlayerID, op.InstanceID, op.Amount)
	case effects.OperationHealPlayer:
		HealPlayer(state, op.PlayerID, op.Amount)
	case effects.OperationHealUnit:
		HealCreature(state, e.cat, op.PlayerID, op.InstanceID, op.Amount)
	case effects.OperationDrawCards:
		for i := 0; i < op.Amount; i++ {
			DrawCard(state, op.PlayerID)
		}
	case effects.OperationGainEnergy:
		GainEnergy(state, op.PlayerID, op.Amount)
	case effects.OperationDestroyUnit:
		DestroyCreature(state, op.PlayerID, op.InstanceID)
	}
}

// fireTriggers runs the artifact abilities bound to a lifecycle event for
// one player, iterating the battlefield in order. A failing script is
// logged and isolated; the remaining triggers still fire. Trigger scripts
// are non-interactive, so phase one and two collapse into the enclosing
// mutation.
func (e *Engine) fireTriggers(state *GameState, playerID string, trigger catalog.TriggerEvent) {
	field := append([]BattlefieldCard(nil), state.Battlefields[playerID]...)
	env := &triggerEnv{caster: playerID, opponent: state.NextPlayer(playerID)}

	for _, bc := range field {
		def, ok := e.cat.Get(bc.CardID)
		if !ok || def.Type != catalog.CardTypeArtifact {
			continue
		}
		// The unit may have been destroyed by an earlier trigger.
		if _, _, alive := state.FindUnit(playerID, bc.InstanceID); !alive {
			continue
		}
		for _, ability := range def.ArtifactAbilities {
			if ability.Trigger != trigger {
				continue
			}
			ops, err := e.runTriggerScript(ability.Effect, env)
			if err != nil {
				e.logger.Warn("artifact trigger failed",
					zap.String("game_id", state.ID),
					zap.String("card_id", bc.CardID),
					zap.Error(err),
				)
				AddGameLogEntry(state, LogEntry{
					PlayerID:    playerID,
					Action:      ActionTriggerErr,
					CardID:      bc.CardID,
					Description: fmt.Sprintf("%s's ability failed to trigger", def.Name),
				})
				continue
			}
			AddGameLogEntry(state, LogEntry{
				PlayerID:    playerID,
				Action:      ActionTrigger,
				CardID:      bc.CardID,
				Description: fmt.Sprintf("%s triggers: %s", def.Name, ability.Description),
			})
			for _, op := range ops {
				e.applyOperation(state, op)
			}
		}
	}
}

func (e *Engine) runTriggerScript(raw []byte, env effects.Env) ([]effects.Operation, error) {
	script, err := effects.ParseScript(raw)
	if err != nil {
		return nil, err
	}
	return e.interp.Run(context.Background(), script, env)
}

// awaitSelection opens a targeting session and blocks until the player
// confirms or cancels, or ctx is done.
func (e *Engine) awaitSelection(ctx context.Context, gameID string, sel targeting.Selector, tctx targeting.Context) (targeting.Outcome, error) {
	session := e.session(gameID)
	board := &boardView{engine: e, gameID: gameID}

	ch, err := session.Start(sel, tctx, board)
	if err != nil {
		return targeting.Outcome{}, err
	}

	e.bus.Publish(Event{
		Type:        EventTargetingPrompt,
		GameID:      gameID,
		PlayerID:    tctx.PlayerID,
		Description: sel.Description,
	})
	defer e.bus.Publish(Event{
		Type:     EventTargetingClosed,
		GameID:   gameID,
		PlayerID: tctx.PlayerID,
	})

	select {
	case out := <-ch:
		return out, nil
	case <-ctx.Done():
		if cancelErr := session.Cancel(); cancelErr == nil {
			<-ch
		}
		return targeting.Outcome{}, ctx.Err()
	}
}

func (e *Engine) publishState(state *GameState) {
	if state == nil {
		return
	}
	e.bus.Publish(Event{Type: EventStateChanged, GameID: state.ID})
	if state.Status == StatusFinished {
		e.bus.Publish(Event{Type: EventGameFinished, GameID: state.ID})
	}
}

// castEnv is the phase-one capability surface for spell scripts. Target
// selection routes through the engine's targeting session; everything
// else is pure data from the pre-cast snapshot.
type castEnv struct {
	engine   *Engine
	gameID   string
	caster   string
	opponent string
}

func (env *castEnv) CasterID() string   { return env.caster }
func (env *castEnv) OpponentID() string { return env.opponent }

func (env *castEnv) SelectTargets(ctx context.Context, sel targeting.Selector) ([]targeting.Target, error) {
	tctx := targeting.Context{Type: targeting.ContextSpell, PlayerID: env.caster}
	out, err := env.engine.awaitSelection(ctx, env.gameID, sel, tctx)
	if err != nil {
		return nil, err
	}
	if !out.Confirmed {
		return nil, effects.ErrCancelled
	}
	return out.Targets, nil
}

// triggerEnv is the capability surface for artifact trigger scripts. The
// current card set never prompts during a trigger, so interactive
// selection is a script error here.
type triggerEnv struct {
	caster   string
	opponent string
}

func (env *triggerEnv) CasterID() string   { return env.caster }
func (env *triggerEnv) OpponentID() string { return env.opponent }

func (env *triggerEnv) SelectTargets(context.Context, targeting.Selector) ([]targeting.Target, error) {
	return nil, errors.New("interactive targeting is not available in trigger context")
}

// boardView adapts the live document to the targeting resolver's Board,
// so legality reflects current state at the time of each click.
type boardView struct {
	engine *Engine
	gameID string
}

func (b *boardView) Players() []string {
	state, err := b.engine.store.Load(context.Background(), b.gameID)
	if err != nil {
		return nil
	}
	return state.Players
}

func (b *boardView) Units(playerID string) []targeting.Unit {
	state, err := b.engine.store.Load(context.Background(), b.gameID)
	if err != nil {
		return nil
	}
	units := make([]targeting.Unit, 0, len(state.Battlefields[playerID]))
	for _, bc := range state.Battlefields[playerID] {
		kind := targeting.KindCreature
		if def, ok := b.engine.cat.Get(bc.CardID); ok && def.Type == catalog.CardTypeArtifact {
			kind = targeting.KindArtifact
		}
		units = append(units, targeting.Unit{Kind: kind, InstanceID: bc.InstanceID})
	}
	return units
}
