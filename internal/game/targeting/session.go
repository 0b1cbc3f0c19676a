package targeting

import (
	"errors"
	"sync"
)

// State is the resolver's position in its Idle -> Selecting ->
// {Confirmed, Cancelled} state machine. Confirmed and Cancelled are
// terminal for one selection; Start accepts a new selection from either.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateConfirmed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSelecting:
		return "SELECTING"
	case StateConfirmed:
		return "CONFIRMED"
	case StateCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Outcome is the terminal result of one targeting session. A cancelled
// session carries no targets and callers must treat it as a no-op.
type Outcome struct {
	Confirmed bool
	Targets   []Target
}

var (
	// ErrSessionActive is returned by Start while a selection is open.
	ErrSessionActive = errors.New("targeting session already active")
	// ErrNoSession is returned when no selection is open.
	ErrNoSession = errors.New("no targeting session active")
	// ErrIllegalTarget is returned when a clicked target fails legality.
	ErrIllegalTarget = errors.New("illegal target")
	// ErrEmptySelection is returned when confirming without targets.
	ErrEmptySelection = errors.New("selection is empty")
	// ErrTooManyTargets is returned when the selection would exceed the
	// selector's target count.
	ErrTooManyTargets = errors.New("too many targets")
)

// Session is the interactive targeting resolver for one game. It
// accumulates a selection from player clicks, enforces legality against
// the board, and delivers the outcome on the channel returned by Start.
// All methods are safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	state    State
	selector Selector
	context  Context
	board    Board
	selected []Target
	result   chan Outcome
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Start opens a selection and returns the channel the outcome will be
// delivered on. The channel is buffered; the sender never blocks. When the
// selector has AutoTarget set and exactly one legal target exists for a
// single-target selection, the session confirms immediately without
// waiting for a click.
func (s *Session) Start(sel Selector, ctx Context, board Board) (<-chan Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSelecting {
		return nil, ErrSessionActive
	}
	if sel.Count < 1 {
		return nil, errors.New("selector target count must be at least 1")
	}
	if board == nil {
		return nil, errors.New("board is required")
	}

	s.selector = sel
	s.context = ctx
	s.board = board
	s.selected = nil
	s.result = make(chan Outcome, 1)
	s.state = StateSelecting

	ch := s.result

	if sel.AutoTarget && sel.Count == 1 {
		if legal := s.legalTargetsLocked(); len(legal) == 1 {
			s.finishLocked(Outcome{Confirmed: true, Targets: []Target{legal[0]}}, StateConfirmed)
		}
	}

	return ch, nil
}

// Active reports whether a selection is currently open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateSelecting
}

// State returns the resolver's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Prompt returns the open selection's selector and context, if any.
func (s *Session) Prompt() (Selector, Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSelecting {
		return Selector{}, Context{}, false
	}
	return s.selector, s.context, true
}

// Selected returns a copy of the accumulated selection.
func (s *Session) Selected() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Target(nil), s.selected...)
}

// HandleTargetClick toggles membership of the clicked target in the
// accumulating selection. For attack sessions with a single-target
// selector, clicking an unselected legal target confirms immediately;
// clicking an already-selected target toggles it off instead.
func (s *Session) HandleTargetClick(t Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelecting {
		return ErrNoSession
	}

	if idx := indexOfTarget(s.selected, t); idx >= 0 {
		s.selected = append(s.selected[:idx], s.selected[idx+1:]...)
		return nil
	}

	if !s.canTargetLocked(t) {
		return ErrIllegalTarget
	}

	if s.context.Type == ContextAttack && s.selector.Count == 1 {
		s.finishLocked(Outcome{Confirmed: true, Targets: []Target{t}}, StateConfirmed)
		return nil
	}

	if len(s.selected) >= s.selector.Count {
		return ErrTooManyTargets
	}
	s.selected = append(s.selected, t)
	return nil
}

// ConfirmSelection confirms either the explicitly passed targets or, when
// targets is nil, the accumulated selection. Only valid once the selection
// is non-empty.
func (s *Session) ConfirmSelection(targets []Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelecting {
		return ErrNoSession
	}

	chosen := targets
	explicit := targets != nil
	if !explicit {
		chosen = s.selected
	}
	if len(chosen) == 0 {
		return ErrEmptySelection
	}
	if len(chosen) > s.selector.Count {
		return ErrTooManyTargets
	}
	if explicit {
		seen := make(map[Target]bool, len(chosen))
		for _, t := range chosen {
			if seen[t] {
				return ErrIllegalTarget
			}
			seen[t] = true
			if !s.canTargetLocked(t) {
				return ErrIllegalTarget
			}
		}
	}

	s.finishLocked(Outcome{Confirmed: true, Targets: append([]Target(nil), chosen...)}, StateConfirmed)
	return nil
}

// Cancel aborts the open selection. The pending outcome resolves to "no
// targets"; callers must treat it as the player changing their mind.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelecting {
		return ErrNoSession
	}
	s.finishLocked(Outcome{Confirmed: false}, StateCancelled)
	return nil
}

func (s *Session) finishLocked(out Outcome, terminal State) {
	s.result <- out
	s.state = terminal
	s.selected = nil
	s.board = nil
}

// canTargetLocked applies the selector's own legality rules and, for
// attack sessions, the defender-kind restrictions of the attacker's
// targeting policy. Both must independently allow the target.
func (s *Session) canTargetLocked(t Target) bool {
	pol := s.context.AttackPolicy
	attack := s.context.Type == ContextAttack

	if !s.selector.CanTargetSelf && t.PlayerID == s.context.PlayerID {
		return false
	}

	switch t.Kind {
	case KindPlayer:
		if s.selector.Kind == SelectCreature {
			return false
		}
		if attack && pol != nil && !pol.CanTargetPlayers {
			return false
		}
		return t.InstanceID == "" && s.playerExistsLocked(t.PlayerID)
	case KindCreature:
		if s.selector.Kind == SelectPlayer {
			return false
		}
		if attack && pol != nil && !pol.CanTargetCreatures {
			return false
		}
		return s.unitExistsLocked(t.PlayerID, t.InstanceID, KindCreature)
	case KindArtifact:
		if s.selector.Kind != SelectAny {
			return false
		}
		if attack && pol != nil && !pol.CanTargetArtifacts {
			return false
		}
		return s.unitExistsLocked(t.PlayerID, t.InstanceID, KindArtifact)
	}
	return false
}

func (s *Session) playerExistsLocked(playerID string) bool {
	for _, id := range s.board.Players() {
		if id == playerID {
			return true
		}
	}
	return false
}

func (s *Session) unitExistsLocked(playerID, instanceID string, kind Kind) bool {
	for _, u := range s.board.Units(playerID) {
		if u.InstanceID == instanceID {
			return u.Kind == kind
		}
	}
	return false
}

// legalTargetsLocked enumerates every legal target on the board in seat
// then battlefield order.
func (s *Session) legalTargetsLocked() []Target {
	var legal []Target
	for _, playerID := range s.board.Players() {
		t := Target{Kind: KindPlayer, PlayerID: playerID}
		if s.canTargetLocked(t) {
			legal = append(legal, t)
		}
		for _, u := range s.board.Units(playerID) {
			t := Target{Kind: u.Kind, PlayerID: playerID, InstanceID: u.InstanceID}
			if s.canTargetLocked(t) {
				legal = append(legal, t)
			}
		}
	}
	return legal
}

func indexOfTarget(targets []Target, t Target) int {
	for i, existing := range targets {
		if existing == t {
			return i
		}
	}
	return -1
}
