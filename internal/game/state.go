package game

import (
	"time"
)

// Status is the lifecycle state of a game document.
type Status string

const (
	// StatusWaiting means the game exists but has not started.
	StatusWaiting Status = "waiting"
	// StatusPlaying means turns are in progress.
	StatusPlaying Status = "playing"
	// StatusFinished is terminal.
	StatusFinished Status = "finished"
)

// LogEntry is one append-only game log record. Ordering is the causal
// order of mutation application.
type LogEntry struct {
	PlayerID    string    `json:"playerId,omitempty"`
	Action      string    `json:"action"`
	CardID      string    `json:"cardId,omitempty"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlayerState holds a player's vitals. Players are created at game start
// and never destroyed; a player at 0 health stays present.
type PlayerState struct {
	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`
	Energy    int `json:"energy"`
	MaxEnergy int `json:"maxEnergy"`
}

// BattlefieldCard is one physical copy of a card in play. InstanceID is
// minted when the card enters play and never reused; CardID references
// the immutable catalog definition. All mutable per-copy state lives
// here, never in the catalog.
type BattlefieldCard struct {
	InstanceID    string `json:"instanceId"`
	CardID        string `json:"cardId"`
	Sapped        bool   `json:"sapped"`
	CurrentHealth int    `json:"currentHealth"`
}

// GameState is the shared mutable game document. The engine mutates it
// only inside the document store's atomic apply boundary; it carries no
// locks of its own.
type GameState struct {
	ID string `json:"id"`
	// Players is the seat order, fixed for the game's lifetime.
	Players            []string                     `json:"players"`
	CurrentPlayerIndex int                          `json:"currentPlayerIndex"`
	Turn               int                          `json:"turn"`
	Status             Status                       `json:"status"`
	PlayerStates       map[string]*PlayerState      `json:"playerStates"`
	Hands              map[string][]string          `json:"hands"`
	Battlefields       map[string][]BattlefieldCard `json:"battlefields"`
	// Deck is the shared draw pile; the head is the next card drawn.
	Deck       []string            `json:"deck"`
	Graveyards map[string][]string `json:"graveyards"`
	// PasscodeHash is the bcrypt hash of the join passcode, if one was
	// set at creation.
	PasscodeHash []byte     `json:"passcodeHash,omitempty"`
	GameLog      []LogEntry `json:"gameLog"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[s.CurrentPlayerIndex]
}

// HasPlayer reports whether a player id is seated in this game.
func (s *GameState) HasPlayer(playerID string) bool {
	for _, id := range s.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// NextPlayer returns the player seated after the given one, wrapping
// around seat order.
func (s *GameState) NextPlayer(playerID string) string {
	for i, id := range s.Players {
		if id == playerID {
			return s.Players[(i+1)%len(s.Players)]
		}
	}
	return ""
}

// FindUnit locates a battlefield entry by owner and instance id. The
// returned pointer aliases the state's slice entry; it is invalidated by
// battlefield removals.
func (s *GameState) FindUnit(playerID, instanceID string) (*BattlefieldCard, int, bool) {
	field := s.Battlefields[playerID]
	for i := range field {
		if field[i].InstanceID == instanceID {
			return &field[i], i, true
		}
	}
	return nil, -1, false
}

// Clone returns a deep copy of the state. Stores use it to keep the
// published document isolated from in-flight mutations.
func (s *GameState) Clone() *GameState {
	cp := *s

	cp.Players = append([]string(nil), s.Players...)
	cp.Deck = append([]string(nil), s.Deck...)
	cp.GameLog = append([]LogEntry(nil), s.GameLog...)
	cp.PasscodeHash = append([]byte(nil), s.PasscodeHash...)

	cp.PlayerStates = make(map[string]*PlayerState, len(s.PlayerStates))
	for id, ps := range s.PlayerStates {
		psCopy := *ps
		cp.PlayerStates[id] = &psCopy
	}

	cp.Hands = make(map[string][]string, len(s.Hands))
	for id, hand := range s.Hands {
		cp.Hands[id] = append([]string(nil), hand...)
	}

	cp.Battlefields = make(map[string][]BattlefieldCard, len(s.Battlefields))
	for id, field := range s.Battlefields {
		cp.Battlefields[id] = append([]BattlefieldCard(nil), field...)
	}

	cp.Graveyards = make(map[string][]string, len(s.Graveyards))
	for id, g := range s.Graveyards {
		cp.Graveyards[id] = append([]string(nil), g...)
	}

	return &cp
}
