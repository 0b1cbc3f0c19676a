package server

import "github.com/spellstone/spellstone-server-go/internal/game"

// Client message types.
const (
	msgCreateGame     = "create_game"
	msgJoinGame       = "join_game"
	msgStartGame      = "start_game"
	msgGetState       = "get_state"
	msgGetLog         = "get_log"
	msgPlayCard       = "play_card"
	msgAttack         = "attack"
	msgEndTurn        = "end_turn"
	msgTargetClick    = "target_click"
	msgConfirmTargets = "confirm_targets"
	msgCancelTargets  = "cancel_targeting"
)

// Server message types.
const (
	msgGameCreated = "game_created"
	msgJoined      = "joined"
	msgState       = "state"
	msgLog         = "log"
	msgActionDone  = "action_done"
	msgError       = "error"
	msgEvent       = "event"
)

// targetPayload is the wire form of a targeting click or selection.
type targetPayload struct {
	Kind       string `json:"kind"`
	PlayerID   string `json:"playerId,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
}

// clientMessage is a single action sent by a client over the websocket.
type clientMessage struct {
	Type       string          `json:"type"`
	GameID     string          `json:"gameId,omitempty"`
	PlayerID   string          `json:"playerId,omitempty"`
	Players    []string        `json:"players,omitempty"`
	Passcode   string          `json:"passcode,omitempty"`
	CardID     string          `json:"cardId,omitempty"`
	AttackerID string          `json:"attackerId,omitempty"`
	Target     *targetPayload  `json:"target,omitempty"`
	Targets    []targetPayload `json:"targets,omitempty"`
}

// serverMessage is a reply or notification sent to clients.
type serverMessage struct {
	Type    string          `json:"type"`
	GameID  string          `json:"gameId,omitempty"`
	Action  string          `json:"action,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	State   *game.GameState `json:"state,omitempty"`
	Log     []game.LogEntry `json:"log,omitempty"`
	Event   string          `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}
