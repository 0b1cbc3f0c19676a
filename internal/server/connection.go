package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
)

// Connection is one websocket client. Writes are serialized through a
// mutex; reads happen on the connection's own read loop.
type Connection struct {
	gateway *Gateway
	logger  *zap.Logger

	writeMu sync.Mutex
	ws      *websocket.Conn

	playerID string
	gameID   string
}

func (c *Connection) send(msg serverMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *Connection) sendError(gameID, text string) {
	if err := c.send(serverMessage{Type: msgError, GameID: gameID, Error: text}); err != nil {
		c.logger.Debug("error write failed", zap.Error(err))
	}
}

func (c *Connection) close() {
	c.ws.Close()
}

// readLoop reads client messages until the socket drops, dispatching each
// action against the engine. Blocking actions (casts and attacks waiting
// on target selection) run on their own goroutine so the player can keep
// sending targeting input on this loop.
func (c *Connection) readLoop(ctx context.Context) {
	defer func() {
		c.gateway.hub.Unregister(c)
		c.ws.Close()
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("", "malformed message")
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Connection) dispatch(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case msgCreateGame:
		c.handleCreateGame(ctx, msg)
	case msgJoinGame:
		c.handleJoinGame(ctx, msg)
	case msgStartGame:
		c.handleStartGame(ctx, msg)
	case msgGetState:
		c.handleGetState(ctx, msg)
	case msgGetLog:
		c.handleGetLog(ctx, msg)
	case msgPlayCard:
		go c.handlePlayCard(ctx, msg)
	case msgAttack:
		go c.handleAttack(ctx, msg)
	case msgEndTurn:
		c.handleEndTurn(ctx, msg)
	case msgTargetClick:
		c.handleTargetClick(msg)
	case msgConfirmTargets:
		c.handleConfirmTargets(msg)
	case msgCancelTargets:
		c.handleCancelTargets(msg)
	default:
		c.sendError(msg.GameID, "unknown message type")
	}
}

func (c *Connection) handleCreateGame(ctx context.Context, msg clientMessage) {
	if len(msg.Players) < 2 {
		c.sendError("", "a game needs at least 2 players")
		return
	}
	gameID, err := c.gateway.engine.CreateGame(ctx, msg.Players, msg.Passcode)
	if err != nil {
		c.sendError("", err.Error())
		return
	}
	if err := c.send(serverMessage{Type: msgGameCreated, GameID: gameID}); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
}

func (c *Connection) handleJoinGame(ctx context.Context, msg clientMessage) {
	if err := c.gateway.engine.JoinGame(ctx, msg.GameID, msg.PlayerID, msg.Passcode); err != nil {
		c.sendError(msg.GameID, err.Error())
		return
	}
	c.playerID = msg.PlayerID
	c.gateway.hub.JoinGame(c, msg.GameID)
	if err := c.send(serverMessage{Type: msgJoined, GameID: msg.GameID}); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
	c.logger.Info("player joined game",
		zap.String("game_id", msg.GameID),
		zap.String("player_id", msg.PlayerID),
	)
}

func (c *Connection) handleStartGame(ctx context.Context, msg clientMessage) {
	if err := c.gateway.engine.StartGame(ctx, msg.GameID); err != nil {
		c.sendError(msg.GameID, err.Error())
	}
}

func (c *Connection) handleGetState(ctx context.Context, msg clientMessage) {
	state, err := c.gateway.engine.State(ctx, msg.GameID)
	if err != nil {
		c.sendError(msg.GameID, err.Error())
		return
	}
	// Credentials stay server-side.
	state.PasscodeHash = nil
	if err := c.send(serverMessage{Type: msgState, GameID: msg.GameID, State: state}); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
}

func (c *Connection) handleGetLog(ctx context.Context, msg clientMessage) {
	entries, err := c.gateway.engine.GameLog(ctx, msg.GameID)
	if err != nil {
		c.sendError(msg.GameID, err.Error())
		return
	}
	if err := c.send(serverMessage{Type: msgLog, GameID: msg.GameID, Log: entries}); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
}

func (c *Connection) handlePlayCard(ctx context.Context, msg clientMessage) {
	ok, err := c.gateway.engine.PlayCard(ctx, msg.GameID, msg.PlayerID, msg.CardID)
	c.sendActionResult(msg.GameID, "play_card", ok, err)
}

func (c *Connection) handleAttack(ctx context.Context, msg clientMessage) {
	ok, err := c.gateway.engine.StartAttack(ctx, msg.GameID, msg.PlayerID, msg.AttackerID)
	c.sendActionResult(msg.GameID, "attack", ok, err)
}

func (c *Connection) handleEndTurn(ctx context.Context, msg clientMessage) {
	ok, err := c.gateway.engine.EndTurn(ctx, msg.GameID, msg.PlayerID)
	c.sendActionResult(msg.GameID, "end_turn", ok, err)
}

func (c *Connection) handleTargetClick(msg clientMessage) {
	if msg.Target == nil {
		c.sendError(msg.GameID, "target_click requires a target")
		return
	}
	if err := c.gateway.engine.HandleTargetClick(msg.GameID, decodeTarget(*msg.Target)); err != nil {
		c.sendError(msg.GameID, err.Error())
	}
}

func (c *Connection) handleConfirmTargets(msg clientMessage) {
	var targets []targeting.Target
	for _, t := range msg.Targets {
		targets = append(targets, decodeTarget(t))
	}
	if err := c.gateway.engine.ConfirmTargets(msg.GameID, targets); err != nil {
		c.sendError(msg.GameID, err.Error())
	}
}

func (c *Connection) handleCancelTargets(msg clientMessage) {
	if err := c.gateway.engine.CancelTargeting(msg.GameID); err != nil {
		c.sendError(msg.GameID, err.Error())
	}
}

func (c *Connection) sendActionResult(gameID, action string, ok bool, err error) {
	reply := serverMessage{Type: msgActionDone, GameID: gameID, Action: action, OK: ok}
	if err != nil {
		reply.Error = err.Error()
	}
	if sendErr := c.send(reply); sendErr != nil {
		c.logger.Debug("write failed", zap.Error(sendErr))
	}
}

func decodeTarget(t targetPayload) targeting.Target {
	return targeting.Target{
		Kind:       targeting.Kind(t.Kind),
		PlayerID:   t.PlayerID,
		InstanceID: t.InstanceID,
	}
}
