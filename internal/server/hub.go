package server

import (
	"sync"

	"go.uber.org/zap"
)

// Hub tracks live connections and which game each one watches.
type Hub struct {
	logger *zap.Logger

	mu          sync.RWMutex
	connections map[*Connection]bool
	// gameID -> connections watching that game
	gameConns map[string][]*Connection
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger,
		connections: make(map[*Connection]bool),
		gameConns:   make(map[string][]*Connection),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection and detaches it from its game.
func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
	h.detachLocked(c)
}

// JoinGame attaches a connection to a game's broadcast group.
func (h *Hub) JoinGame(c *Connection, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
	c.gameID = gameID
	h.gameConns[gameID] = append(h.gameConns[gameID], c)
}

func (h *Hub) detachLocked(c *Connection) {
	if c.gameID == "" {
		return
	}
	conns := h.gameConns[c.gameID]
	for i, conn := range conns {
		if conn == c {
			h.gameConns[c.gameID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	c.gameID = ""
}

// Broadcast sends a message to every connection watching a game.
func (h *Hub) Broadcast(gameID string, msg serverMessage) {
	h.mu.RLock()
	conns := append([]*Connection(nil), h.gameConns[gameID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(msg); err != nil {
			h.logger.Debug("broadcast write failed",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
		}
	}
}

// CloseAll closes every registered connection, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
