package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spellstone/spellstone-server-go/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway is the websocket front door to the rule engine. It upgrades
// HTTP connections, routes client actions to the engine, and fans engine
// notifications out to every connection watching a game.
type Gateway struct {
	logger *zap.Logger
	engine *game.Engine
	hub    *Hub
	http   *http.Server
}

// NewGateway creates a gateway listening on addr.
func NewGateway(addr string, engine *game.Engine, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		logger: logger,
		engine: engine,
		hub:    NewHub(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.serveWs)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	g.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.subscribeEvents()
	return g
}

// Run serves until ctx is cancelled, then drains connections.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", zap.String("addr", g.http.Addr))
		if err := g.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	g.logger.Info("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g.hub.CloseAll()
	return g.http.Shutdown(shutdownCtx)
}

func (g *Gateway) serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Connection{gateway: g, logger: g.logger, ws: ws}
	g.hub.Register(c)
	// The request context dies when this handler returns; the connection
	// outlives it.
	go c.readLoop(context.Background())
}

// subscribeEvents forwards engine notifications to game watchers.
func (g *Gateway) subscribeEvents() {
	g.engine.Bus().Subscribe(func(ev game.Event) {
		g.hub.Broadcast(ev.GameID, serverMessage{
			Type:    msgEvent,
			GameID:  ev.GameID,
			Event:   string(ev.Type),
			Message: ev.Description,
		})
	})
}
