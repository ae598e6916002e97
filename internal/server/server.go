// Package server exposes a game engine over WebSockets. Clients announce
// which player they are, send commands as JSON messages and receive the full
// table state after every change.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/rook/internal/game"
	"golang.org/x/sync/errgroup"
)

// Server represents the WebSocket server
type Server struct {
	addr        string
	engine      *game.Engine
	upgrader    websocket.Upgrader
	logger      *log.Logger
	unsubscribe func()

	mu          sync.RWMutex
	connections map[*Connection]bool
}

// NewServer creates a server for engine and subscribes to its updates
func NewServer(addr string, engine *game.Engine, logger *log.Logger) *Server {
	s := &Server{
		addr:   addr,
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
	}
	s.unsubscribe = engine.Subscribe(game.SubscriberFunc(s.Broadcast))
	return s
}

// Handler returns the HTTP handler serving /ws, /health and /state
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully and
// closes every connection
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.Close()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close unsubscribes from the engine and closes all connections
func (s *Server) Close() {
	s.unsubscribe()

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.engine)

	// Registering under the engine lock queues the snapshot ahead of any
	// broadcast of a later state.
	s.engine.View(func(state game.State) {
		s.register(client)
		if msg, err := NewMessage(MessageTypeState, state); err == nil {
			_ = client.SendMessage(msg)
		}
	})
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)
}

// unregister forgets a closed connection. Its player is marked disconnected
// unless another connection has announced the same player.
func (s *Server) unregister(conn *Connection) {
	player := conn.Player()

	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	stillConnected := false
	for other := range s.connections {
		if player != "" && other.Player() == player {
			stillConnected = true
			break
		}
	}
	s.mu.Unlock()

	// The engine lock is taken outside s.mu; Broadcast runs under the engine
	// lock and takes s.mu.
	if player != "" && !stillConnected {
		if err := s.engine.Disconnect(player); err != nil {
			s.logger.Warn("Failed to disconnect player", "player", player, "error", err)
		}
	}
	s.logger.Info("Client disconnected", "player", player, "total", total)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleState returns the current table state as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.Snapshot()); err != nil {
		s.logger.Error("Failed to encode state", "error", err)
	}
}

// Broadcast sends state to every connection
func (s *Server) Broadcast(state game.State) {
	msg, err := NewMessage(MessageTypeState, state)
	if err != nil {
		s.logger.Error("Failed to encode state", "error", err)
		return
	}

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	count := 0
	for _, conn := range conns {
		if err := conn.SendMessage(msg); err == nil {
			count++
		}
	}
	s.logger.Debug("Broadcast state", "phase", state.Phase.Kind(), "recipients", count)
}
