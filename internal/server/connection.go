package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/rook/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn   *websocket.Conn
	send   chan *Message
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	engine *game.Engine

	mu     sync.RWMutex
	player game.Player
	closed bool
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, engine *game.Engine) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		engine: engine,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has been closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	close(c.send)
	return c.conn.Close()
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = errors.New("connection closed")

// SendMessage queues a message for the client. A client that cannot keep up
// is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.logger.Warn("Connection send buffer full, closing connection", "player", c.Player())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Player returns the announced player, if any
func (c *Connection) Player() game.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

func (c *Connection) setPlayer(p game.Player) game.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.player
	c.player = p
	return prev
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", CodeInvalidMessage, "Failed to parse message")
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	if msg.Type == MessageTypeAnnounce {
		c.handleAnnounce(msg)
		return
	}

	player := c.Player()
	if player == "" {
		c.sendError(msg.RequestID, CodeNotAnnounced, "Announce a player first")
		return
	}

	cmd, err := Command(msg, player)
	if errors.Is(err, errUnknownType) {
		c.sendError(msg.RequestID, CodeUnknownType, "Unknown message type: "+msg.Type.String())
		return
	} else if err != nil {
		c.sendError(msg.RequestID, CodeInvalidMessage, err.Error())
		return
	}

	if err := c.engine.Apply(cmd); err != nil {
		c.sendError(msg.RequestID, ErrorCode(err), err.Error())
		return
	}
	c.sendAck(msg.RequestID)
}

// handleAnnounce associates the connection with a player, releasing any
// player announced earlier
func (c *Connection) handleAnnounce(msg *Message) {
	var data AnnounceData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg.RequestID, CodeInvalidMessage, "Failed to parse announce data")
		return
	}

	if err := c.engine.Connect(data.Player); err != nil {
		c.sendError(msg.RequestID, ErrorCode(err), err.Error())
		return
	}
	if prev := c.setPlayer(data.Player); prev != "" && prev != data.Player {
		_ = c.engine.Disconnect(prev)
	}
	c.logger.Info("Player announced", "player", data.Player)
	c.sendAck(msg.RequestID)
}

func (c *Connection) sendAck(requestID string) {
	ack, err := NewMessage(MessageTypeAck, AckData{RequestID: requestID})
	if err != nil {
		c.logger.Error("Failed to create ack message", "error", err)
		return
	}
	ack.RequestID = requestID
	_ = c.SendMessage(ack)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	errorMsg.RequestID = requestID

	_ = c.SendMessage(errorMsg)
}
