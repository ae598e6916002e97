// Package client is a WebSocket client for the rook server, used by the
// command line and by tests.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/server" // Reuse message types
)

// RequestError is returned by Send when the server rejects a message
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrClosed is returned for requests made after the connection closed
var ErrClosed = errors.New("client closed")

// Client represents a WebSocket connection to a rook server
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger
	states chan game.State
	done   chan struct{}
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan *server.Message
	closeOnce sync.Once
}

// Dial connects to the server. rawURL may use http(s) or ws(s); a URL
// without a path connects to /ws.
func Dial(ctx context.Context, rawURL string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	logger = logger.WithPrefix("client")
	logger.Debug("Connecting to server", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		states:  make(chan game.State, 64),
		done:    make(chan struct{}),
		pending: make(map[string]chan *server.Message),
	}
	go c.readPump()
	return c, nil
}

// States delivers every table state the server sends, starting with the
// snapshot sent on connect. It is closed when the connection closes. When the
// channel is full the oldest queued state is dropped to make room.
func (c *Client) States() <-chan game.State {
	return c.states
}

// Done is closed when the connection closes
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Announce tells the server which player this connection speaks for
func (c *Client) Announce(ctx context.Context, player game.Player) error {
	return c.Send(ctx, server.MessageTypeAnnounce, server.AnnounceData{Player: player})
}

// Send sends a message and waits for the server to acknowledge or reject
// it. Rejections are returned as *RequestError.
func (c *Client) Send(ctx context.Context, msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	msg.RequestID = strconv.FormatUint(c.nextID.Add(1), 10)

	reply := make(chan *server.Message, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[msg.RequestID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	if err := c.write(msg); err != nil {
		return err
	}

	select {
	case resp := <-reply:
		if resp.Type == server.MessageTypeError {
			var data server.ErrorData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("failed to parse error: %w", err)
			}
			return &RequestError{Code: data.Code, Message: data.Message}
		}
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) write(msg *server.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		close(c.done)
		close(c.states)
		_ = c.Close()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket closed", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		switch msg.Type {
		case server.MessageTypeState:
			var state game.State
			if err := json.Unmarshal(msg.Data, &state); err != nil {
				c.logger.Warn("Failed to parse state", "error", err)
				continue
			}
			select {
			case c.states <- state:
			default:
				// Keep the newest state; the oldest is already superseded
				select {
				case <-c.states:
				default:
				}
				c.states <- state
				c.logger.Warn("State buffer full, dropped oldest state")
			}
		case server.MessageTypeAck, server.MessageTypeError:
			c.mu.Lock()
			reply, ok := c.pending[msg.RequestID]
			c.mu.Unlock()
			if ok {
				reply <- &msg
			} else if msg.Type == server.MessageTypeError {
				c.logger.Warn("Server error", "data", string(msg.Data))
			}
		}
	}
}
