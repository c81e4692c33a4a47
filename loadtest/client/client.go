// Package client provides a reusable WebSocket load test client for the
// pairwire signaling server. It connects using gobwas/ws (the same library
// the server uses), captures the socket id from the connected greeting, and
// tracks per-connection performance metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// ---------------------------------------------------------------------------
// Protocol message types (local equivalents of internal/protocol constants)
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinQueue  = "join_queue"
	TypeLeaveQueue = "leave_queue"
	TypeSignal     = "signal"
	TypeRelayMsg   = "relay_msg"
	TypeReport     = "report"
	TypePing       = "ping"
)

// Server -> Client message types.
const (
	TypeConnected = "connected"
	TypeQueued    = "queued"
	TypeLeftQueue = "left_queue"
	TypeMatched   = "matched"
	TypeKicked    = "kicked"
	TypePeerLeft  = "peer_left"
	TypeError     = "error"
	TypePong      = "pong"
)

// Metrics tracks per-connection performance data.
type Metrics struct {
	ConnectLatency   time.Duration
	MatchLatency     time.Duration
	MessagesReceived int
	MessagesSent     int
	Errors           int
}

// Client represents a single simulated participant connected to the
// signaling server. It manages the WebSocket lifecycle and dispatches
// incoming messages to registered handlers.
type Client struct {
	conn      net.Conn
	socketID  string
	mu        sync.Mutex
	metrics   Metrics
	handlers  map[string]func(json.RawMessage)
	done      chan struct{}
	closeOnce sync.Once
	joinedAt  time.Time
}

// New creates a load test client connected to the given WebSocket URL. The
// connection is established immediately and a background goroutine begins
// reading messages. The server's connected greeting is captured internally
// so SocketID becomes available without a registered handler.
func New(ctx context.Context, url string) (*Client, error) {
	start := time.Now()
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &Client{
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	c.metrics.ConnectLatency = time.Since(start)

	go c.readLoop()

	return c, nil
}

// Send sends a JSON message to the server. It is goroutine-safe.
func (c *Client) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.MessagesSent++
	return wsutil.WriteClientMessage(c.conn, ws.OpText, data)
}

// JoinQueue enters the matchmaking queue with the given filters (nil joins
// the unfiltered pool). Match latency is measured from this call to the
// matched message.
func (c *Client) JoinQueue(filters map[string]string) error {
	c.joinedAt = time.Now()
	return c.Send(map[string]interface{}{
		"type":    TypeJoinQueue,
		"filters": filters,
	})
}

// Signal sends an opaque negotiation payload to the given peer.
func (c *Client) Signal(to string, payload json.RawMessage) error {
	return c.Send(map[string]interface{}{
		"type": TypeSignal,
		"to":   to,
		"data": payload,
	})
}

// On registers a handler for a specific server message type. The handler
// receives the full raw JSON of the message for flexible decoding. Handlers
// run on the read loop goroutine so they should not block for long. Only one
// handler per message type is supported; registering a second handler for
// the same type replaces the first.
func (c *Client) On(msgType string, handler func(json.RawMessage)) {
	c.handlers[msgType] = handler
}

// WaitForSocketID blocks until the server's connected greeting has arrived
// or the context is cancelled.
func (c *Client) WaitForSocketID(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed before the greeting arrived")
		case <-ticker.C:
			c.mu.Lock()
			id := c.socketID
			c.mu.Unlock()
			if id != "" {
				return nil
			}
		}
	}
}

// Close closes the connection and stops the read loop. It is safe to call
// multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// SocketID returns the socket id assigned by the server, or an empty string
// if the greeting has not arrived yet.
func (c *Client) SocketID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketID
}

// GetMetrics returns a copy of the client's metrics.
func (c *Client) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// readLoop continuously reads WebSocket frames from the server and
// dispatches them to registered handlers. It runs until the connection is
// closed or an unrecoverable error occurs.
func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			select {
			case <-c.done:
				// Intentional close; not an error.
				return
			default:
			}
			c.mu.Lock()
			c.metrics.Errors++
			c.mu.Unlock()
			return
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		c.mu.Lock()
		c.metrics.MessagesReceived++
		switch envelope.Type {
		case TypeConnected:
			var msg struct {
				SocketID string `json:"socket_id"`
			}
			if err := json.Unmarshal(data, &msg); err == nil {
				c.socketID = msg.SocketID
			}
		case TypeMatched:
			if !c.joinedAt.IsZero() {
				c.metrics.MatchLatency = time.Since(c.joinedAt)
			}
		}
		c.mu.Unlock()

		if handler, ok := c.handlers[envelope.Type]; ok {
			handler(json.RawMessage(data))
		}
	}
}
