package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Client is one live connection. The identity is bound at handshake
// time and never changes; the resolved actor carries the display
// attributes attached to outgoing messages.
type Client struct {
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	logger  zerolog.Logger

	identity auth.Identity
	actor    *models.Actor

	// orders trySend (read pump) against closeSend (hub goroutine)
	mu     sync.Mutex
	closed bool

	// owned by the hub goroutine
	groups  map[string]bool
	dropped bool
}

// inbound is the client->server envelope.
type inbound struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	Content string `json:"content,omitempty"`
	TempID  string `json:"tempId,omitempty"`
}

// ack is the per-send acknowledgment returned to the sender.
type ack struct {
	Type    string          `json:"type"` // "ack"
	TempID  string          `json:"tempId,omitempty"`
	Status  string          `json:"status"` // "ok" or "error"
	Message *models.Message `json:"message,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// push is the server->client delivery envelope.
type push struct {
	Type    string          `json:"type"` // "receive_message"
	Message *models.Message `json:"message"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var env inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			c.trySend([]byte(`{"type":"error","error":"invalid_json"}`))
			continue
		}

		switch env.Type {
		case "join_room":
			if env.RoomID != "" {
				c.hub.Join(c, env.RoomID)
			}
		case "leave_room":
			if env.RoomID != "" {
				c.hub.Leave(c, env.RoomID)
			}
		case "send_message":
			c.gateway.handleSend(c, env)
		default:
			c.trySend([]byte(`{"type":"error","error":"unsupported_type"}`))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// trySend enqueues a payload for this connection without blocking. A
// full buffer means the connection is already being torn down; the
// payload is dropped and the client recovers via polling.
//
// The mutex makes this safe against the hub closing the channel from
// its own goroutine while a send is in flight.
func (c *Client) trySend(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// closeSend closes the outbound channel exactly once. Only the hub
// goroutine calls it; the mutex orders it against concurrent trySend.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) sendAck(a ack) {
	a.Type = "ack"
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	c.trySend(payload)
}
