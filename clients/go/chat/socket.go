package chat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is anything pushed by the server: message deliveries, send
// acknowledgments and error notices.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	TempID  string   `json:"tempId,omitempty"`
	Status  string   `json:"status,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// defaultAckWait bounds how long a send may stay unacknowledged before
// an ack_timeout event surfaces on Events.
const defaultAckWait = 10 * time.Second

// Socket is a live websocket connection to the chat gateway. Events
// arrive on Events; the channel closes when the connection dies, after
// which the caller reconnects and lets polling fill any gap.
type Socket struct {
	conn   *websocket.Conn
	Events chan Event

	// AckWait overrides the default ack timeout. Set before Send.
	AckWait time.Duration

	mu      sync.Mutex
	closed  bool
	pending map[string]*time.Timer
}

// Dial opens an authenticated websocket to the chat gateway.
func Dial(baseURL, token string) (*Socket, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("websocket handshake rejected: authentication failed")
		}
		return nil, err
	}

	s := &Socket{
		conn:    conn,
		Events:  make(chan Event, 64),
		pending: make(map[string]*time.Timer),
	}
	go s.readLoop()
	return s, nil
}

func (s *Socket) readLoop() {
	defer func() {
		s.Close()
		close(s.Events)
	}()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		if ev.Type == "ack" && ev.TempID != "" {
			s.resolveAck(ev.TempID)
		}
		select {
		case s.Events <- ev:
		default:
			// Reader is not keeping up; drop and rely on polling.
		}
	}
}

func (s *Socket) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("socket closed")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

// Join subscribes this connection to a room's deliveries.
func (s *Socket) Join(roomID string) error {
	return s.write(map[string]string{"type": "join_room", "roomId": roomID})
}

// Leave unsubscribes this connection from a room.
func (s *Socket) Leave(roomID string) error {
	return s.write(map[string]string{"type": "leave_room", "roomId": roomID})
}

// Send transmits a message with a client-chosen temporary id. The
// server's ack (matched by tempId) carries the authoritative message.
// When no ack arrives within AckWait, an ack_timeout event for the
// tempId surfaces on Events; the caller keeps its provisional entry
// pending and lets the next poll confirm or retry.
func (s *Socket) Send(roomID, content, tempID string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is empty")
	}
	err := s.write(map[string]string{
		"type":    "send_message",
		"roomId":  roomID,
		"content": content,
		"tempId":  tempID,
	})
	if err != nil {
		return err
	}
	s.armAckTimer(tempID)
	return nil
}

func (s *Socket) armAckTimer(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	wait := s.AckWait
	if wait <= 0 {
		wait = defaultAckWait
	}
	s.pending[tempID] = time.AfterFunc(wait, func() { s.ackTimedOut(tempID) })
}

func (s *Socket) ackTimedOut(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.pending[tempID]; !ok {
		// the ack raced the timer
		return
	}
	delete(s.pending, tempID)
	select {
	case s.Events <- Event{Type: "ack_timeout", TempID: tempID, Status: "timeout", Reason: "no acknowledgment from server"}:
	default:
	}
}

func (s *Socket) resolveAck(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[tempID]; ok {
		t.Stop()
		delete(s.pending, tempID)
	}
}

// Close shuts the connection down. Safe to call more than once.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	return s.conn.Close()
}
