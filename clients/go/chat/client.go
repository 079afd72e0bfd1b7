// Package chat provides a client for the ngulikang chat service: the
// HTTP API, the websocket transport, and the timeline reconciliation
// that merges push and poll delivery into one duplicate-free view.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a chat API client. Token is the platform-issued bearer
// token; the same value authenticates the websocket.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new chat client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an authenticated HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chat error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// Actor is a platform user as returned by the API.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// Message is a chat message as returned by the API.
type Message struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
	Sender   *Actor    `json:"sender,omitempty"`
}

// Room is a chat room as returned by the API.
type Room struct {
	ID             string   `json:"id"`
	ParticipantID  string   `json:"participant_id"`
	CounterpartyID string   `json:"counterparty_id,omitempty"`
	Kind           string   `json:"kind"`
	Status         string   `json:"status"`
	Participant    *Actor   `json:"participant,omitempty"`
	Counterparty   *Actor   `json:"counterparty,omitempty"`
	LastMessage    *Message `json:"last_message,omitempty"`
}

// Order is the commercial order linked to a negotiation room.
type Order struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	TotalPrice   int64  `json:"total_price"`
	ProjectType  string `json:"project_type,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	Budget       string `json:"budget,omitempty"`
	Location     string `json:"location,omitempty"`
	ChatRoomID   string `json:"chat_room_id,omitempty"`
}

// SupportRoom returns the caller's open support room, creating it when
// none exists.
func (c *Client) SupportRoom() (*Room, error) {
	respBody, err := c.doRequest("POST", "/api/chat/support", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Room *Room `json:"room"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// ListRooms returns the rooms visible to the caller. The poll loop
// calls this every few seconds to refresh previews.
func (c *Client) ListRooms() ([]Room, error) {
	respBody, err := c.doRequest("GET", "/api/chat/rooms", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// RoomMessages returns a room's full timeline, oldest first.
func (c *Client) RoomMessages(roomID string) ([]Message, error) {
	respBody, err := c.doRequest("GET", "/api/chat/rooms/"+roomID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage sends a message over HTTP. Live connections in the room
// receive it the same way as a socket send.
func (c *Client) SendMessage(roomID, content string) (*Message, error) {
	body, _ := json.Marshal(map[string]string{"content": content})
	respBody, err := c.doRequest("POST", "/api/chat/rooms/"+roomID+"/messages", body)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CloseRoom closes a room. Closing an already-closed room succeeds and
// returns the terminal state.
func (c *Client) CloseRoom(roomID string) (*Room, error) {
	respBody, err := c.doRequest("PUT", "/api/chat/rooms/"+roomID+"/close", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Room *Room `json:"room"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Room, nil
}

// StartNegotiationRequest is the project detail for opening a
// negotiation.
type StartNegotiationRequest struct {
	WorkerID     string `json:"worker_id"`
	ProjectType  string `json:"project_type"`
	PropertyType string `json:"property_type,omitempty"`
	Budget       string `json:"budget,omitempty"`
	Location     string `json:"location"`
	StartDate    string `json:"start_date,omitempty"` // DD-MM-YYYY
}

// StartNegotiationResponse pairs the room with its linked order.
type StartNegotiationResponse struct {
	Room   *Room  `json:"room"`
	Order  *Order `json:"order"`
	Reused bool   `json:"reused"`
}

// StartNegotiation opens (or returns the existing) negotiation with a
// worker.
func (c *Client) StartNegotiation(req StartNegotiationRequest) (*StartNegotiationResponse, error) {
	body, _ := json.Marshal(req)
	respBody, err := c.doRequest("POST", "/api/negotiation/start", body)
	if err != nil {
		return nil, err
	}
	var resp StartNegotiationResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WorkerAvailability reports whether a worker can be engaged.
type WorkerAvailability struct {
	Worker    Actor  `json:"worker"`
	Available bool   `json:"available"`
	Status    string `json:"room_status,omitempty"`
}

// Workers lists workers with their availability for the caller.
func (c *Client) Workers() ([]WorkerAvailability, error) {
	respBody, err := c.doRequest("GET", "/api/negotiation/workers", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Workers []WorkerAvailability `json:"workers"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Workers, nil
}
