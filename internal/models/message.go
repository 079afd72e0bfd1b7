package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat message. The ID is a ULID assigned at
// persistence time, so lexicographic order matches creation order and
// breaks sent_at ties.
type Message struct {
	ID       string    `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`

	// Resolved sender display attributes, populated on the push and
	// poll read paths.
	Sender *Actor `json:"sender,omitempty"`
}
