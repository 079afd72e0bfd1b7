package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomKind distinguishes support conversations from price negotiations.
type RoomKind string

const (
	RoomSupport     RoomKind = "SUPPORT"
	RoomNegotiation RoomKind = "NEGOTIATION"
)

// RoomStatus is the room lifecycle state. OPEN -> CLOSED is the only
// legal transition; CLOSED is terminal.
type RoomStatus string

const (
	RoomOpen   RoomStatus = "OPEN"
	RoomClosed RoomStatus = "CLOSED"
)

// ChatRoom is a persistent conversation scope. The participant is always
// the customer side; the counterparty is the assigned worker for
// negotiation rooms and nil for support rooms.
type ChatRoom struct {
	ID             uuid.UUID  `json:"id"`
	ParticipantID  uuid.UUID  `json:"participant_id"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty"`
	Kind           RoomKind   `json:"kind"`
	Status         RoomStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Resolved for list views; not stored on the room row.
	Participant  *Actor   `json:"participant,omitempty"`
	Counterparty *Actor   `json:"counterparty,omitempty"`
	LastMessage  *Message `json:"last_message,omitempty"`
}
