package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the commercial order paired 1:1 with a negotiation room.
// Payment and progress tracking belong to the order subsystem; the chat
// core only creates the pending order and holds the room link, which is
// write-once.
type Order struct {
	ID             uuid.UUID  `json:"id"`
	ParticipantID  uuid.UUID  `json:"participant_id"`
	CounterpartyID uuid.UUID  `json:"counterparty_id"`
	ServiceType    string     `json:"service_type"`
	Status         string     `json:"status"`
	TotalPrice     int64      `json:"total_price"`
	ProjectType    string     `json:"project_type,omitempty"`
	PropertyType   string     `json:"property_type,omitempty"`
	Budget         string     `json:"budget,omitempty"`
	Location       string     `json:"location,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	ChatRoomID     *uuid.UUID `json:"chat_room_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Order values written by the negotiation workflow.
const (
	ServiceTypeBorongan = "borongan"
	OrderStatusPending  = "pending"
)
