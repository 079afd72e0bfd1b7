package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the kind of actor on the platform.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "tukang"
	RoleAdmin    Role = "admin"
)

// Actor is a platform user as seen by the chat core. Credential issuance
// and profile management live elsewhere; this is the subset needed to
// resolve sender display attributes.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkerAvailability reports whether a worker can be engaged by a given
// participant. A worker is available when no negotiation room exists
// between the pair, or the existing one is closed.
type WorkerAvailability struct {
	Worker     Actor       `json:"worker"`
	Available  bool        `json:"available"`
	RoomStatus *RoomStatus `json:"room_status,omitempty"`
}
