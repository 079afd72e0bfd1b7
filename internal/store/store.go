package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

// RoomFilter scopes a room listing to what the requesting actor may see.
// Admins see support rooms, workers see negotiation rooms assigned to
// them, participants see their own rooms of either kind.
type RoomFilter struct {
	Role    models.Role
	ActorID uuid.UUID
	Status  *models.RoomStatus
	Kind    *models.RoomKind
}

// NegotiationParams is the input to the atomic negotiation bootstrap:
// one order, one room, the order->room link and the opening message are
// created in a single transaction.
type NegotiationParams struct {
	ParticipantID  uuid.UUID
	CounterpartyID uuid.UUID
	ProjectType    string
	PropertyType   string
	Budget         string
	Location       string
	StartDate      *time.Time
	OpeningContent string
}

// DataStore defines the interface for persistent storage of actors,
// rooms, messages and negotiation orders. Both PostgresStore and
// SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Actor operations
	CreateActor(ctx context.Context, name string, role models.Role, avatar string) (*models.Actor, error)
	GetActor(ctx context.Context, id uuid.UUID) (*models.Actor, error)
	ListWorkers(ctx context.Context, participantID uuid.UUID) ([]models.WorkerAvailability, error)

	// Room operations
	GetOrCreateSupportRoom(ctx context.Context, participantID uuid.UUID) (*models.ChatRoom, bool, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	GetOpenNegotiationRoom(ctx context.Context, participantID, counterpartyID uuid.UUID) (*models.ChatRoom, error)
	CloseRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, f RoomFilter) ([]models.ChatRoom, error)
	TouchRoom(ctx context.Context, id uuid.UUID) error

	// Message operations
	AppendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error)
	CountMessages(ctx context.Context, roomID uuid.UUID) (int, error)

	// Negotiation operations
	CreateNegotiation(ctx context.Context, p NegotiationParams) (*models.ChatRoom, *models.Order, *models.Message, error)
	GetOrderByRoom(ctx context.Context, roomID uuid.UUID) (*models.Order, error)
}
