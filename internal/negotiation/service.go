package negotiation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

// StartInput is the project detail submitted when a customer opens a
// negotiation with a worker.
type StartInput struct {
	ParticipantID  uuid.UUID
	CounterpartyID uuid.UUID
	ProjectType    string
	PropertyType   string
	Budget         string
	Location       string
	StartDate      *time.Time
}

// Result pairs the negotiation room with its linked order. Reused is
// true when an existing open negotiation was returned instead of a new
// one being created.
type Result struct {
	Room   *models.ChatRoom
	Order  *models.Order
	Reused bool
}

// Service runs the negotiation workflow over the data store.
type Service struct {
	store  store.DataStore
	logger zerolog.Logger
}

func NewService(ds store.DataStore, logger zerolog.Logger) *Service {
	return &Service{store: ds, logger: logger}
}

// Start begins a negotiation between a participant and a worker. If an
// open negotiation already exists for the pair it is returned as-is
// with its linked order; otherwise the order, room, link and opening
// message are created in one transaction. Concurrent first starts for
// the same pair converge on a single room.
func (s *Service) Start(ctx context.Context, in StartInput) (*Result, error) {
	if err := validateStart(in); err != nil {
		return nil, err
	}

	counterparty, err := s.store.GetActor(ctx, in.CounterpartyID)
	if err != nil {
		return nil, err
	}
	if counterparty == nil || counterparty.Role != models.RoleWorker {
		return nil, fmt.Errorf("counterparty is not a worker: %w", chaterr.ErrValidation)
	}

	if res, err := s.existing(ctx, in.ParticipantID, in.CounterpartyID); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	room, order, _, err := s.store.CreateNegotiation(ctx, store.NegotiationParams{
		ParticipantID:  in.ParticipantID,
		CounterpartyID: in.CounterpartyID,
		ProjectType:    in.ProjectType,
		PropertyType:   in.PropertyType,
		Budget:         in.Budget,
		Location:       in.Location,
		StartDate:      in.StartDate,
		OpeningContent: OpeningMessage(in),
	})
	if errors.Is(err, chaterr.ErrConflict) {
		// Lost the race to a concurrent start for the same pair.
		if res, exErr := s.existing(ctx, in.ParticipantID, in.CounterpartyID); exErr == nil && res != nil {
			return res, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	metrics.NegotiationsStarted.Inc()
	metrics.RoomsOpened.WithLabelValues(string(models.RoomNegotiation)).Inc()
	s.logger.Info().
		Str("room", room.ID.String()).
		Str("order", order.ID.String()).
		Str("participant", in.ParticipantID.String()).
		Str("counterparty", in.CounterpartyID.String()).
		Msg("negotiation started")

	return &Result{Room: room, Order: order}, nil
}

// existing returns the pair's open negotiation with its order, or nil
// when there is none.
func (s *Service) existing(ctx context.Context, participantID, counterpartyID uuid.UUID) (*Result, error) {
	room, err := s.store.GetOpenNegotiationRoom(ctx, participantID, counterpartyID)
	if errors.Is(err, chaterr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order, err := s.store.GetOrderByRoom(ctx, room.ID)
	if err != nil && !errors.Is(err, chaterr.ErrNotFound) {
		return nil, err
	}
	return &Result{Room: room, Order: order, Reused: true}, nil
}

func validateStart(in StartInput) error {
	switch {
	case in.ParticipantID == uuid.Nil || in.CounterpartyID == uuid.Nil:
		return fmt.Errorf("participant and counterparty are required: %w", chaterr.ErrValidation)
	case in.ParticipantID == in.CounterpartyID:
		return fmt.Errorf("cannot negotiate with yourself: %w", chaterr.ErrValidation)
	case strings.TrimSpace(in.ProjectType) == "":
		return fmt.Errorf("project type is required: %w", chaterr.ErrValidation)
	case strings.TrimSpace(in.Location) == "":
		return fmt.Errorf("location is required: %w", chaterr.ErrValidation)
	}
	return nil
}

// OpeningMessage renders the deterministic first message of a
// negotiation room. It is authored by the participant and serves as a
// durable record of the original request.
func OpeningMessage(in StartInput) string {
	start := "-"
	if in.StartDate != nil {
		start = in.StartDate.Format("02-01-2006")
	}
	budget := in.Budget
	if strings.TrimSpace(budget) == "" {
		budget = "-"
	}
	property := in.PropertyType
	if strings.TrimSpace(property) == "" {
		property = "-"
	}
	return fmt.Sprintf(
		"Halo, saya ingin menawar jasa borongan Anda.\nDetail Proyek:\n- Tipe: %s\n- Properti: %s\n- Budget: %s\n- Lokasi: %s\n- Estimasi Mulai: %s",
		in.ProjectType, property, budget, in.Location, start,
	)
}
