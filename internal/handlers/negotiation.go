package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/negotiation"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

// StartNegotiationRequest is the project detail submitted when opening
// a negotiation with a worker.
type StartNegotiationRequest struct {
	WorkerID     string `json:"worker_id"`
	ProjectType  string `json:"project_type"`
	PropertyType string `json:"property_type"`
	Budget       string `json:"budget"`
	Location     string `json:"location"`
	StartDate    string `json:"start_date,omitempty"` // DD-MM-YYYY
}

// StartNegotiationResponse pairs the room with its linked order.
type StartNegotiationResponse struct {
	Room   *models.ChatRoom `json:"room"`
	Order  *models.Order    `json:"order"`
	Reused bool             `json:"reused"`
}

// WorkerListResponse lists workers with their availability for the
// requesting customer.
type WorkerListResponse struct {
	Workers []models.WorkerAvailability `json:"workers"`
}

// StartNegotiation opens (or returns the existing) negotiation between
// the requesting customer and a worker. Reused is true when an open
// negotiation already existed for the pair.
func (h *Handler) StartNegotiation(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if ident.Role != models.RoleCustomer {
		h.Error(w, http.StatusForbidden, "only customers start negotiations")
		return
	}

	var req StartNegotiationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid worker id")
		return
	}

	var startDate *time.Time
	if req.StartDate != "" {
		t, err := time.Parse("02-01-2006", req.StartDate)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "start_date must be DD-MM-YYYY")
			return
		}
		startDate = &t
	}

	res, err := h.negotiation.Start(r.Context(), negotiation.StartInput{
		ParticipantID:  ident.ID,
		CounterpartyID: workerID,
		ProjectType:    req.ProjectType,
		PropertyType:   req.PropertyType,
		Budget:         req.Budget,
		Location:       req.Location,
		StartDate:      startDate,
	})
	if err != nil {
		h.Fail(w, err)
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	h.JSON(w, status, StartNegotiationResponse{Room: res.Room, Order: res.Order, Reused: res.Reused})
}

// NegotiationRooms lists the requester's negotiation rooms. Customers
// see negotiations they opened, workers see negotiations assigned to
// them.
func (h *Handler) NegotiationRooms(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	kind := models.RoomNegotiation
	rooms, err := h.store.ListRooms(r.Context(), store.RoomFilter{
		Role:    ident.Role,
		ActorID: ident.ID,
		Kind:    &kind,
	})
	if err != nil {
		h.Fail(w, err)
		return
	}
	if rooms == nil {
		rooms = []models.ChatRoom{}
	}

	h.JSON(w, http.StatusOK, RoomListResponse{Rooms: rooms})
}

// Workers lists all workers with their availability for the requesting
// customer. A worker already in an open negotiation with the requester
// is reported unavailable.
func (h *Handler) Workers(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	workers, err := h.store.ListWorkers(r.Context(), ident.ID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if workers == nil {
		workers = []models.WorkerAvailability{}
	}

	h.JSON(w, http.StatusOK, WorkerListResponse{Workers: workers})
}

// RoomOrder returns the order linked to a negotiation room.
func (h *Handler) RoomOrder(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	order, err := h.store.GetOrderByRoom(r.Context(), roomID)
	if err != nil {
		h.Fail(w, err)
		return
	}

	h.JSON(w, http.StatusOK, order)
}
