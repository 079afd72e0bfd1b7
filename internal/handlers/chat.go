package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

// SupportRoomResponse wraps the requester's support room.
type SupportRoomResponse struct {
	Room *models.ChatRoom `json:"room"`
}

// RoomListResponse is the role-scoped room listing used by polling
// clients.
type RoomListResponse struct {
	Rooms []models.ChatRoom `json:"rooms"`
}

// RoomMessagesResponse is a room's full timeline, oldest first.
type RoomMessagesResponse struct {
	RoomID   string           `json:"room_id"`
	Messages []models.Message `json:"messages"`
}

// SendMessageRequest is the HTTP send payload.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SupportRoom returns the requester's open support room, creating it if
// none exists. Repeated calls return the same room until it is closed.
func (h *Handler) SupportRoom(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	room, created, err := h.store.GetOrCreateSupportRoom(r.Context(), ident.ID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if created {
		metrics.RoomsOpened.WithLabelValues(string(models.RoomSupport)).Inc()
	}

	h.JSON(w, http.StatusOK, SupportRoomResponse{Room: room})
}

// ListRooms returns the rooms visible to the requester: admins see
// support rooms, workers see negotiations assigned to them, customers
// see their own rooms. Optional status and kind query filters narrow
// the list.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	f := store.RoomFilter{Role: ident.Role, ActorID: ident.ID}
	switch r.URL.Query().Get("status") {
	case "":
	case "OPEN":
		s := models.RoomOpen
		f.Status = &s
	case "CLOSED":
		s := models.RoomClosed
		f.Status = &s
	default:
		h.Error(w, http.StatusBadRequest, "status must be OPEN or CLOSED")
		return
	}
	switch r.URL.Query().Get("kind") {
	case "":
	case "SUPPORT":
		k := models.RoomSupport
		f.Kind = &k
	case "NEGOTIATION":
		k := models.RoomNegotiation
		f.Kind = &k
	default:
		h.Error(w, http.StatusBadRequest, "kind must be SUPPORT or NEGOTIATION")
		return
	}

	rooms, err := h.store.ListRooms(r.Context(), f)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if rooms == nil {
		rooms = []models.ChatRoom{}
	}

	h.JSON(w, http.StatusOK, RoomListResponse{Rooms: rooms})
}

// RoomMessages returns a room's full timeline, oldest first. The Redis
// cache serves hot rooms; a miss falls through to SQL, which is always
// authoritative, and seeds the cache from that read so later sends can
// append to a complete set.
func (h *Handler) RoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if h.redis != nil {
		cached, err := h.redis.GetRoomMessages(r.Context(), roomID.String())
		switch {
		case err != nil:
			h.logger.Warn().Err(err).Msg("message cache read failed")
		case cached != nil:
			// Serve the cache only when it holds the whole timeline. A
			// cache seeded after a room already had history (negotiation
			// opening messages, a Redis restart) would otherwise hide
			// older messages from pollers until it expired.
			count, err := h.store.CountMessages(r.Context(), roomID)
			if err == nil && count == len(cached) {
				h.JSON(w, http.StatusOK, RoomMessagesResponse{RoomID: roomID.String(), Messages: cached})
				return
			}
		}
	}

	messages, err := h.store.ListMessages(r.Context(), roomID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	if h.redis != nil && len(messages) > 0 {
		if err := h.redis.PrimeRoomMessages(r.Context(), roomID.String(), messages); err != nil {
			h.logger.Warn().Err(err).Msg("message cache prime failed")
		}
	}

	h.JSON(w, http.StatusOK, RoomMessagesResponse{RoomID: roomID.String(), Messages: messages})
}

// SendMessage is the HTTP send path. It runs the same pipeline as a
// socket send, so the message is durable before any subscriber hears
// about it and live connections receive it immediately.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msg, err := h.sender.SendFromHTTP(r.Context(), roomID, ident.ID, req.Content)
	if err != nil {
		h.Fail(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, msg)
}

// CloseRoom transitions a room to CLOSED. Closing an already-closed
// room returns the terminal state with 200 rather than failing, so
// racing duplicate closes stay harmless.
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	ident := auth.FromContext(r.Context())
	if ident == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room id")
		return
	}

	room, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if !mayClose(ident, room) {
		h.Error(w, http.StatusForbidden, "not permitted to close this room")
		return
	}

	closed, err := h.store.CloseRoom(r.Context(), roomID)
	if errors.Is(err, chaterr.ErrAlreadyClosed) {
		h.JSON(w, http.StatusOK, SupportRoomResponse{Room: closed})
		return
	}
	if err != nil {
		h.Fail(w, err)
		return
	}

	metrics.RoomsClosed.Inc()
	h.JSON(w, http.StatusOK, SupportRoomResponse{Room: closed})
}

// mayClose reports whether the actor may close the room: the
// participant, the assigned counterparty, or any admin.
func mayClose(ident *auth.Identity, room *models.ChatRoom) bool {
	if ident.Role == models.RoleAdmin {
		return true
	}
	if room.ParticipantID == ident.ID {
		return true
	}
	return room.CounterpartyID != nil && *room.CounterpartyID == ident.ID
}
