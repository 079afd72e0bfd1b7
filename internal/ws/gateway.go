package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

// Gateway owns the send pipeline: it verifies the handshake credential,
// persists every message before any fan-out, and broadcasts through the
// hub it holds. It is the single broadcaster reference shared with the
// HTTP send path, so nothing reaches for ambient global state.
type Gateway struct {
	store    store.DataStore
	redis    *store.RedisStore // optional
	hub      *Hub
	verifier *auth.Verifier
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway over the given stores and hub.
func NewGateway(ds store.DataStore, rdb *store.RedisStore, hub *Hub, verifier *auth.Verifier, logger zerolog.Logger) *Gateway {
	return &Gateway{
		store:    ds,
		redis:    rdb,
		hub:      hub,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS authenticates and upgrades a connection. The credential comes
// from the Authorization header or the token query parameter; a bad or
// expired credential refuses the connection before any state is created.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	ident, err := g.verifier.Verify(token)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication failed"})
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	actor, err := g.store.GetActor(r.Context(), ident.ID)
	if err != nil {
		g.logger.Warn().Err(err).Msg("actor lookup failed at handshake")
	}
	if actor == nil {
		// Accounts live in the account subsystem; an unmirrored actor
		// still gets a connection, just without display attributes.
		actor = &models.Actor{ID: ident.ID, Role: ident.Role}
	}

	client := &Client{
		hub:      g.hub,
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		logger:   g.logger.With().Str("actor", ident.ID.String()).Logger(),
		identity: *ident,
		actor:    actor,
		groups:   make(map[string]bool),
	}

	g.hub.Register(client)
	if ident.Role == models.RoleAdmin {
		g.hub.Join(client, AdminGroup)
	}

	go client.writePump()
	go client.readPump()
}

// handleSend runs the send protocol for one send_message envelope:
// validate, persist, touch, broadcast, then ack. Persistence precedes
// every fan-out, so no subscriber (including the sender's own echo)
// can observe a message that is not durable.
func (g *Gateway) handleSend(c *Client, env inbound) {
	ctx := context.Background()

	if strings.TrimSpace(env.Content) == "" {
		c.sendAck(ack{TempID: env.TempID, Status: "error", Reason: "message is empty"})
		return
	}

	roomID, err := uuid.Parse(env.RoomID)
	if err != nil {
		c.sendAck(ack{TempID: env.TempID, Status: "error", Reason: "invalid room id"})
		return
	}

	if g.redis != nil {
		allowed, rlErr := g.redis.AllowSend(ctx, c.identity.ID.String())
		if rlErr != nil {
			g.logger.Warn().Err(rlErr).Msg("send rate check failed")
		} else if !allowed {
			metrics.SendsThrottled.Inc()
			c.sendAck(ack{TempID: env.TempID, Status: "error", Reason: "rate limit exceeded"})
			return
		}
	}

	appendStart := time.Now()
	msg, err := g.store.AppendMessage(ctx, roomID, c.identity.ID, env.Content)
	metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(appendStart).Seconds())
	if err != nil {
		c.logger.Error().Err(err).Str("room", env.RoomID).Msg("failed to persist message")
		c.sendAck(ack{TempID: env.TempID, Status: "error", Reason: sendFailureReason(err)})
		c.trySend([]byte(`{"type":"error","error":"failed to send message"}`))
		return
	}
	if msg.Sender == nil {
		msg.Sender = c.actor
	}

	room, err := g.store.GetRoom(ctx, roomID)
	if err != nil {
		// Room vanished between append and read; deliver to the room
		// group only.
		g.logger.Warn().Err(err).Str("room", env.RoomID).Msg("room lookup after append failed")
	}

	g.finishSend(ctx, room, msg)
	c.sendAck(ack{TempID: env.TempID, Status: "ok", Message: msg})
}

// Publish fans a persisted message out to the room's subscribers, and
// to the admin group for support rooms. Used both by the socket send
// path and by the HTTP send endpoint.
func (g *Gateway) Publish(room *models.ChatRoom, msg *models.Message) {
	groups := []string{msg.RoomID.String()}
	if room != nil && room.Kind == models.RoomSupport {
		groups = append(groups, AdminGroup)
	}

	payload, err := json.Marshal(push{Type: "receive_message", Message: msg})
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to encode push envelope")
		return
	}
	g.hub.Broadcast(groups, payload)
}

// finishSend is the shared post-persist tail: room activity bump, cache
// mirror, metrics, fan-out.
func (g *Gateway) finishSend(ctx context.Context, room *models.ChatRoom, msg *models.Message) {
	if err := g.store.TouchRoom(ctx, msg.RoomID); err != nil {
		// A missed bump only affects list-sort freshness.
		g.logger.Warn().Err(err).Str("room", msg.RoomID.String()).Msg("room touch failed")
	}

	if g.redis != nil {
		if err := g.redis.CacheMessage(ctx, msg); err != nil {
			g.logger.Warn().Err(err).Msg("message cache mirror failed")
		}
	}

	kind := "UNKNOWN"
	if room != nil {
		kind = string(room.Kind)
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()

	g.Publish(room, msg)
}

// SendFromHTTP persists and fans out a message arriving on the HTTP
// send path, applying the same pipeline as the socket path.
func (g *Gateway) SendFromHTTP(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, chaterr.ErrValidation
	}

	if g.redis != nil {
		allowed, err := g.redis.AllowSend(ctx, senderID.String())
		if err != nil {
			g.logger.Warn().Err(err).Msg("send rate check failed")
		} else if !allowed {
			metrics.SendsThrottled.Inc()
			return nil, chaterr.ErrRateLimited
		}
	}

	appendStart := time.Now()
	msg, err := g.store.AppendMessage(ctx, roomID, senderID, content)
	metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(appendStart).Seconds())
	if err != nil {
		return nil, err
	}

	room, err := g.store.GetRoom(ctx, roomID)
	if err != nil {
		g.logger.Warn().Err(err).Str("room", roomID.String()).Msg("room lookup after append failed")
	}

	g.finishSend(ctx, room, msg)
	return msg, nil
}

func sendFailureReason(err error) string {
	switch {
	case errors.Is(err, chaterr.ErrNotFound):
		return "room not found"
	case errors.Is(err, chaterr.ErrAlreadyClosed), errors.Is(err, chaterr.ErrConflict):
		return "room is closed"
	default:
		return "failed to send message"
	}
}
