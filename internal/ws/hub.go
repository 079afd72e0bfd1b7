// Package ws is the transport gateway: it authenticates long-lived
// websocket connections, tracks named subscriber groups and fans
// persisted messages out to them.
package ws

import (
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
)

// AdminGroup is the well-known group every admin connection joins at
// connect time, so admins see new support traffic without opening the
// room first.
const AdminGroup = "admin_dashboard"

// Hub is the in-process registry mapping group name -> live
// connections. Groups are plain names: a room's id, or a well-known
// group like AdminGroup. Membership is independent of room persistence;
// joining a name that matches no stored room is harmless.
//
// All mutation happens on the run goroutine, so join/leave/disconnect/
// broadcast interleave safely without locks.
type Hub struct {
	logger zerolog.Logger

	groups map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan event
}

type membership struct {
	client *Client
	group  string
}

type event struct {
	groups  []string
	payload []byte
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(logger zerolog.Logger) *Hub {
	h := &Hub{
		logger:     logger,
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan event, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			metrics.ConnectionsActive.Inc()
			h.logger.Debug().Str("actor", c.identity.ID.String()).Msg("client connected")

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.join:
			if h.groups[m.group] == nil {
				h.groups[m.group] = make(map[*Client]bool)
			}
			h.groups[m.group][m.client] = true
			m.client.groups[m.group] = true

		case m := <-h.leave:
			if members, ok := h.groups[m.group]; ok {
				delete(members, m.client)
				if len(members) == 0 {
					delete(h.groups, m.group)
				}
			}
			delete(m.client.groups, m.group)

		case e := <-h.broadcast:
			// A connection may belong to several targeted groups
			// (an admin joined to the support room it is reading);
			// deliver once per event.
			delivered := make(map[*Client]bool)
			for _, group := range e.groups {
				for c := range h.groups[group] {
					if delivered[c] {
						continue
					}
					delivered[c] = true
					select {
					case c.send <- e.payload:
						metrics.BroadcastsDelivered.Inc()
					default:
						// Slow subscriber: disconnect rather than
						// stall the fan-out. It will catch up via
						// polling on reconnect.
						metrics.SubscribersDropped.Inc()
						h.drop(c)
					}
				}
			}
		}
	}
}

// drop releases every membership of a connection and closes its
// outbound channel. Safe to call twice for the same client.
func (h *Hub) drop(c *Client) {
	if c.dropped {
		return
	}
	c.dropped = true
	for group := range c.groups {
		if members, ok := h.groups[group]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
	}
	c.groups = make(map[string]bool)
	c.closeSend()
	metrics.ConnectionsActive.Dec()
	h.logger.Debug().Str("actor", c.identity.ID.String()).Msg("client disconnected")
}

// Register announces a new authenticated connection.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister releases all of a connection's memberships.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Join adds a connection to a named group.
func (h *Hub) Join(c *Client, group string) {
	h.join <- membership{client: c, group: group}
}

// Leave removes a connection from a named group.
func (h *Hub) Leave(c *Client, group string) {
	h.leave <- membership{client: c, group: group}
}

// Broadcast delivers a payload to every connection in any of the given
// groups. Delivery to an individual subscriber is fire-and-forget.
func (h *Hub) Broadcast(groups []string, payload []byte) {
	h.broadcast <- event{groups: groups, payload: payload}
}
