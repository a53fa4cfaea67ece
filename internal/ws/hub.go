// Package ws is the real-time message distribution layer: it admits
// websocket connections into chat rooms, fans inbound frames out to room
// peers, and prunes dead peers with a departure notice. Messages are not
// persisted here; the REST write path is the durable path.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"
	"nhooyr.io/websocket"

	"github.com/YouMinSeok/Research-Chat-server/pkg/metrics"
)

// Membership answers the one-time admission check against durable
// room-membership storage.
type Membership interface {
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)
}

// Event is the outbound frame shape: a kind tag plus payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Hub struct {
	log        *slog.Logger
	reg        *Registry
	membership Membership
}

// NewHub sets up the hub with the membership oracle + logger
func NewHub(logger *slog.Logger, membership Membership) *Hub {
	return &Hub{log: logger, reg: NewRegistry(), membership: membership}
}

// Registry exposes the live-connection registry, mainly for tests and stats
func (h *Hub) Registry() *Registry { return h.reg }

// ServeWS handles a new /ws/{room}/{user} connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	room := r.PathValue("room")
	user := r.PathValue("user")
	if room == "" || user == "" {
		http.Error(w, "room and user required", http.StatusBadRequest)
		return
	}

	ok, err := h.membership.IsRoomMember(ctx, room, user)
	if err != nil {
		h.log.Error("ws.membership", "room", room, "user", user, "err", err)
		http.Error(w, "membership check failed", http.StatusInternalServerError)
		return
	}

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	// Non-members are turned away after the handshake so the client sees
	// a proper close code. No registry state exists at this point.
	if !ok {
		_ = conn.Close(websocket.StatusPolicyViolation, "not a member of this room")
		return
	}

	c := newConn(conn, room, user)
	h.reg.Register(room, c, user)
	h.log.Debug("ws.joined", "room", room, "user", user)

	go c.writeLoop(ctx)
	defer h.closeSession(c)

	// Receive loop. Every decoded frame is echoed to the whole room,
	// sender included, so clients can confirm optimistic local state.
	for {
		raw, ok := c.read(ctx)
		if !ok {
			return
		}

		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			// Protocol violation is fatal to this session only
			h.log.Debug("ws.frame.decode", "room", room, "user", user, "err", err)
			c.close(websocket.StatusInvalidFramePayloadData, "invalid frame")
			return
		}

		h.SendToRoom(room, Event{Type: "message", Data: frame}, nil)
	}
}

// closeSession runs the session's cleanup exactly once, no matter whether a
// clean disconnect, a protocol error, or a failed fan-out write got here
// first: drop the registry entry, close the socket, tell the room.
func (h *Hub) closeSession(c *Conn) {
	c.teardown.Do(func() {
		user, known := h.reg.UserOf(c)
		h.reg.Unregister(c.room, c)
		c.close(websocket.StatusNormalClosure, "bye")
		if known {
			h.log.Debug("ws.left", "room", c.room, "user", user)
			h.notifyUserLeft(c.room, user)
		}
	})
}

// SendToRoom delivers an encoded event to every live connection in the room
// except exclude. Peers that fail delivery are pruned afterwards and treated
// as ungraceful disconnects; they never abort delivery to the rest.
func (h *Hub) SendToRoom(room string, evt Event, exclude *Conn) {
	raw, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("ws.encode", "room", room, "type", evt.Type, "err", err)
		return
	}
	metrics.WSBroadcasts.WithLabelValues(evt.Type).Inc()

	var dead []*Conn
	for _, c := range h.reg.LiveConnections(room) {
		if c == exclude {
			continue
		}
		if !c.trySend(raw) {
			dead = append(dead, c)
		}
	}

	// Prune in a second pass, outside the registry lock and the hot path
	for _, c := range dead {
		h.closeSession(c)
	}
}

// SendToUser delivers an event to every connection of one user, best-effort.
// A user with no active connection is not an error.
func (h *Hub) SendToUser(user string, evt Event) {
	raw, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("ws.encode", "user", user, "type", evt.Type, "err", err)
		return
	}
	for _, c := range h.reg.ConnsOf(user) {
		_ = c.trySend(raw)
	}
}

// notifyUserLeft broadcasts a synthetic departure event to the remaining
// room peers. Delivery is best-effort; no acknowledgment is awaited.
func (h *Hub) notifyUserLeft(room, userID string) {
	h.SendToRoom(room, Event{
		Type: "user_left",
		Data: map[string]string{"user_id": userID},
	}, nil)
}
