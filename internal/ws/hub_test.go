package ws

import (
	"encoding/json"
	"io"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// drain decodes every frame queued on a connection's outbound buffer
func drain(t *testing.T, c *Conn) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case raw := <-c.out:
			var evt Event
			require.NoError(t, json.Unmarshal(raw, &evt))
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestSendToRoomDeliversToRoomOnly(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	c := testConn("r1", "C", 8)
	x := testConn("r2", "X", 8)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")
	h.reg.Register("r1", c, "C")
	h.reg.Register("r2", x, "X")

	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{"content": "hi"}}, nil)

	for _, peer := range []*Conn{a, b, c} {
		evts := drain(t, peer)
		require.Len(t, evts, 1)
		require.Equal(t, "message", evts[0].Type)
	}
	require.Empty(t, drain(t, x))
}

func TestSendToRoomHonorsExclusion(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")

	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{}}, a)

	require.Empty(t, drain(t, a))
	require.Len(t, drain(t, b), 1)
}

func TestBroadcastPrunesFailedPeer(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 0) // zero buffer: every delivery fails
	c := testConn("r1", "C", 8)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")
	h.reg.Register("r1", c, "C")

	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{"content": "hi"}}, nil)

	// The failed peer is gone as soon as the call returns
	require.ElementsMatch(t, []*Conn{a, c}, h.reg.LiveConnections("r1"))
	_, ok := h.reg.UserOf(b)
	require.False(t, ok)

	// Remaining peers saw the message, then exactly one departure notice
	for _, peer := range []*Conn{a, c} {
		evts := drain(t, peer)
		require.Len(t, evts, 2)
		require.Equal(t, "message", evts[0].Type)
		require.Equal(t, "user_left", evts[1].Type)
		require.Equal(t, map[string]any{"user_id": "B"}, evts[1].Data)
	}
}

func TestPrunedPeerNotifiedOnlyOnce(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 0)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")

	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{}}, nil)
	// A later explicit close of the same session must not repeat the notice
	h.closeSession(b)

	var left int
	for _, evt := range drain(t, a) {
		if evt.Type == "user_left" {
			left++
		}
	}
	require.Equal(t, 1, left)
}

func TestPerSenderOrderingPreserved(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")

	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{"n": "1"}}, nil)
	h.SendToRoom("r1", Event{Type: "message", Data: map[string]any{"n": "2"}}, nil)

	evts := drain(t, b)
	require.Len(t, evts, 2)
	require.Equal(t, map[string]any{"n": "1"}, evts[0].Data)
	require.Equal(t, map[string]any{"n": "2"}, evts[1].Data)
}

func TestSendToUserReachesAllConnections(t *testing.T) {
	h := testHub()
	a1 := testConn("r1", "A", 8)
	a2 := testConn("r2", "A", 8)
	b := testConn("r1", "B", 8)
	h.reg.Register("r1", a1, "A")
	h.reg.Register("r2", a2, "A")
	h.reg.Register("r1", b, "B")

	h.SendToUser("A", Event{Type: "message", Data: map[string]any{"content": "direct"}})

	require.Len(t, drain(t, a1), 1)
	require.Len(t, drain(t, a2), 1)
	require.Empty(t, drain(t, b))
}

func TestSendToUserToleratesFailuresAndAbsence(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 0)
	h.reg.Register("r1", a, "A")

	// Neither a full buffer nor an unknown user prunes or panics
	h.SendToUser("A", Event{Type: "message", Data: map[string]any{}})
	h.SendToUser("ghost", Event{Type: "message", Data: map[string]any{}})

	require.ElementsMatch(t, []*Conn{a}, h.reg.LiveConnections("r1"))
}

func TestCloseSessionUnregistersAndNotifies(t *testing.T) {
	h := testHub()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	h.reg.Register("r1", a, "A")
	h.reg.Register("r1", b, "B")

	h.closeSession(a)

	require.ElementsMatch(t, []*Conn{b}, h.reg.LiveConnections("r1"))

	evts := drain(t, b)
	require.Len(t, evts, 1)
	require.Equal(t, "user_left", evts[0].Type)
	require.Equal(t, map[string]any{"user_id": "A"}, evts[0].Data)

	// The departed connection never sees its own departure
	require.Empty(t, drain(t, a))
}
