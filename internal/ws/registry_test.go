package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConn(room, user string, buf int) *Conn {
	return &Conn{room: room, user: user, out: make(chan []byte, buf)}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)

	reg.Register("r1", a, "A")
	reg.Register("r1", b, "B")

	require.ElementsMatch(t, []*Conn{a, b}, reg.LiveConnections("r1"))
	require.Empty(t, reg.LiveConnections("r2"))

	user, ok := reg.UserOf(a)
	require.True(t, ok)
	require.Equal(t, "A", user)
}

func TestUnregisterDropsIdentityAndEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	reg.Register("r1", a, "A")
	reg.Register("r1", b, "B")

	reg.Unregister("r1", a)
	require.ElementsMatch(t, []*Conn{b}, reg.LiveConnections("r1"))
	_, ok := reg.UserOf(a)
	require.False(t, ok)

	reg.Unregister("r1", b)
	require.Empty(t, reg.LiveConnections("r1"))

	// Internal room entry is gone, not just empty
	reg.mu.RLock()
	_, roomExists := reg.rooms["r1"]
	reg.mu.RUnlock()
	require.False(t, roomExists)
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	a := testConn("r1", "A", 8)

	reg.Unregister("r1", a)
	reg.Register("r1", a, "A")
	reg.Unregister("nope", a)

	require.ElementsMatch(t, []*Conn{a}, reg.LiveConnections("r1"))
}

func TestLiveConnectionsIsASnapshot(t *testing.T) {
	reg := NewRegistry()
	a := testConn("r1", "A", 8)
	b := testConn("r1", "B", 8)
	reg.Register("r1", a, "A")
	reg.Register("r1", b, "B")

	snap := reg.LiveConnections("r1")
	reg.Unregister("r1", a)
	reg.Unregister("r1", b)

	// The earlier copy is unaffected by later mutation
	require.Len(t, snap, 2)
	require.Empty(t, reg.LiveConnections("r1"))
}

func TestConnsOfSpansRooms(t *testing.T) {
	reg := NewRegistry()
	a1 := testConn("r1", "A", 8)
	a2 := testConn("r2", "A", 8)
	b := testConn("r1", "B", 8)
	reg.Register("r1", a1, "A")
	reg.Register("r2", a2, "A")
	reg.Register("r1", b, "B")

	require.ElementsMatch(t, []*Conn{a1, a2}, reg.ConnsOf("A"))
	require.Empty(t, reg.ConnsOf("nobody"))
}
