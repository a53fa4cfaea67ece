package ws

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"
	"nhooyr.io/websocket"

	"github.com/stretchr/testify/require"
)

// memberSet stubs the membership oracle with a fixed allow list
type memberSet map[string]bool

func (m memberSet) IsRoomMember(_ context.Context, roomID, userID string) (bool, error) {
	return m[roomID+"/"+userID], nil
}

func startTestServer(t *testing.T, members memberSet) (*Hub, string) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), members)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{room}/{user}", hub.ServeWS)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, baseURL, room, user string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, baseURL+"/ws/"+room+"/"+user, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, raw, err := conn.Read(ctx)
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(raw, &evt))
	return evt
}

func waitForRoomSize(t *testing.T, hub *Hub, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(hub.Registry().LiveConnections(room)) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoomEchoAndDeparture(t *testing.T) {
	members := memberSet{"r1/A": true, "r1/B": true, "r1/C": true}
	hub, url := startTestServer(t, members)

	a := dial(t, url, "r1", "A")
	defer a.Close(websocket.StatusNormalClosure, "")
	b := dial(t, url, "r1", "B")
	c := dial(t, url, "r1", "C")
	defer c.Close(websocket.StatusNormalClosure, "")
	waitForRoomSize(t, hub, "r1", 3)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte(`{"type":"text","content":"hi"}`)))

	// Everyone receives the message, the sender included
	for _, conn := range []*websocket.Conn{a, b, c} {
		evt := readEvent(t, conn)
		require.Equal(t, "message", evt.Type)
		require.Equal(t, map[string]any{"type": "text", "content": "hi"}, evt.Data)
	}

	// B drops; A and C each see exactly one departure notice
	require.NoError(t, b.Close(websocket.StatusNormalClosure, ""))
	for _, conn := range []*websocket.Conn{a, c} {
		evt := readEvent(t, conn)
		require.Equal(t, "user_left", evt.Type)
		require.Equal(t, map[string]any{"user_id": "B"}, evt.Data)
	}
	waitForRoomSize(t, hub, "r1", 2)
}

func TestAdmissionDeniedClosesWithPolicyViolation(t *testing.T) {
	hub, url := startTestServer(t, memberSet{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url+"/ws/r1/stranger", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	require.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))

	// No registry state was ever created
	require.Empty(t, hub.Registry().LiveConnections("r1"))
}

func TestMalformedFrameKillsOnlyTheSender(t *testing.T) {
	members := memberSet{"r2/U": true, "r2/V": true}
	hub, url := startTestServer(t, members)

	u := dial(t, url, "r2", "U")
	defer u.Close(websocket.StatusNormalClosure, "")
	v := dial(t, url, "r2", "V")
	defer v.Close(websocket.StatusNormalClosure, "")
	waitForRoomSize(t, hub, "r2", 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, u.Write(ctx, websocket.MessageText, []byte("this is not json")))

	// The offending session is closed by the server
	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	for {
		_, _, err := u.Read(readCtx)
		if err != nil {
			break
		}
	}
	waitForRoomSize(t, hub, "r2", 1)

	// V never saw a message broadcast of the garbage frame; the only event
	// it may observe is U's departure
	evt := readEvent(t, v)
	require.Equal(t, "user_left", evt.Type)
	require.Len(t, hub.Registry().ConnsOf("V"), 1)
}

func TestSecondFrameOrdering(t *testing.T) {
	members := memberSet{"r3/A": true, "r3/B": true}
	hub, url := startTestServer(t, members)

	a := dial(t, url, "r3", "A")
	defer a.Close(websocket.StatusNormalClosure, "")
	b := dial(t, url, "r3", "B")
	defer b.Close(websocket.StatusNormalClosure, "")
	waitForRoomSize(t, hub, "r3", 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte(`{"type":"text","content":"first"}`)))
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte(`{"type":"text","content":"second"}`)))

	first := readEvent(t, b)
	second := readEvent(t, b)
	require.Equal(t, "first", first.Data.(map[string]any)["content"])
	require.Equal(t, "second", second.Data.(map[string]any)["content"])
}
