package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const (
	outBuffer  = 256
	writeWait  = 10 * time.Second
	pingPeriod = 20 * time.Second
)

// Conn wraps one accepted websocket for one (room, user) pair. The session
// goroutine owns the read side; peers reach it only through trySend.
type Conn struct {
	ws   *websocket.Conn
	out  chan []byte
	room string
	user string

	closed   atomic.Bool
	teardown sync.Once
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// newConn wraps a WS connection for a specific room + user
func newConn(ws *websocket.Conn, room, user string) *Conn {
	return &Conn{
		ws:   ws,
		room: room,
		user: user,
		out:  make(chan []byte, outBuffer),
	}
}

// read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// trySend queues an encoded frame without blocking. False means the peer is
// dead or too slow to keep up and should be pruned.
func (c *Conn) trySend(b []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

// writeLoop drains outbound frames and keeps the peer alive with pings.
// Exits when ctx is cancelled or a write fails.
func (c *Conn) writeLoop(ctx context.Context) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.ws.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				// The read loop will observe the dead socket and clean up
				c.closed.Store(true)
				return
			}
		case <-t.C:
			if err := c.ws.Ping(ctx); err != nil {
				c.closed.Store(true)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// close marks the connection dead and closes the socket
func (c *Conn) close(code websocket.StatusCode, reason string) {
	c.closed.Store(true)
	if c.ws != nil {
		_ = c.ws.Close(code, reason)
	}
}
