package netsession

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/lockstep/internal/netproto"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 256
)

var (
	errClosed   = errors.New("connection closed")
	errSlowPeer = errors.New("peer is not reading, send buffer full")
)

// conn frames netproto messages over a websocket. Sends are queued to a
// writer goroutine so the game goroutine never blocks on the network.
type conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	out    chan []byte
	closed bool

	done chan struct{}
}

func newConn(ws *websocket.Conn) *conn {
	c := &conn{
		ws:   ws,
		out:  make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *conn) send(m netproto.Message) error {
	b, err := netproto.Encode(m)
	if err != nil {
		return err
	}
	return c.sendFrame(b)
}

func (c *conn) sendFrame(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.out <- b:
		return nil
	default:
		c.closed = true
		close(c.out)
		return errSlowPeer
	}
}

// shutdown queues a DISCONNECT carrying reason (if any) and closes the
// connection once everything queued has been written.
func (c *conn) shutdown(reason string) {
	if reason != "" {
		_ = c.send(netproto.Disconnect{Reason: reason})
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
	c.mu.Unlock()
}

func (c *conn) writeLoop() {
	defer close(c.done)
	defer c.ws.Close()
	for b := range c.out {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// recv reads one message. A zero timeout waits indefinitely.
func (c *conn) recv(timeout time.Duration) (netproto.Message, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	_ = c.ws.SetReadDeadline(deadline)
	typ, frame, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("unexpected websocket message type %d", typ)
	}
	return netproto.Decode(frame)
}
