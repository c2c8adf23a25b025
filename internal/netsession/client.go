package netsession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/netproto"
	"github.com/roach88/lockstep/internal/syncsum"
)

// Client plays one seat of a hosted game.
type Client struct {
	conn   *conn
	game   *logic.Game
	player logic.PlayerNumber
	log    *slog.Logger

	times  chan logic.Time
	quit   chan struct{}
	status atomic.Pointer[Status]
}

// Dial connects to the host at url (ws:// or wss://), performs the handshake
// and loads the host's game. opts are applied to the loaded game.
func Dial(ctx context.Context, url, name string, opts ...logic.Option) (*Client, error) {
	return dial(ctx, url, name, DefaultConfig().HandshakeTimeout, opts)
}

func dial(ctx context.Context, url, name string, timeout time.Duration, opts []logic.Option) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := newConn(ws)
	if err := c.send(netproto.Hello{Version: netproto.ProtocolVersion, Name: name}); err != nil {
		c.shutdown("")
		return nil, fmt.Errorf("handshake: %w", err)
	}
	msg, err := c.recv(timeout)
	if err != nil {
		c.shutdown("")
		return nil, fmt.Errorf("handshake: %w", err)
	}
	var welcome netproto.Welcome
	switch m := msg.(type) {
	case netproto.Welcome:
		welcome = m
	case netproto.Disconnect:
		c.shutdown("")
		return nil, &RejectedError{Reason: m.Reason}
	default:
		c.shutdown(netproto.ReasonProtocol)
		return nil, fmt.Errorf("handshake: expected WELCOME, got %s", msg.Code())
	}

	g, err := logic.LoadGame(bytes.NewReader(welcome.Savegame), opts...)
	if err != nil {
		c.shutdown(netproto.ReasonClientLeft)
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if g.ID() != welcome.GameID {
		c.shutdown(netproto.ReasonProtocol)
		return nil, fmt.Errorf("handshake: savegame is for game %s, host announced %s", g.ID(), welcome.GameID)
	}
	g.AttachNetwork()

	cl := &Client{
		conn:   c,
		game:   g,
		player: welcome.Player,
		log:    g.Logger(),
		times:  make(chan logic.Time, 64),
		quit:   make(chan struct{}),
	}
	cl.publish()
	cl.log.Info("joined game", "game", g.ID(), "player", cl.player, "time", g.Time())
	return cl, nil
}

// Player returns the seat assigned by the host.
func (c *Client) Player() logic.PlayerNumber { return c.player }

// Status returns the latest snapshot of the client game.
func (c *Client) Status() Status { return *c.status.Load() }

// SendPlayerCommand asks the host to relay cmd. Its duetime and cmdserial
// are assigned by the host. Safe to call from any goroutine.
func (c *Client) SendPlayerCommand(cmd logic.PlayerCommand) error {
	if cmd.Sender() != c.player {
		return fmt.Errorf("client plays seat %d, command is from %d", c.player, cmd.Sender())
	}
	if err := c.conn.send(netproto.PlayerCommand{Command: cmd}); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Kind(), err)
	}
	return nil
}

// Run simulates up to each committed network time until the host
// disconnects or ctx is cancelled. The game is only touched from here.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.quit)
	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop() }()

	for {
		select {
		case <-ctx.Done():
			c.game.DetachNetwork()
			c.conn.shutdown(netproto.ReasonClientLeft)
			return ctx.Err()
		case err := <-readErr:
			c.game.DetachNetwork()
			c.conn.shutdown("")
			return err
		case t := <-c.times:
			if err := c.game.RunUntil(t); err != nil {
				c.conn.shutdown(netproto.ReasonClientLeft)
				return fmt.Errorf("client: %w", err)
			}
			_ = c.conn.send(netproto.Time{Time: t})
			c.publish()
		}
	}
}

// readLoop hands commands to the game through its inbox and committed times
// through c.times. Both arrive in the order the host sent them.
func (c *Client) readLoop() error {
	for {
		msg, err := c.conn.recv(0)
		if err != nil {
			return fmt.Errorf("read from host: %w", err)
		}
		switch m := msg.(type) {
		case netproto.PlayerCommand:
			c.game.Submit(m.Command)
		case netproto.SyncRequest:
			c.game.Submit(logic.NewCmdNetCheckSync(m.Time, 0, c.reportSync))
		case netproto.Time:
			select {
			case c.times <- m.Time:
			case <-c.quit:
				return errors.New("client stopped")
			}
		case netproto.Disconnect:
			c.log.Info("host closed the session", "reason", m.Reason)
			return &DisconnectedError{Reason: m.Reason}
		default:
			c.log.Warn("unexpected message from host", "code", msg.Code())
		}
	}
}

// reportSync runs on the game goroutine.
func (c *Client) reportSync(t logic.Time, sum syncsum.Checksum) {
	if err := c.conn.send(netproto.SyncReport{Time: t, Sum: sum}); err != nil {
		c.log.Warn("sync report not sent", "time", t, "error", err)
	}
}

func (c *Client) publish() {
	c.status.Store(&Status{
		Time:    c.game.Time(),
		Hash:    c.game.SyncHash(),
		Objects: c.game.Objects().Len(),
		Desyncs: c.game.Desyncs(),
	})
}
