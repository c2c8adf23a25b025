package netsession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/netproto"
	"github.com/roach88/lockstep/internal/pqueue"
	"github.com/roach88/lockstep/internal/syncsum"
)

// HostPlayer is the seat played on the host itself.
const HostPlayer logic.PlayerNumber = 1

// keepChecks bounds how many host hashes are remembered for late reports.
const keepChecks = 64

type peer struct {
	player logic.PlayerNumber
	name   string
	conn   *conn
	acked  logic.Time
	cookie pqueue.Cookie
}

func (p *peer) Cookie() *pqueue.Cookie { return &p.cookie }

// The slowest peer sits on top.
func lessAcked(a, b *peer) bool {
	if a.acked != b.acked {
		return a.acked < b.acked
	}
	return a.player < b.player
}

type peerEvent struct {
	peer *peer
	msg  netproto.Message
	err  error
}

type joinRequest struct {
	hello netproto.Hello
	conn  *conn
	resp  chan joinResponse
}

type joinResponse struct {
	peer   *peer
	reason string
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithReporter sends every sync comparison to r.
func WithReporter(r Reporter) HostOption {
	return func(h *Host) { h.reporter = r }
}

// WithHostLogger overrides the game's logger.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) { h.log = l }
}

// Host serves a game to remote players. All game access happens on the
// goroutine running Run.
type Host struct {
	game     *logic.Game
	cfg      Config
	log      *slog.Logger
	reporter Reporter
	upgrader websocket.Upgrader

	joins  chan joinRequest
	events chan peerEvent
	local  chan logic.PlayerCommand
	done   chan struct{}
	status atomic.Pointer[Status]

	// Owned by Run.
	ctx     context.Context
	peers   map[logic.PlayerNumber]*peer
	lag     *pqueue.Queue[*peer]
	netTime logic.Time
	hashes  map[logic.Time]syncsum.Checksum
	checks  []logic.Time
	reports int
}

// NewHost prepares g for hosting. g must not be used elsewhere once Run is
// called.
func NewHost(g *logic.Game, cfg Config, opts ...HostOption) *Host {
	h := &Host{
		game: g,
		cfg:  cfg.withDefaults(),
		log:  g.Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		joins:   make(chan joinRequest),
		events:  make(chan peerEvent, 64),
		local:   make(chan logic.PlayerCommand, 16),
		done:    make(chan struct{}),
		peers:   make(map[logic.PlayerNumber]*peer),
		lag:     pqueue.New(lessAcked),
		netTime: g.Time(),
		hashes:  make(map[logic.Time]syncsum.Checksum),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.publish()
	return h
}

// Status returns the latest snapshot of the host game.
func (h *Host) Status() Status {
	return *h.status.Load()
}

// SendPlayerCommand submits a command for the host's own seat.
func (h *Host) SendPlayerCommand(ctx context.Context, cmd logic.PlayerCommand) error {
	if cmd.Sender() != HostPlayer {
		return fmt.Errorf("host plays seat %d, command is from %d", HostPlayer, cmd.Sender())
	}
	select {
	case h.local <- cmd:
		return nil
	case <-h.done:
		return errors.New("host stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns the websocket endpoint clients dial.
func (h *Host) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		c := newConn(ws)
		defer c.shutdown("")

		p := h.handshake(r.Context(), c)
		if p == nil {
			return
		}
		for {
			msg, err := c.recv(0)
			select {
			case h.events <- peerEvent{peer: p, msg: msg, err: err}:
			case <-h.done:
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func (h *Host) handshake(ctx context.Context, c *conn) *peer {
	msg, err := c.recv(h.cfg.HandshakeTimeout)
	if err != nil {
		h.log.Warn("handshake failed", "error", err)
		return nil
	}
	hello, ok := msg.(netproto.Hello)
	if !ok {
		h.log.Warn("handshake failed: expected HELLO", "got", msg.Code())
		c.shutdown(netproto.ReasonProtocol)
		return nil
	}
	if hello.Version != netproto.ProtocolVersion {
		h.log.Warn("client protocol version mismatch", "name", hello.Name, "got", hello.Version, "want", netproto.ProtocolVersion)
		c.shutdown(netproto.ReasonWrongVersion)
		return nil
	}

	req := joinRequest{hello: hello, conn: c, resp: make(chan joinResponse, 1)}
	select {
	case h.joins <- req:
	case <-h.done:
		c.shutdown(netproto.ReasonServerLeft)
		return nil
	case <-ctx.Done():
		return nil
	}
	resp := <-req.resp
	if resp.reason != "" {
		c.shutdown(resp.reason)
		return nil
	}
	return resp.peer
}

// Run drives the session until ctx is cancelled or the game fails.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)
	h.ctx = ctx

	iv := h.game.Intervals()
	h.game.AttachNetwork()
	h.game.Enqueue(logic.NewCmdNetCheckSync(h.netTime.Add(iv.NetSync), iv.NetSync, h.onCheckSync))

	ticker := time.NewTicker(h.cfg.Frame)
	defer ticker.Stop()
	h.log.Info("host started", "game", h.game.ID(), "time", h.netTime)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("host stopping: context cancelled", "time", h.netTime)
			h.stop(netproto.ReasonServerLeft)
			return ctx.Err()
		case req := <-h.joins:
			h.handleJoin(req)
		case ev := <-h.events:
			h.handleEvent(ev)
		case cmd := <-h.local:
			h.relay(cmd)
		case <-ticker.C:
			if err := h.advance(); err != nil {
				h.stop(netproto.ReasonServerLeft)
				return err
			}
		}
	}
}

func (h *Host) advance() error {
	target := h.netTime.Add(h.cfg.TimeStep)
	if !h.lag.Empty() {
		if limit := h.lag.Top().acked.Add(h.cfg.MaxLag); limit < target {
			target = limit
		}
	}
	if target <= h.netTime {
		return nil
	}
	// Sync requests raised while running go out before the TIME that lets
	// clients reach them.
	if err := h.game.RunUntil(target); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	h.netTime = target
	h.broadcast(netproto.Time{Time: target})
	h.publish()
	return nil
}

func (h *Host) freeSeat() logic.PlayerNumber {
	for _, p := range h.game.Players() {
		n := p.Number()
		if n == HostPlayer {
			continue
		}
		if _, taken := h.peers[n]; !taken {
			return n
		}
	}
	return 0
}

func (h *Host) handleJoin(req joinRequest) {
	seat := h.freeSeat()
	if seat == 0 {
		h.log.Info("client refused: game full", "name", req.hello.Name)
		req.resp <- joinResponse{reason: netproto.ReasonGameFull}
		return
	}
	var save bytes.Buffer
	if err := h.game.Save(&save); err != nil {
		h.log.Error("could not save game for joining client", "error", err)
		req.resp <- joinResponse{reason: netproto.ReasonProtocol}
		return
	}
	name := req.hello.Name
	if name == "" {
		name = fmt.Sprintf("player %d", seat)
	}
	welcome := netproto.Welcome{Player: seat, GameID: h.game.ID(), Time: h.netTime, Savegame: save.Bytes()}
	if err := req.conn.send(welcome); err != nil {
		req.resp <- joinResponse{reason: netproto.ReasonProtocol}
		return
	}
	p := &peer{player: seat, name: name, conn: req.conn, acked: h.netTime}
	h.peers[seat] = p
	h.lag.Push(p)
	h.log.Info("client joined", "name", name, "player", seat, "time", h.netTime)
	req.resp <- joinResponse{peer: p}
	h.publish()
}

func (h *Host) handleEvent(ev peerEvent) {
	p := ev.peer
	if h.peers[p.player] != p {
		return
	}
	if ev.err != nil {
		h.log.Info("client left", "name", p.name, "player", p.player, "error", ev.err)
		h.drop(p, "")
		return
	}
	switch m := ev.msg.(type) {
	case netproto.Disconnect:
		h.log.Info("client disconnected", "name", p.name, "player", p.player, "reason", m.Reason)
		h.drop(p, "")
	case netproto.PlayerCommand:
		if m.Command.Sender() != p.player {
			h.log.Warn("dropping command with invalid sender",
				"name", p.name, "seat", p.player, "sender", m.Command.Sender(), "kind", m.Command.Kind().String())
			return
		}
		h.relay(m.Command)
	case netproto.Time:
		if m.Time > p.acked && m.Time <= h.netTime {
			p.acked = m.Time
			h.lag.Fix(p)
		}
	case netproto.SyncReport:
		h.compare(p, m)
	default:
		h.log.Warn("unexpected message from client", "name", p.name, "code", ev.msg.Code())
		h.drop(p, netproto.ReasonProtocol)
	}
}

func (h *Host) relay(cmd logic.PlayerCommand) {
	cmd.SetCmdSerial(h.game.CmdSerials().Next())
	cmd.SetDueTime(h.netTime.Add(h.cfg.CommandDelay))
	h.broadcast(netproto.PlayerCommand{Command: cmd})
	h.game.Enqueue(cmd)
	h.log.Debug("relayed command",
		"kind", cmd.Kind().String(), "sender", cmd.Sender(), "serial", cmd.CmdSerial(), "due", cmd.DueTime())
}

func (h *Host) onCheckSync(t logic.Time, sum syncsum.Checksum) {
	h.hashes[t] = sum
	h.checks = append(h.checks, t)
	if len(h.checks) > keepChecks {
		delete(h.hashes, h.checks[0])
		h.checks = h.checks[1:]
	}
	h.broadcast(netproto.SyncRequest{Time: t})
}

func (h *Host) compare(p *peer, rep netproto.SyncReport) {
	expected, ok := h.hashes[rep.Time]
	if !ok {
		h.log.Warn("sync report for unknown check", "name", p.name, "time", rep.Time)
		return
	}
	h.reports++
	res := SyncResult{GameID: h.game.ID(), Time: rep.Time, Peer: p.name, Expected: expected, Got: rep.Sum}
	if !res.OK() {
		h.game.ReportDesync(logic.Desync{Time: rep.Time, Peer: p.name, Expected: expected, Got: rep.Sum})
	}
	if h.reporter != nil {
		if err := h.reporter.ReportSync(h.ctx, res); err != nil {
			h.log.Warn("sync report not stored", "error", err)
		}
	}
	h.publish()
}

func (h *Host) broadcast(m netproto.Message) {
	if len(h.peers) == 0 {
		return
	}
	frame, err := netproto.Encode(m)
	if err != nil {
		h.log.Error("could not encode message", "code", m.Code(), "error", err)
		return
	}
	for _, p := range h.peers {
		if err := p.conn.sendFrame(frame); err != nil {
			h.log.Warn("dropping client", "name", p.name, "player", p.player, "error", err)
			h.drop(p, "")
		}
	}
}

func (h *Host) drop(p *peer, reason string) {
	delete(h.peers, p.player)
	if h.lag.Contains(p) {
		h.lag.Remove(p)
	}
	p.conn.shutdown(reason)
	h.publish()
}

func (h *Host) stop(reason string) {
	for _, p := range h.peers {
		h.drop(p, reason)
	}
	h.game.DetachNetwork()
}

func (h *Host) publish() {
	h.status.Store(&Status{
		Time:    h.netTime,
		Hash:    h.game.SyncHash(),
		Objects: h.game.Objects().Len(),
		Peers:   len(h.peers),
		Reports: h.reports,
		Desyncs: h.game.Desyncs(),
	})
}
