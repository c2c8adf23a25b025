package logic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/syncsum"
)

// MaxPlayers bounds the number of seats in a game.
const MaxPlayers = 16

// Intervals configures the periodic commands. Zero fields take defaults.
type Intervals struct {
	// NetSync is the spacing of network sync checks.
	NetSync Duration

	// ReplaySync is the spacing of sync hashes written to replays.
	ReplaySync Duration

	// Statistics is the spacing of statistics samples.
	Statistics Duration
}

// DefaultIntervals returns the stock timing.
func DefaultIntervals() Intervals {
	return Intervals{
		NetSync:    1000,
		ReplaySync: 200,
		Statistics: 30000,
	}
}

func (iv Intervals) withDefaults() Intervals {
	d := DefaultIntervals()
	if iv.NetSync <= 0 {
		iv.NetSync = d.NetSync
	}
	if iv.ReplaySync <= 0 {
		iv.ReplaySync = d.ReplaySync
	}
	if iv.Statistics <= 0 {
		iv.Statistics = d.Statistics
	}
	return iv
}

// Setup describes a new game. Two games created from equal setups and fed
// the same player commands stay in sync.
type Setup struct {
	// ID identifies the game. A zero ID gets a fresh UUIDv7.
	ID uuid.UUID

	// Seed initializes the logic RNG.
	Seed uint64

	// Players lists player names; player n is Players[n-1].
	Players []string

	// StartingWares overrides the initial stock of every player when set.
	StartingWares *[NumWares]int32

	Intervals Intervals
}

// ReplayRecorder receives the data a replay file needs while the game runs.
type ReplayRecorder interface {
	// RecordCommand is called for every player command as it executes.
	RecordCommand(cmd PlayerCommand) error

	// SendSync is called by the replay sync chain with the current hash.
	SendSync(t Time, sum syncsum.Checksum) error
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Game) {
		g.log = l
	}
}

// WithSyncDump keeps the most recent keep bytes of the sync stream and
// writes them into dir whenever a desync is reported.
func WithSyncDump(dir string, keep int) Option {
	return func(g *Game) {
		g.dumpDir = dir
		g.dumpKeep = keep
	}
}

// WithDesyncHandler registers fn to be called for every reported desync.
func WithDesyncHandler(fn func(Desync)) Option {
	return func(g *Game) {
		g.desyncHandlers = append(g.desyncHandlers, fn)
	}
}

// Game is the simulation state plus the queue that drives it.
//
// A Game is not safe for concurrent use. All methods except Submit and
// CmdSerials().Next must be called from the goroutine that runs it.
type Game struct {
	id        uuid.UUID
	time      Time
	started   bool
	intervals Intervals

	queue   *Queue
	inbox   *Inbox
	serials *CmdSerials
	sync    *syncsum.Accumulator
	rng     *rand.PCG

	players []*Player
	objects *Objects

	replay  ReplayRecorder
	network bool

	desyncHandlers []func(Desync)
	desyncs        int
	dumpDir        string
	dumpKeep       int

	log *slog.Logger
}

// NewGame creates a game at time 0 from setup.
func NewGame(setup Setup, opts ...Option) (*Game, error) {
	if len(setup.Players) == 0 {
		return nil, errors.New("new game: at least one player required")
	}
	if len(setup.Players) > MaxPlayers {
		return nil, fmt.Errorf("new game: %d players exceeds maximum %d", len(setup.Players), MaxPlayers)
	}

	id := setup.ID
	if id == uuid.Nil {
		var err error
		id, err = uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("new game: generate id: %w", err)
		}
	}

	g := newGame(id, setup.Intervals, opts)
	g.rng = newRNG(setup.Seed)

	stock := defaultStartingWares
	if setup.StartingWares != nil {
		stock = *setup.StartingWares
	}
	for i, name := range setup.Players {
		name = normalizeName(name)
		if name == "" {
			return nil, fmt.Errorf("new game: player %d: empty name", i+1)
		}
		g.players = append(g.players, newPlayer(PlayerNumber(i+1), name, stock))
	}

	g.log.Debug("game created",
		"game", g.id,
		"seed", setup.Seed,
		"players", len(g.players),
	)
	return g, nil
}

func newGame(id uuid.UUID, iv Intervals, opts []Option) *Game {
	g := &Game{
		id:        id,
		intervals: iv.withDefaults(),
		queue:     newQueue(),
		inbox:     NewInbox(),
		serials:   NewCmdSerials(),
		sync:      syncsum.New(),
		objects:   newObjects(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.dumpKeep > 0 {
		g.sync.KeepRecent(g.dumpKeep)
	}
	return g
}

func newRNG(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// ID returns the game's identifier.
func (g *Game) ID() uuid.UUID { return g.id }

// Time returns the current game time.
func (g *Game) Time() Time { return g.time }

// Intervals returns the effective periodic command timing.
func (g *Game) Intervals() Intervals { return g.intervals }

// Queue returns the command queue.
func (g *Game) Queue() *Queue { return g.queue }

// Inbox returns the inbox other goroutines submit commands through.
func (g *Game) Inbox() *Inbox { return g.inbox }

// CmdSerials returns the local player command serial counter.
func (g *Game) CmdSerials() *CmdSerials { return g.serials }

// Objects returns the object manager.
func (g *Game) Objects() *Objects { return g.objects }

// Logger returns the game's logger.
func (g *Game) Logger() *slog.Logger { return g.log }

// Player returns player n.
func (g *Game) Player(n PlayerNumber) (*Player, bool) {
	if n == 0 || int(n) > len(g.players) {
		return nil, false
	}
	return g.players[n-1], true
}

// Players returns all players ordered by number.
func (g *Game) Players() []*Player {
	out := make([]*Player, len(g.players))
	copy(out, g.players)
	return out
}

// Start schedules the recurring game-logic commands. Call once on a new game;
// a loaded game already carries them in its queue.
func (g *Game) Start() error {
	if g.started {
		return errors.New("game already started")
	}
	g.started = true
	g.queue.Enqueue(NewCmdCalculateStatistics(g.time.Add(g.intervals.Statistics)))
	return nil
}

// Enqueue schedules cmd. Must be called from the game goroutine.
func (g *Game) Enqueue(cmd Command) {
	g.queue.Enqueue(cmd)
}

// Submit hands cmd to the game from any goroutine. It is queued at the start
// of the next RunUntil. Returns false once the inbox is closed.
func (g *Game) Submit(cmd Command) bool {
	return g.inbox.Submit(cmd)
}

// SendPlayerCommand issues a local player command: it assigns the next
// cmdserial if none is set and, if the duetime is not in the future, makes
// the command due on the next millisecond.
func (g *Game) SendPlayerCommand(cmd PlayerCommand) {
	if cmd.CmdSerial() == 0 {
		cmd.SetCmdSerial(g.serials.Next())
	}
	if cmd.DueTime() <= g.time {
		cmd.SetDueTime(g.time + 1)
	}
	g.queue.Enqueue(cmd)
}

// RunUntil moves submitted commands into the queue and executes everything
// due at or before now.
func (g *Game) RunUntil(now Time) error {
	for _, cmd := range g.inbox.drain() {
		g.queue.Enqueue(cmd)
	}
	return g.queue.RunUntil(g, now)
}

// SyncHash returns the current sync checksum without disturbing the stream.
func (g *Game) SyncHash() syncsum.Checksum {
	return g.sync.Snapshot()
}

// SyncFed returns the number of bytes fed into the sync stream.
func (g *Game) SyncFed() uint64 {
	return g.sync.Fed()
}

// WriteSyncDump writes the retained tail of the sync stream to w.
func (g *Game) WriteSyncDump(w io.Writer) error {
	return g.sync.WriteDump(w)
}

// LogicRand draws from the simulation RNG. Every draw is hashed.
func (g *Game) LogicRand() uint32 {
	v := uint32(g.rng.Uint64() >> 32)
	g.sync.Entry(syncsum.EntryRandom)
	g.sync.U32(v)
	return v
}

// AttachReplay starts recording into r and schedules the replay sync chain.
func (g *Game) AttachReplay(r ReplayRecorder) error {
	if g.replay != nil {
		return errors.New("replay recorder already attached")
	}
	g.replay = r
	g.queue.Enqueue(NewCmdReplaySyncWrite(g.time.Add(g.intervals.ReplaySync)))
	return nil
}

// DetachReplay stops recording. The sync chain ends at its next run.
func (g *Game) DetachReplay() {
	g.replay = nil
}

// ReplayAttached reports whether a replay recorder is attached.
func (g *Game) ReplayAttached() bool {
	return g.replay != nil
}

// AttachNetwork marks the game as part of a network session. Net sync checks
// only report while attached.
func (g *Game) AttachNetwork() { g.network = true }

// DetachNetwork ends network participation. Pending net sync checks become
// no-ops and stop rescheduling.
func (g *Game) DetachNetwork() { g.network = false }

// NetworkAttached reports whether the game is part of a network session.
func (g *Game) NetworkAttached() bool { return g.network }

// ReportDesync logs d, dumps the sync stream if configured and notifies the
// desync handlers. The game keeps running.
func (g *Game) ReportDesync(d Desync) {
	g.desyncs++
	attrs := []any{
		"game", g.id,
		"time", d.Time,
		"peer", d.Peer,
		"expected", d.Expected.String(),
		"got", d.Got.String(),
	}
	if g.dumpDir != "" {
		name := fmt.Sprintf("desync-%08d-%d.bin.zst", d.Time, g.desyncs)
		path, err := g.sync.DumpToDir(g.dumpDir, name)
		if err != nil {
			g.log.Warn("sync dump failed", "error", err)
		} else {
			d.DumpPath = path
			attrs = append(attrs, "dump", path)
		}
	}
	g.log.Error("desync detected", attrs...)
	for _, fn := range g.desyncHandlers {
		fn(d)
	}
}

// Desyncs returns the number of desyncs reported so far.
func (g *Game) Desyncs() int { return g.desyncs }

func (g *Game) recordCommand(pc PlayerCommand) {
	if g.replay == nil {
		return
	}
	if err := g.replay.RecordCommand(pc); err != nil {
		g.log.Error("replay recording failed, recording stopped",
			"kind", pc.Kind().String(),
			"time", pc.DueTime(),
			"error", err,
		)
		g.replay = nil
	}
}

// LogValue implements slog.LogValuer.
func (g *Game) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", g.id.String()),
		slog.Int("time", int(g.time)),
		slog.Any("queue", g.queue),
		slog.Int("objects", g.objects.Len()),
	)
}
