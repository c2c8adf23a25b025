package logic

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/wire"
)

const (
	savegameMagic   uint32 = 0x4c535347 // "LSSG"
	savegameVersion uint16 = 1

	queuePacketVersion uint16 = 1
)

// Save writes the full game state: everything needed to continue the game
// and stay in sync with peers that did not save.
//
// Only game-logic commands are written from the queue. Sync probes belong to
// the session that scheduled them and must be rescheduled after loading.
func (g *Game) Save(out io.Writer) error {
	w := wire.NewWriter(out)
	w.U32(savegameMagic)
	w.U16(savegameVersion)
	w.Raw(g.id[:])
	w.I32(int32(g.time))
	w.Bool(g.started)
	w.I32(int32(g.intervals.NetSync))
	w.I32(int32(g.intervals.ReplaySync))
	w.I32(int32(g.intervals.Statistics))
	w.U32(g.serials.Current())

	rng, err := g.rng.MarshalBinary()
	if err != nil {
		return fmt.Errorf("save game: rng: %w", err)
	}
	w.Blob(rng)
	sum, err := g.sync.MarshalBinary()
	if err != nil {
		return fmt.Errorf("save game: sync state: %w", err)
	}
	w.Blob(sum)

	w.U8(uint8(len(g.players)))
	for _, p := range g.players {
		savePlayer(w, p)
	}

	w.U32(uint32(g.objects.last))
	serials := g.objects.Serials()
	w.U32(uint32(len(serials)))
	for _, s := range serials {
		obj := g.objects.byID[s]
		w.U8(uint8(obj.Type()))
		obj.save(w)
	}

	if err := g.saveQueue(w); err != nil {
		return fmt.Errorf("save game: command queue: %w", err)
	}
	if err := w.Err(); err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

func (g *Game) saveQueue(w *wire.Writer) error {
	items := g.queue.gameLogic()
	w.U16(queuePacketVersion)
	w.U32(g.queue.nextSerial)
	w.U32(uint32(len(items)))
	for i, b := range items {
		w.I32(int32(b.duetime))
		w.U8(uint8(b.category))
		w.U32(b.serial)
		if err := EncodeCommand(w, b.owner.(GameLogicCommand)); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func savePlayer(w *wire.Writer, p *Player) {
	w.String(p.name)
	for _, v := range p.stock {
		w.I32(v)
	}
	for _, v := range p.targets {
		w.U32(v)
	}
	w.U32(uint32(len(p.statistics)))
	for _, s := range p.statistics {
		w.I32(int32(s.Time))
		for _, v := range s.Stock {
			w.I32(v)
		}
		w.U32(s.Buildings)
		w.U32(s.Ships)
	}
}

// LoadGame reads a game written by Save. The loaded game is not attached to
// any network session or replay recorder.
func LoadGame(in io.Reader, opts ...Option) (*Game, error) {
	g, err := loadGame(wire.NewReader(in), opts)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	return g, nil
}

func loadGame(r *wire.Reader, opts []Option) (*Game, error) {
	if magic := r.U32(); r.Err() == nil && magic != savegameMagic {
		return nil, fmt.Errorf("not a savegame (magic %#08x)", magic)
	}
	if v := r.U16(); r.Err() == nil && v != savegameVersion {
		return nil, &UnhandledVersionError{Type: "savegame", Got: v, Want: savegameVersion}
	}
	var id uuid.UUID
	r.Raw(id[:])
	now := Time(r.I32())
	started := r.Bool()
	iv := Intervals{
		NetSync:    Duration(r.I32()),
		ReplaySync: Duration(r.I32()),
		Statistics: Duration(r.I32()),
	}
	lastSerial := r.U32()
	rngState := r.Blob()
	syncState := r.Blob()
	if err := r.Err(); err != nil {
		return nil, err
	}

	g := newGame(id, iv, opts)
	g.time = now
	g.started = started
	g.serials = NewCmdSerialsAt(lastSerial)
	g.rng = rand.NewPCG(0, 0)
	if err := g.rng.UnmarshalBinary(rngState); err != nil {
		return nil, fmt.Errorf("rng: %w", err)
	}
	if err := g.sync.UnmarshalBinary(syncState); err != nil {
		return nil, fmt.Errorf("sync state: %w", err)
	}

	n := int(r.U8())
	if r.Err() == nil && (n == 0 || n > MaxPlayers) {
		r.Fail("invalid player count %d", n)
	}
	for i := 0; i < n && r.Err() == nil; i++ {
		g.players = append(g.players, loadPlayer(r, PlayerNumber(i+1)))
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}

	if err := loadObjects(r, g); err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	if err := loadQueue(r, g); err != nil {
		return nil, fmt.Errorf("command queue: %w", err)
	}
	return g, nil
}

func loadPlayer(r *wire.Reader, n PlayerNumber) *Player {
	p := &Player{number: n, name: r.String()}
	for i := range p.stock {
		p.stock[i] = r.I32()
	}
	for i := range p.targets {
		p.targets[i] = r.U32()
	}
	samples := r.U32()
	for i := uint32(0); i < samples && r.Err() == nil; i++ {
		s := StatSample{Time: Time(r.I32())}
		for w := range s.Stock {
			s.Stock[w] = r.I32()
		}
		s.Buildings = r.U32()
		s.Ships = r.U32()
		p.statistics = append(p.statistics, s)
	}
	return p
}

func loadObjects(r *wire.Reader, g *Game) error {
	g.objects.last = Serial(r.U32())
	count := r.U32()
	for i := uint32(0); i < count && r.Err() == nil; i++ {
		var obj Object
		switch t := ObjectType(r.U8()); t {
		case ObjectBuilding:
			obj = loadBuilding(r)
		case ObjectShip:
			obj = loadShip(r)
		default:
			r.Fail("object %d: unknown type %d", i, t)
			continue
		}
		if r.Err() != nil {
			break
		}
		if obj.Serial() == 0 || obj.Serial() > g.objects.last {
			r.Fail("object %d: serial %d out of range", i, obj.Serial())
			break
		}
		if _, ok := g.Player(obj.Owner()); !ok {
			r.Fail("object %d: invalid owner %d", obj.Serial(), obj.Owner())
			break
		}
		g.objects.byID[obj.Serial()] = obj
	}
	return r.Err()
}

func loadQueue(r *wire.Reader, g *Game) error {
	if v := r.U16(); r.Err() == nil && v != queuePacketVersion {
		return &UnhandledVersionError{Type: "command queue", Got: v, Want: queuePacketVersion}
	}
	g.queue.nextSerial = r.U32()
	count := r.U32()
	if err := r.Err(); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		due := Time(r.I32())
		cat := category(r.U8())
		serial := r.U32()
		if err := r.Err(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		cmd, err := DecodeCommand(r)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if categoryOf(cmd) != cat {
			return fmt.Errorf("item %d: %s saved as %s", i, cmd.Kind(), cat)
		}
		cmd.SetDueTime(due)
		g.queue.restore(cmd, cat, serial)
	}
	return nil
}
