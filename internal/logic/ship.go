package logic

import (
	"fmt"

	"github.com/roach88/lockstep/internal/wire"
)

const (
	shipSailInterval Duration = 1000
	actSail          uint32   = 0
)

// expeditionProvisions is the fish a ship loads when starting an expedition.
const expeditionProvisions = 2

// Ship is a seafaring unit. Ships only move while on an expedition with a
// scouting direction set.
type Ship struct {
	serial     Serial
	owner      PlayerNumber
	name       string
	pos        Coords
	expedition bool
	scout      Direction
	sinking    bool
	moves      uint32
}

func (s *Ship) Serial() Serial            { return s.serial }
func (s *Ship) Type() ObjectType          { return ObjectShip }
func (s *Ship) Owner() PlayerNumber       { return s.owner }
func (s *Ship) Name() string              { return s.name }
func (s *Ship) Pos() Coords               { return s.pos }
func (s *Ship) OnExpedition() bool        { return s.expedition }
func (s *Ship) ScoutDirection() Direction { return s.scout }
func (s *Ship) Sinking() bool             { return s.sinking }
func (s *Ship) Moves() uint32             { return s.moves }

func (g *Game) createShip(owner PlayerNumber, pos Coords, name string) *Ship {
	s := &Ship{
		serial: g.nextSerial(),
		owner:  owner,
		name:   normalizeName(name),
		pos:    pos,
	}
	g.addObject(s)
	g.scheduleAct(s.serial, shipSailInterval, actSail)
	return s
}

func (s *Ship) act(g *Game, data uint32) error {
	if data != actSail {
		return fmt.Errorf("ship %d: unknown act %d", s.serial, data)
	}
	if s.sinking {
		return nil
	}
	if s.expedition && s.scout != DirNone {
		s.pos = s.pos.Step(s.scout)
		s.moves++
		g.hashObjectState(s.serial, uint32(uint16(s.pos.X)), uint32(uint16(s.pos.Y)))
	}
	g.scheduleAct(s.serial, shipSailInterval, actSail)
	return nil
}

func (s *Ship) save(w *wire.Writer) {
	w.U32(uint32(s.serial))
	w.U8(uint8(s.owner))
	w.String(s.name)
	w.I16(s.pos.X)
	w.I16(s.pos.Y)
	w.Bool(s.expedition)
	w.U8(uint8(s.scout))
	w.Bool(s.sinking)
	w.U32(s.moves)
}

func loadShip(r *wire.Reader) *Ship {
	s := &Ship{
		serial: Serial(r.U32()),
		owner:  PlayerNumber(r.U8()),
		name:   r.String(),
	}
	s.pos.X = r.I16()
	s.pos.Y = r.I16()
	s.expedition = r.Bool()
	s.scout = Direction(r.U8())
	s.sinking = r.Bool()
	s.moves = r.U32()
	if r.Err() == nil && !s.scout.Valid() {
		r.Fail("ship %d: invalid direction %d", s.serial, s.scout)
	}
	return s
}
