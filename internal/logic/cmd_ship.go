package logic

import (
	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

// CmdShipScoutDirection sets the direction an expedition ship sails in.
type CmdShipScoutDirection struct {
	playerBase
	serial Serial
	dir    Direction
}

func NewCmdShipScoutDirection(due Time, sender PlayerNumber, s Serial, dir Direction) *CmdShipScoutDirection {
	return &CmdShipScoutDirection{playerBase: newPlayerBase(due, sender), serial: s, dir: dir}
}

func (*CmdShipScoutDirection) Kind() Kind { return KindShipScoutDirection }

func (c *CmdShipScoutDirection) Execute(g *Game) error {
	s, ok := g.ownedShip(c.sender, c.serial)
	if !ok || !s.expedition {
		return nil
	}
	s.scout = c.dir
	g.hashObjectState(s.serial, uint32(c.dir))
	return nil
}

func (c *CmdShipScoutDirection) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.U8(uint8(c.dir))
}

func decodeShipScoutDirection(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdShipScoutDirection{serial: Serial(r.U32())}
	c.dir = Direction(r.U8())
	if r.Err() == nil && !c.dir.Valid() {
		r.Fail("invalid direction %d", c.dir)
	}
	return c
}

func (c *CmdShipScoutDirection) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial), "direction": c.dir.String()}
}

// CmdShipSink scuttles a ship. The ship is removed shortly after.
type CmdShipSink struct {
	playerBase
	serial Serial
}

func NewCmdShipSink(due Time, sender PlayerNumber, s Serial) *CmdShipSink {
	return &CmdShipSink{playerBase: newPlayerBase(due, sender), serial: s}
}

func (*CmdShipSink) Kind() Kind { return KindShipSink }

func (c *CmdShipSink) Execute(g *Game) error {
	s, ok := g.ownedShip(c.sender, c.serial)
	if !ok {
		return nil
	}
	s.sinking = true
	g.hashObjectState(s.serial, 1)
	g.scheduleDestroy(s.serial)
	return nil
}

func (c *CmdShipSink) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeShipSink(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdShipSink{serial: Serial(r.U32())}
}

func (c *CmdShipSink) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdShipCancelExpedition ends an expedition. The ship stops sailing.
type CmdShipCancelExpedition struct {
	playerBase
	serial Serial
}

func NewCmdShipCancelExpedition(due Time, sender PlayerNumber, s Serial) *CmdShipCancelExpedition {
	return &CmdShipCancelExpedition{playerBase: newPlayerBase(due, sender), serial: s}
}

func (*CmdShipCancelExpedition) Kind() Kind { return KindShipCancelExpedition }

func (c *CmdShipCancelExpedition) Execute(g *Game) error {
	s, ok := g.ownedShip(c.sender, c.serial)
	if !ok || !s.expedition {
		return nil
	}
	s.expedition = false
	s.scout = DirNone
	g.hashObjectState(s.serial, 0)
	return nil
}

func (c *CmdShipCancelExpedition) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeShipCancelExpedition(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdShipCancelExpedition{serial: Serial(r.U32())}
}

func (c *CmdShipCancelExpedition) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdStartExpedition sends a ship on an expedition. It costs provisions.
type CmdStartExpedition struct {
	playerBase
	serial Serial
}

func NewCmdStartExpedition(due Time, sender PlayerNumber, s Serial) *CmdStartExpedition {
	return &CmdStartExpedition{playerBase: newPlayerBase(due, sender), serial: s}
}

func (*CmdStartExpedition) Kind() Kind { return KindStartExpedition }

func (c *CmdStartExpedition) Execute(g *Game) error {
	s, ok := g.ownedShip(c.sender, c.serial)
	if !ok || s.expedition {
		return nil
	}
	p, ok := g.Player(c.sender)
	if !ok || p.stock[WareFish] < expeditionProvisions {
		return nil
	}
	g.changeStock(p, WareFish, -expeditionProvisions)
	s.expedition = true
	g.hashObjectState(s.serial, 1)
	return nil
}

func (c *CmdStartExpedition) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeStartExpedition(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdStartExpedition{serial: Serial(r.U32())}
}

func (c *CmdStartExpedition) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdShipName renames a ship.
type CmdShipName struct {
	playerBase
	serial Serial
	name   string
}

func NewCmdShipName(due Time, sender PlayerNumber, s Serial, name string) *CmdShipName {
	return &CmdShipName{playerBase: newPlayerBase(due, sender), serial: s, name: normalizeName(name)}
}

func (*CmdShipName) Kind() Kind { return KindShipName }

func (c *CmdShipName) Execute(g *Game) error {
	s, ok := g.ownedShip(c.sender, c.serial)
	if !ok {
		return nil
	}
	name := normalizeName(c.name)
	if name == "" {
		return nil
	}
	s.name = name
	g.sync.Entry(syncsum.EntryObjectState)
	g.sync.U32(uint32(s.serial))
	g.sync.String(name)
	return nil
}

func (c *CmdShipName) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.String(c.name)
}

func decodeShipName(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdShipName{serial: Serial(r.U32())}
	c.name = r.String()
	return c
}

func (c *CmdShipName) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial), "name": c.name}
}
