package logic

import (
	"strconv"

	"github.com/roach88/lockstep/internal/wire"
)

// CmdBuild places a new building if the field is free and the player can pay.
type CmdBuild struct {
	playerBase
	pos      Coords
	building BuildingType
}

func NewCmdBuild(due Time, sender PlayerNumber, pos Coords, t BuildingType) *CmdBuild {
	return &CmdBuild{playerBase: newPlayerBase(due, sender), pos: pos, building: t}
}

func (*CmdBuild) Kind() Kind { return KindBuild }

func (c *CmdBuild) Execute(g *Game) error {
	p, ok := g.Player(c.sender)
	if !ok {
		return nil
	}
	d, ok := c.building.Descr()
	if !ok {
		return nil
	}
	if _, taken := g.objects.BuildingAt(c.pos); taken {
		g.log.Debug("build rejected: field occupied", "player", c.sender, "pos", c.pos.String())
		return nil
	}
	if !p.canAfford(d.Cost) {
		g.log.Debug("build rejected: insufficient wares", "player", c.sender, "building", d.Name)
		return nil
	}
	g.pay(p, d.Cost)
	g.createBuilding(c.sender, c.building, c.pos)
	return nil
}

func (c *CmdBuild) writePayload(w *wire.Writer) {
	w.I16(c.pos.X)
	w.I16(c.pos.Y)
	w.U8(uint8(c.building))
}

func decodeBuild(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdBuild{}
	c.pos.X = r.I16()
	c.pos.Y = r.I16()
	c.building = BuildingType(r.U8())
	if r.Err() == nil {
		if _, ok := c.building.Descr(); !ok {
			r.Fail("invalid building type %d", c.building)
		}
	}
	return c
}

func (c *CmdBuild) args() map[string]string {
	return map[string]string{
		"x":        strconv.Itoa(int(c.pos.X)),
		"y":        strconv.Itoa(int(c.pos.Y)),
		"building": c.building.String(),
	}
}

// CmdStopBuilding toggles production of a building.
type CmdStopBuilding struct {
	playerBase
	serial Serial
}

func NewCmdStopBuilding(due Time, sender PlayerNumber, s Serial) *CmdStopBuilding {
	return &CmdStopBuilding{playerBase: newPlayerBase(due, sender), serial: s}
}

func (*CmdStopBuilding) Kind() Kind { return KindStopBuilding }

func (c *CmdStopBuilding) Execute(g *Game) error {
	b, ok := g.ownedBuilding(c.sender, c.serial)
	if !ok || b.dismantling {
		return nil
	}
	b.stopped = !b.stopped
	g.hashObjectState(b.serial, boolU32(b.stopped))
	return nil
}

func (c *CmdStopBuilding) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeStopBuilding(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdStopBuilding{serial: Serial(r.U32())}
}

func (c *CmdStopBuilding) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdEnhanceBuilding upgrades a building to its enhancement. Version 1
// records carry no keep_wares flag; it reads as false.
type CmdEnhanceBuilding struct {
	playerBase
	serial    Serial
	keepWares bool
}

func NewCmdEnhanceBuilding(due Time, sender PlayerNumber, s Serial, keepWares bool) *CmdEnhanceBuilding {
	return &CmdEnhanceBuilding{playerBase: newPlayerBase(due, sender), serial: s, keepWares: keepWares}
}

func (*CmdEnhanceBuilding) Kind() Kind { return KindEnhanceBuilding }

func (c *CmdEnhanceBuilding) Execute(g *Game) error {
	b, ok := g.ownedBuilding(c.sender, c.serial)
	if !ok || b.dismantling {
		return nil
	}
	to, ok := b.descr().EnhancesTo.Descr()
	if !ok {
		return nil
	}
	p, ok := g.Player(c.sender)
	if !ok || !p.canAfford(to.Cost) {
		return nil
	}
	g.pay(p, to.Cost)
	b.typ = b.descr().EnhancesTo
	if !c.keepWares {
		b.produced = 0
	}
	g.hashObjectState(b.serial, uint32(b.typ), b.produced)
	return nil
}

func (c *CmdEnhanceBuilding) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.Bool(c.keepWares)
}

func decodeEnhanceBuilding(r *wire.Reader, version uint16) GameLogicCommand {
	c := &CmdEnhanceBuilding{serial: Serial(r.U32())}
	if version >= 2 {
		c.keepWares = r.Bool()
	}
	return c
}

func (c *CmdEnhanceBuilding) args() map[string]string {
	return map[string]string{
		"serial":     formatSerial(c.serial),
		"keep_wares": strconv.FormatBool(c.keepWares),
	}
}

// CmdBulldoze destroys a building immediately, without refund.
type CmdBulldoze struct {
	playerBase
	serial Serial
}

func NewCmdBulldoze(due Time, sender PlayerNumber, s Serial) *CmdBulldoze {
	return &CmdBulldoze{playerBase: newPlayerBase(due, sender), serial: s}
}

func (*CmdBulldoze) Kind() Kind { return KindBulldoze }

func (c *CmdBulldoze) Execute(g *Game) error {
	if _, ok := g.ownedBuilding(c.sender, c.serial); !ok {
		return nil
	}
	g.destroyObject(c.serial)
	return nil
}

func (c *CmdBulldoze) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeBulldoze(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdBulldoze{serial: Serial(r.U32())}
}

func (c *CmdBulldoze) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdDismantleBuilding starts dismantling a building. When done, half the
// construction cost is refunded if keep_wares is set. Version 1 records carry
// no keep_wares flag; it reads as false.
type CmdDismantleBuilding struct {
	playerBase
	serial    Serial
	keepWares bool
}

func NewCmdDismantleBuilding(due Time, sender PlayerNumber, s Serial, keepWares bool) *CmdDismantleBuilding {
	return &CmdDismantleBuilding{playerBase: newPlayerBase(due, sender), serial: s, keepWares: keepWares}
}

func (*CmdDismantleBuilding) Kind() Kind { return KindDismantleBuilding }

func (c *CmdDismantleBuilding) Execute(g *Game) error {
	b, ok := g.ownedBuilding(c.sender, c.serial)
	if !ok || b.dismantling {
		return nil
	}
	b.dismantling = true
	b.keepWares = c.keepWares
	g.hashObjectState(b.serial, boolU32(b.keepWares))
	g.scheduleAct(b.serial, b.descr().DismantleTime, actDismantled)
	return nil
}

func (c *CmdDismantleBuilding) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.Bool(c.keepWares)
}

func decodeDismantleBuilding(r *wire.Reader, version uint16) GameLogicCommand {
	c := &CmdDismantleBuilding{serial: Serial(r.U32())}
	if version >= 2 {
		c.keepWares = r.Bool()
	}
	return c
}

func (c *CmdDismantleBuilding) args() map[string]string {
	return map[string]string{
		"serial":     formatSerial(c.serial),
		"keep_wares": strconv.FormatBool(c.keepWares),
	}
}

// CmdSetInputMaxFill limits how much of an input ware a building may use.
type CmdSetInputMaxFill struct {
	playerBase
	serial Serial
	ware   Ware
	max    uint32
}

func NewCmdSetInputMaxFill(due Time, sender PlayerNumber, s Serial, w Ware, limit uint32) *CmdSetInputMaxFill {
	return &CmdSetInputMaxFill{playerBase: newPlayerBase(due, sender), serial: s, ware: w, max: limit}
}

func (*CmdSetInputMaxFill) Kind() Kind { return KindSetInputMaxFill }

func (c *CmdSetInputMaxFill) Execute(g *Game) error {
	b, ok := g.ownedBuilding(c.sender, c.serial)
	if !ok {
		return nil
	}
	b.inputMaxFill[c.ware] = c.max
	g.hashObjectState(b.serial, uint32(c.ware), c.max)
	return nil
}

func (c *CmdSetInputMaxFill) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.U8(uint8(c.ware))
	w.U32(c.max)
}

func decodeSetInputMaxFill(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdSetInputMaxFill{serial: Serial(r.U32())}
	c.ware = readWare(r)
	c.max = r.U32()
	return c
}

func (c *CmdSetInputMaxFill) args() map[string]string {
	return map[string]string{
		"serial": formatSerial(c.serial),
		"ware":   c.ware.String(),
		"max":    strconv.FormatUint(uint64(c.max), 10),
	}
}

func readWare(r *wire.Reader) Ware {
	w := Ware(r.U8())
	if r.Err() == nil && w >= NumWares {
		r.Fail("invalid ware %d", w)
	}
	return w
}

func formatSerial(s Serial) string {
	return strconv.FormatUint(uint64(s), 10)
}
