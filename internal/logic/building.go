package logic

import (
	"fmt"

	"github.com/roach88/lockstep/internal/wire"
)

// BuildingType indexes the building description table.
type BuildingType uint8

const (
	BuildingNone BuildingType = iota
	BuildingLumberjacksHut
	BuildingLumberjacksHouse
	BuildingQuarry
	BuildingFishersHouse
	BuildingSawmill
	BuildingShipyard

	numBuildingTypes
)

// BuildingDescr is the static description of a building type.
type BuildingDescr struct {
	Name string
	Cost [NumWares]int32

	// Output is produced once per successful cycle unless ShipsMax > 0.
	Output Ware

	// InputAmount units of Input are consumed per successful cycle.
	Input       Ware
	InputAmount int32

	// ShipsMax > 0 makes the building launch ships instead of wares.
	ShipsMax uint8

	Interval       Duration
	SuccessPercent uint32
	EnhancesTo     BuildingType
	DismantleTime  Duration
}

var buildingDescrs = [numBuildingTypes]BuildingDescr{
	BuildingLumberjacksHut: {
		Name:           "lumberjacks_hut",
		Cost:           [NumWares]int32{WareLog: 2},
		Output:         WareLog,
		Interval:       4000,
		SuccessPercent: 80,
		EnhancesTo:     BuildingLumberjacksHouse,
		DismantleTime:  2000,
	},
	BuildingLumberjacksHouse: {
		Name:           "lumberjacks_house",
		Cost:           [NumWares]int32{WareLog: 2, WareGranite: 1},
		Output:         WareLog,
		Interval:       2500,
		SuccessPercent: 90,
		DismantleTime:  3000,
	},
	BuildingQuarry: {
		Name:           "quarry",
		Cost:           [NumWares]int32{WareLog: 2},
		Output:         WareGranite,
		Interval:       5000,
		SuccessPercent: 75,
		DismantleTime:  2000,
	},
	BuildingFishersHouse: {
		Name:           "fishers_house",
		Cost:           [NumWares]int32{WareLog: 1, WareGranite: 1},
		Output:         WareFish,
		Interval:       3000,
		SuccessPercent: 60,
		DismantleTime:  2000,
	},
	BuildingSawmill: {
		Name:           "sawmill",
		Cost:           [NumWares]int32{WareLog: 2, WareGranite: 2},
		Output:         WarePlanks,
		Input:          WareLog,
		InputAmount:    2,
		Interval:       3500,
		SuccessPercent: 100,
		DismantleTime:  3000,
	},
	BuildingShipyard: {
		Name:           "shipyard",
		Cost:           [NumWares]int32{WareLog: 4, WareGranite: 2},
		Input:          WarePlanks,
		InputAmount:    2,
		ShipsMax:       3,
		Interval:       10000,
		SuccessPercent: 100,
		DismantleTime:  4000,
	},
}

// Descr returns the description of t.
func (t BuildingType) Descr() (*BuildingDescr, bool) {
	if t == BuildingNone || t >= numBuildingTypes {
		return nil, false
	}
	return &buildingDescrs[t], true
}

func (t BuildingType) String() string {
	if d, ok := t.Descr(); ok {
		return d.Name
	}
	return fmt.Sprintf("building type(%d)", uint8(t))
}

// ParseBuildingType resolves a building type by name.
func ParseBuildingType(name string) (BuildingType, error) {
	for t := BuildingNone + 1; t < numBuildingTypes; t++ {
		if buildingDescrs[t].Name == name {
			return t, nil
		}
	}
	return BuildingNone, fmt.Errorf("unknown building %q", name)
}

const (
	actProduce    uint32 = 0
	actDismantled uint32 = 1
)

const defaultInputMaxFill = 8

// Building is a production site on the map.
type Building struct {
	serial       Serial
	owner        PlayerNumber
	typ          BuildingType
	pos          Coords
	stopped      bool
	dismantling  bool
	keepWares    bool
	inputMaxFill [NumWares]uint32
	produced     uint32
	shipsBuilt   uint8
}

func (b *Building) Serial() Serial             { return b.serial }
func (b *Building) Type() ObjectType           { return ObjectBuilding }
func (b *Building) Owner() PlayerNumber        { return b.owner }
func (b *Building) BuildingType() BuildingType { return b.typ }
func (b *Building) Pos() Coords                { return b.pos }
func (b *Building) Stopped() bool              { return b.stopped }
func (b *Building) Dismantling() bool          { return b.dismantling }
func (b *Building) InputMaxFill(w Ware) uint32 { return b.inputMaxFill[w] }
func (b *Building) Produced() uint32           { return b.produced }
func (b *Building) ShipsBuilt() uint8          { return b.shipsBuilt }
func (b *Building) descr() *BuildingDescr      { return &buildingDescrs[b.typ] }

func (g *Game) createBuilding(owner PlayerNumber, t BuildingType, pos Coords) *Building {
	b := &Building{
		serial: g.nextSerial(),
		owner:  owner,
		typ:    t,
		pos:    pos,
	}
	for w := range b.inputMaxFill {
		b.inputMaxFill[w] = defaultInputMaxFill
	}
	g.addObject(b)
	g.scheduleAct(b.serial, b.descr().Interval, actProduce)
	return b
}

func (b *Building) act(g *Game, data uint32) error {
	switch data {
	case actProduce:
		if b.dismantling {
			return nil
		}
		if !b.stopped {
			b.produce(g)
		}
		g.scheduleAct(b.serial, b.descr().Interval, actProduce)
		return nil

	case actDismantled:
		if b.keepWares {
			if p, ok := g.Player(b.owner); ok {
				g.refundHalf(p, b.descr().Cost)
			}
		}
		g.destroyObject(b.serial)
		return nil
	}
	return fmt.Errorf("building %d: unknown act %d", b.serial, data)
}

// produce runs one work cycle. The RNG is only consulted when the cycle can
// succeed, so idle buildings do not advance it.
func (b *Building) produce(g *Game) {
	p, ok := g.Player(b.owner)
	if !ok {
		return
	}
	d := b.descr()
	if d.InputAmount > 0 {
		if uint32(d.InputAmount) > b.inputMaxFill[d.Input] || p.stock[d.Input] < d.InputAmount {
			return
		}
	}
	if d.ShipsMax > 0 {
		if b.shipsBuilt >= d.ShipsMax {
			return
		}
	} else if p.stock[d.Output] >= int32(p.targets[d.Output]) {
		return
	}
	if g.LogicRand()%100 >= d.SuccessPercent {
		return
	}

	if d.InputAmount > 0 {
		g.changeStock(p, d.Input, -d.InputAmount)
	}
	if d.ShipsMax > 0 {
		b.shipsBuilt++
		g.createShip(b.owner, b.pos, fmt.Sprintf("%s %d", p.name, b.shipsBuilt))
	} else {
		g.changeStock(p, d.Output, 1)
	}
	b.produced++
}

func (b *Building) save(w *wire.Writer) {
	w.U32(uint32(b.serial))
	w.U8(uint8(b.owner))
	w.U8(uint8(b.typ))
	w.I16(b.pos.X)
	w.I16(b.pos.Y)
	w.Bool(b.stopped)
	w.Bool(b.dismantling)
	w.Bool(b.keepWares)
	for _, v := range b.inputMaxFill {
		w.U32(v)
	}
	w.U32(b.produced)
	w.U8(b.shipsBuilt)
}

func loadBuilding(r *wire.Reader) *Building {
	b := &Building{
		serial: Serial(r.U32()),
		owner:  PlayerNumber(r.U8()),
		typ:    BuildingType(r.U8()),
	}
	b.pos.X = r.I16()
	b.pos.Y = r.I16()
	b.stopped = r.Bool()
	b.dismantling = r.Bool()
	b.keepWares = r.Bool()
	for w := range b.inputMaxFill {
		b.inputMaxFill[w] = r.U32()
	}
	b.produced = r.U32()
	b.shipsBuilt = r.U8()
	if r.Err() == nil {
		if _, ok := b.typ.Descr(); !ok {
			r.Fail("building %d: invalid type %d", b.serial, b.typ)
		}
	}
	return b
}
