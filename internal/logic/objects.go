package logic

import (
	"fmt"
	"slices"

	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

// ObjectType tags the concrete type of a map object.
type ObjectType uint8

const (
	ObjectBuilding ObjectType = 1
	ObjectShip     ObjectType = 2
)

func (t ObjectType) String() string {
	switch t {
	case ObjectBuilding:
		return "building"
	case ObjectShip:
		return "ship"
	}
	return fmt.Sprintf("object type(%d)", uint8(t))
}

// Object is a map object addressable by Serial.
type Object interface {
	Serial() Serial
	Type() ObjectType
	Owner() PlayerNumber

	act(g *Game, data uint32) error
	save(w *wire.Writer)
}

// Objects owns every live map object. Serials are never reused.
type Objects struct {
	last Serial
	byID map[Serial]Object
}

func newObjects() *Objects {
	return &Objects{byID: make(map[Serial]Object)}
}

// Len returns the number of live objects.
func (o *Objects) Len() int { return len(o.byID) }

// Get resolves s.
func (o *Objects) Get(s Serial) (Object, bool) {
	obj, ok := o.byID[s]
	return obj, ok
}

// Building resolves s and requires it to be a building.
func (o *Objects) Building(s Serial) (*Building, bool) {
	b, ok := o.byID[s].(*Building)
	return b, ok
}

// Ship resolves s and requires it to be a ship.
func (o *Objects) Ship(s Serial) (*Ship, bool) {
	sh, ok := o.byID[s].(*Ship)
	return sh, ok
}

// Serials returns all live serials in ascending order.
func (o *Objects) Serials() []Serial {
	out := make([]Serial, 0, len(o.byID))
	for s := range o.byID {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// BuildingAt returns the building occupying pos.
func (o *Objects) BuildingAt(pos Coords) (*Building, bool) {
	for _, s := range o.Serials() {
		if b, ok := o.byID[s].(*Building); ok && b.pos == pos {
			return b, true
		}
	}
	return nil, false
}

// Count returns how many live objects of type t player p owns.
func (o *Objects) Count(p PlayerNumber, t ObjectType) uint32 {
	var n uint32
	for _, obj := range o.byID {
		if obj.Owner() == p && obj.Type() == t {
			n++
		}
	}
	return n
}

func (g *Game) nextSerial() Serial {
	g.objects.last++
	return g.objects.last
}

func (g *Game) addObject(obj Object) {
	g.sync.Entry(syncsum.EntryCreateObject)
	g.sync.U32(uint32(obj.Serial()))
	g.sync.U8(uint8(obj.Type()))
	g.objects.byID[obj.Serial()] = obj
}

// destroyObject removes s. Pending commands addressing it become no-ops.
func (g *Game) destroyObject(s Serial) bool {
	if _, ok := g.objects.byID[s]; !ok {
		return false
	}
	g.sync.Entry(syncsum.EntryDestroyObject)
	g.sync.U32(uint32(s))
	delete(g.objects.byID, s)
	return true
}

func (g *Game) scheduleAct(s Serial, after Duration, data uint32) {
	g.queue.Enqueue(NewCmdAct(g.time.Add(after), s, data))
}

func (g *Game) scheduleDestroy(s Serial) {
	g.queue.Enqueue(NewCmdDestroyMapObject(g.time+1, s))
}

// ownedBuilding resolves a building serial on behalf of a player command.
func (g *Game) ownedBuilding(p PlayerNumber, s Serial) (*Building, bool) {
	b, ok := g.objects.Building(s)
	if !ok || b.owner != p {
		return nil, false
	}
	return b, true
}

// ownedShip resolves a ship serial on behalf of a player command.
func (g *Game) ownedShip(p PlayerNumber, s Serial) (*Ship, bool) {
	sh, ok := g.objects.Ship(s)
	if !ok || sh.owner != p || sh.sinking {
		return nil, false
	}
	return sh, true
}

func (g *Game) hashObjectState(s Serial, vals ...uint32) {
	g.sync.Entry(syncsum.EntryObjectState)
	g.sync.U32(uint32(s))
	for _, v := range vals {
		g.sync.U32(v)
	}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
