package logic

import "fmt"

// Time is simulation time in milliseconds since game start.
type Time int32

// Duration is a span of simulation time in milliseconds.
type Duration int32

// Add returns t advanced by d.
func (t Time) Add(d Duration) Time {
	return t + Time(d)
}

// PlayerNumber identifies a player. Numbers are 1-based; 0 is invalid.
type PlayerNumber uint8

// Serial identifies a map object. 0 is the null serial.
type Serial uint32

// Coords is a map position.
type Coords struct {
	X int16
	Y int16
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Ware indexes the wares tracked by player economies.
type Ware uint8

const (
	WareLog Ware = iota
	WareGranite
	WareFish
	WarePlanks

	NumWares
)

var wareNames = [NumWares]string{"log", "granite", "fish", "planks"}

func (w Ware) String() string {
	if w < NumWares {
		return wareNames[w]
	}
	return fmt.Sprintf("ware(%d)", uint8(w))
}

// ParseWare resolves a ware by name.
func ParseWare(name string) (Ware, error) {
	for i, n := range wareNames {
		if n == name {
			return Ware(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ware %q", name)
}

// Direction is one of the six hex directions a ship can scout in.
type Direction uint8

const (
	DirNone Direction = iota
	DirNorthEast
	DirEast
	DirSouthEast
	DirSouthWest
	DirWest
	DirNorthWest
)

var directionDeltas = [...]Coords{
	DirNone:      {0, 0},
	DirNorthEast: {1, -1},
	DirEast:      {1, 0},
	DirSouthEast: {0, 1},
	DirSouthWest: {-1, 1},
	DirWest:      {-1, 0},
	DirNorthWest: {0, -1},
}

var directionNames = [...]string{"none", "ne", "e", "se", "sw", "w", "nw"}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return int(d) < len(directionDeltas)
}

func (d Direction) String() string {
	if d.Valid() {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// ParseDirection resolves a direction by its short name.
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return DirNone, fmt.Errorf("unknown direction %q", name)
}

// Step returns c moved one field in direction d.
func (c Coords) Step(d Direction) Coords {
	delta := directionDeltas[d]
	return Coords{X: c.X + delta.X, Y: c.Y + delta.Y}
}
