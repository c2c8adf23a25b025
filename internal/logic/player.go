package logic

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/lockstep/internal/syncsum"
)

// MaxNameLength bounds player and ship names, in runes.
const MaxNameLength = 32

var (
	defaultStartingWares = [NumWares]int32{20, 10, 5, 0}
	defaultWareTargets   = [NumWares]uint32{30, 20, 20, 10}
)

// StatSample is one statistics snapshot of a player.
type StatSample struct {
	Time      Time
	Stock     [NumWares]int32
	Buildings uint32
	Ships     uint32
}

// Player is a seat in the game and its economy.
type Player struct {
	number     PlayerNumber
	name       string
	stock      [NumWares]int32
	targets    [NumWares]uint32
	statistics []StatSample
}

func newPlayer(n PlayerNumber, name string, stock [NumWares]int32) *Player {
	return &Player{
		number:  n,
		name:    name,
		stock:   stock,
		targets: defaultWareTargets,
	}
}

func (p *Player) Number() PlayerNumber { return p.number }
func (p *Player) Name() string         { return p.name }

// Stock returns how many of w the player holds.
func (p *Player) Stock(w Ware) int32 { return p.stock[w] }

// Target returns the economy target for w. Producers idle while the stock is
// at or above it.
func (p *Player) Target(w Ware) uint32 { return p.targets[w] }

// Statistics returns a copy of the recorded samples, oldest first.
func (p *Player) Statistics() []StatSample {
	out := make([]StatSample, len(p.statistics))
	copy(out, p.statistics)
	return out
}

func (p *Player) canAfford(cost [NumWares]int32) bool {
	for w, n := range cost {
		if p.stock[w] < n {
			return false
		}
	}
	return true
}

func (g *Game) changeStock(p *Player, w Ware, delta int32) {
	if delta == 0 {
		return
	}
	g.sync.Entry(syncsum.EntryWareChange)
	g.sync.U8(uint8(p.number))
	g.sync.U8(uint8(w))
	g.sync.I32(delta)
	p.stock[w] += delta
}

func (g *Game) pay(p *Player, cost [NumWares]int32) {
	for w, n := range cost {
		g.changeStock(p, Ware(w), -n)
	}
}

// refundHalf returns half of cost, rounded down, to p.
func (g *Game) refundHalf(p *Player, cost [NumWares]int32) {
	for w, n := range cost {
		g.changeStock(p, Ware(w), n/2)
	}
}

func (g *Game) setTarget(p *Player, w Ware, q uint32) {
	g.sync.Entry(syncsum.EntryPlayerState)
	g.sync.U8(uint8(p.number))
	g.sync.U8(uint8(w))
	g.sync.U32(q)
	p.targets[w] = q
}

// normalizeName trims, NFC-normalizes and truncates a user supplied name so
// that equal-looking names compare and hash equal on every peer.
func normalizeName(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) <= MaxNameLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxNameLength {
			return s[:i]
		}
		n++
	}
	return s
}
