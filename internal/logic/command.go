package logic

import (
	"github.com/roach88/lockstep/internal/pqueue"
	"github.com/roach88/lockstep/internal/wire"
)

// Command is a unit of work executed by the queue when its duetime arrives.
//
// The set of implementations is closed: every Command embeds commandBase,
// which carries the queue bookkeeping.
type Command interface {
	Kind() Kind
	DueTime() Time

	// SetDueTime sets when the command runs. It panics if the command is
	// currently queued.
	SetDueTime(t Time)

	// Execute applies the command to g. A returned error is fatal for the
	// game: it means the simulation state can no longer be trusted.
	Execute(g *Game) error

	base() *commandBase
}

// GameLogicCommand is a Command that changes simulation state. These are
// hashed into the sync stream when run and written into savegames.
type GameLogicCommand interface {
	Command
	writePayload(w *wire.Writer)
	args() map[string]string
}

// category is the second component of the queue order.
type category uint8

const (
	categoryNonGameLogic category = iota
	categoryPlayerCommand
	categoryGameLogic
)

func (c category) String() string {
	switch c {
	case categoryNonGameLogic:
		return "non-game-logic"
	case categoryPlayerCommand:
		return "player command"
	case categoryGameLogic:
		return "game logic"
	}
	return "invalid"
}

func categoryOf(cmd Command) category {
	switch cmd.(type) {
	case PlayerCommand:
		return categoryPlayerCommand
	case GameLogicCommand:
		return categoryGameLogic
	}
	return categoryNonGameLogic
}

// commandBase holds the duetime and queue position of a command.
type commandBase struct {
	duetime Time

	// Set while queued.
	owner    Command
	cookie   pqueue.Cookie
	category category
	serial   uint32
	seq      uint64
}

func (b *commandBase) DueTime() Time { return b.duetime }

func (b *commandBase) SetDueTime(t Time) {
	if b.cookie.InQueue() {
		invariant("duetime of queued %s changed from %d to %d", b.owner.Kind(), b.duetime, t)
	}
	b.duetime = t
}

func (b *commandBase) Queued() bool { return b.cookie.InQueue() }

func (b *commandBase) Cookie() *pqueue.Cookie { return &b.cookie }

func (b *commandBase) base() *commandBase { return b }

func lessCommand(a, b *commandBase) bool {
	if a.duetime != b.duetime {
		return a.duetime < b.duetime
	}
	if a.category != b.category {
		return a.category < b.category
	}
	if a.serial != b.serial {
		return a.serial < b.serial
	}
	return a.seq < b.seq
}
