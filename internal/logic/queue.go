package logic

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/lockstep/internal/pqueue"
	"github.com/roach88/lockstep/internal/syncsum"
)

// Queue holds pending commands ordered by (duetime, category, serial, seq).
//
// A Queue is owned by one Game and used only from the game goroutine.
type Queue struct {
	heap       *pqueue.Queue[*commandBase]
	nextSerial uint32
	nextSeq    uint64
}

func newQueue() *Queue {
	return &Queue{
		heap:       pqueue.New(lessCommand),
		nextSerial: 1,
	}
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	return q.heap.Len()
}

// NextSerial returns the serial the next enqueued game-logic command gets.
func (q *Queue) NextSerial() uint32 {
	return q.nextSerial
}

// Enqueue schedules cmd at its duetime. It panics if cmd is already queued.
//
// Enqueueing a command whose duetime lies in the past is allowed: it runs on
// the next RunUntil.
func (q *Queue) Enqueue(cmd Command) {
	b := cmd.base()
	if b.cookie.InQueue() {
		invariant("%s enqueued twice (duetime %d)", cmd.Kind(), b.duetime)
	}
	b.owner = cmd
	b.category = categoryOf(cmd)
	switch b.category {
	case categoryPlayerCommand:
		b.serial = cmd.(PlayerCommand).CmdSerial()
	case categoryGameLogic:
		b.serial = q.nextSerial
		q.nextSerial++
	default:
		b.serial = 0
	}
	b.seq = q.nextSeq
	q.nextSeq++
	q.heap.Push(b)
}

// Peek returns the next command to run without removing it.
func (q *Queue) Peek() (Command, bool) {
	if q.heap.Empty() {
		return nil, false
	}
	return q.heap.Top().owner, true
}

// Pending returns the queued commands in execution order. The queue is not
// modified.
func (q *Queue) Pending() []Command {
	bases := q.snapshot()
	out := make([]Command, len(bases))
	for i, b := range bases {
		out[i] = b.owner
	}
	return out
}

// Flush discards all pending commands.
func (q *Queue) Flush() {
	q.heap.Drain(func(b *commandBase) { b.owner = nil })
}

// RunUntil executes every command with duetime <= now, in order, then sets
// the game time to now. Commands enqueued while running are executed in the
// same call if they fall due.
//
// An error from Execute aborts the run and is returned wrapped with the
// command kind and duetime. The game must not be advanced after that.
func (q *Queue) RunUntil(g *Game, now Time) error {
	for !q.heap.Empty() {
		b := q.heap.Top()
		if b.duetime > now {
			break
		}
		q.heap.Pop()
		cmd := b.owner
		b.owner = nil

		if b.duetime > g.time {
			g.time = b.duetime
		}
		if b.category != categoryNonGameLogic {
			g.sync.Entry(syncsum.EntryRunQueue)
			g.sync.I32(int32(b.duetime))
			g.sync.U8(uint8(cmd.Kind()))
		}
		if b.category == categoryPlayerCommand {
			g.recordCommand(cmd.(PlayerCommand))
		}

		if err := cmd.Execute(g); err != nil {
			return fmt.Errorf("execute %s at %d: %w", cmd.Kind(), b.duetime, err)
		}
	}
	if now > g.time {
		g.time = now
	}
	return nil
}

func (q *Queue) snapshot() []*commandBase {
	var bases []*commandBase
	// Drain and refill keeps cookie positions valid without touching the heap
	// internals; seq values are preserved so order is unchanged.
	q.heap.Drain(func(b *commandBase) { bases = append(bases, b) })
	for _, b := range bases {
		q.heap.Push(b)
	}
	return bases
}

// gameLogic returns the queued game-logic commands in execution order, each
// with the serial it was queued under.
func (q *Queue) gameLogic() []*commandBase {
	return slices.DeleteFunc(q.snapshot(), func(b *commandBase) bool {
		return b.category == categoryNonGameLogic
	})
}

// restore re-inserts a saved command with its original key.
func (q *Queue) restore(cmd GameLogicCommand, cat category, serial uint32) {
	b := cmd.base()
	b.owner = cmd
	b.category = cat
	b.serial = serial
	b.seq = q.nextSeq
	q.nextSeq++
	q.heap.Push(b)
}

// LogValue implements slog.LogValuer.
func (q *Queue) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pending", q.heap.Len()),
		slog.Uint64("next_serial", uint64(q.nextSerial)),
	)
}
