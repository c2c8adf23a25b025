package testutil

import (
	"sync"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
)

// Checkpoint is a sync hash observed at a game time.
type Checkpoint struct {
	Time logic.Time
	Hash syncsum.Checksum
}

// Checkpoints collects sync hashes reported by sync-check commands.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex,
// so Record can be handed to a game running on another goroutine.
type Checkpoints struct {
	mu   sync.Mutex
	list []Checkpoint
}

// Record appends a checkpoint. Its signature matches the report callback of
// logic.NewCmdNetCheckSync.
func (c *Checkpoints) Record(t logic.Time, sum syncsum.Checksum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, Checkpoint{Time: t, Hash: sum})
}

// Capture runs g until t and records its hash.
func (c *Checkpoints) Capture(g *logic.Game, t logic.Time) error {
	if err := g.RunUntil(t); err != nil {
		return err
	}
	c.Record(t, g.SyncHash())
	return nil
}

// All returns a copy of the recorded checkpoints.
func (c *Checkpoints) All() []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Checkpoint, len(c.list))
	copy(out, c.list)
	return out
}

// Len returns the number of recorded checkpoints.
func (c *Checkpoints) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.list)
}

// Reset forgets all checkpoints.
func (c *Checkpoints) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
}
