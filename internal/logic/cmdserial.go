package logic

import "sync/atomic"

// CmdSerials hands out player command serials.
//
// In a network game only the host owns one; clients take serials from the
// host's broadcasts. In single player and replay recording the Game's own
// counter is used. Serials start at 1 because 0 means unassigned.
//
// Safe for concurrent use.
type CmdSerials struct {
	last atomic.Uint32
}

// NewCmdSerials creates a counter whose first Next returns 1.
func NewCmdSerials() *CmdSerials {
	return &CmdSerials{}
}

// NewCmdSerialsAt creates a counter resuming after last. Used when loading a
// savegame.
func NewCmdSerialsAt(last uint32) *CmdSerials {
	c := &CmdSerials{}
	c.last.Store(last)
	return c
}

// Next returns the next serial.
func (c *CmdSerials) Next() uint32 {
	return c.last.Add(1)
}

// Current returns the last serial handed out, 0 if none.
func (c *CmdSerials) Current() uint32 {
	return c.last.Load()
}
