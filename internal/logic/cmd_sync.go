package logic

import (
	"github.com/roach88/lockstep/internal/syncsum"
)

// The commands in this file observe the game without changing it. They are
// never hashed, saved or sent, and run before any game logic due at the same
// time.

// CmdNetCheckSync reports the sync hash to the network session.
//
// With a positive interval it reschedules itself after reporting, forming
// the periodic check chain. With interval 0 it fires once, which is how a
// client answers a host's sync request. The chain ends, without reporting,
// as soon as the game is detached from the network.
type CmdNetCheckSync struct {
	commandBase
	interval Duration
	report   func(t Time, sum syncsum.Checksum)
}

func NewCmdNetCheckSync(due Time, interval Duration, report func(Time, syncsum.Checksum)) *CmdNetCheckSync {
	return &CmdNetCheckSync{commandBase: commandBase{duetime: due}, interval: interval, report: report}
}

func (*CmdNetCheckSync) Kind() Kind { return KindNetCheckSync }

func (c *CmdNetCheckSync) Execute(g *Game) error {
	if !g.network {
		return nil
	}
	c.report(c.duetime, g.SyncHash())
	if c.interval > 0 {
		g.queue.Enqueue(NewCmdNetCheckSync(c.duetime.Add(c.interval), c.interval, c.report))
	}
	return nil
}

// CmdReplaySyncWrite hands the sync hash to the attached replay recorder and
// reschedules itself. The chain ends when no recorder is attached.
type CmdReplaySyncWrite struct {
	commandBase
}

func NewCmdReplaySyncWrite(due Time) *CmdReplaySyncWrite {
	return &CmdReplaySyncWrite{commandBase: commandBase{duetime: due}}
}

func (*CmdReplaySyncWrite) Kind() Kind { return KindReplaySyncWrite }

func (c *CmdReplaySyncWrite) Execute(g *Game) error {
	if g.replay == nil {
		return nil
	}
	if err := g.replay.SendSync(c.duetime, g.SyncHash()); err != nil {
		g.log.Error("replay sync write failed, recording stopped", "time", c.duetime, "error", err)
		g.replay = nil
		return nil
	}
	g.queue.Enqueue(NewCmdReplaySyncWrite(c.duetime.Add(g.intervals.ReplaySync)))
	return nil
}

// SyncCheck is the outcome of comparing a recorded hash with the live one.
type SyncCheck struct {
	Time     Time
	Expected syncsum.Checksum
	Got      syncsum.Checksum
}

// OK reports whether the hashes matched.
func (s SyncCheck) OK() bool { return s.Expected == s.Got }

// CmdReplaySyncRead compares the live hash with one read from a replay.
// A mismatch is reported as a desync; playback continues.
type CmdReplaySyncRead struct {
	commandBase
	hash    syncsum.Checksum
	onCheck func(SyncCheck)
}

func NewCmdReplaySyncRead(due Time, hash syncsum.Checksum, onCheck func(SyncCheck)) *CmdReplaySyncRead {
	return &CmdReplaySyncRead{commandBase: commandBase{duetime: due}, hash: hash, onCheck: onCheck}
}

func (*CmdReplaySyncRead) Kind() Kind { return KindReplaySyncRead }

func (c *CmdReplaySyncRead) Execute(g *Game) error {
	check := SyncCheck{Time: c.duetime, Expected: c.hash, Got: g.SyncHash()}
	if !check.OK() {
		g.ReportDesync(Desync{Time: check.Time, Peer: "replay", Expected: check.Expected, Got: check.Got})
	}
	if c.onCheck != nil {
		c.onCheck(check)
	}
	return nil
}

// CmdReplayEnd marks the end of a replay.
type CmdReplayEnd struct {
	commandBase
	onEnd func(Time)
}

func NewCmdReplayEnd(due Time, onEnd func(Time)) *CmdReplayEnd {
	return &CmdReplayEnd{commandBase: commandBase{duetime: due}, onEnd: onEnd}
}

func (*CmdReplayEnd) Kind() Kind { return KindReplayEnd }

func (c *CmdReplayEnd) Execute(g *Game) error {
	g.log.Info("end of replay", "game", g.id, "time", c.duetime)
	if c.onEnd != nil {
		c.onEnd(c.duetime)
	}
	return nil
}
