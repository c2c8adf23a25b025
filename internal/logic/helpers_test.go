package logic

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/syncsum"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGame(t *testing.T, opts ...Option) *Game {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	g, err := NewGame(Setup{Seed: 42, Players: []string{"alice", "bob"}}, opts...)
	require.NoError(t, err)
	return g
}

// probe is a non-game-logic command that records its execution.
type probe struct {
	commandBase
	name string
	log  *[]string
	err  error
}

func newProbe(due Time, name string, log *[]string) *probe {
	return &probe{commandBase: commandBase{duetime: due}, name: name, log: log}
}

func (*probe) Kind() Kind { return KindNone }

func (p *probe) Execute(*Game) error {
	if p.log != nil {
		*p.log = append(*p.log, p.name)
	}
	return p.err
}

// fakeRecorder captures what a replay writer would receive.
type fakeRecorder struct {
	cmds    []PlayerCommand
	syncs   []Time
	sums    []syncsum.Checksum
	failCmd bool
	failSyn bool
}

func (f *fakeRecorder) RecordCommand(cmd PlayerCommand) error {
	if f.failCmd {
		return errors.New("disk full")
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

func (f *fakeRecorder) SendSync(t Time, sum syncsum.Checksum) error {
	if f.failSyn {
		return errors.New("disk full")
	}
	f.syncs = append(f.syncs, t)
	f.sums = append(f.sums, sum)
	return nil
}

// send issues a player command with an explicit serial.
func send(g *Game, cmd PlayerCommand, serial uint32) {
	cmd.SetCmdSerial(serial)
	g.Enqueue(cmd)
}
