package replay

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/testutil"
	"github.com/roach88/lockstep/internal/wire"
)

func quiet() logic.Option {
	return logic.WithLogger(testutil.Logger())
}

func newStartedGame(t *testing.T) *logic.Game {
	t.Helper()
	g, err := logic.NewGame(logic.Setup{Seed: 7, Players: []string{"alice", "bob"}}, quiet())
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g
}

// record plays a small two-player session into a replay and returns the
// bytes and the recording game.
func record(t *testing.T, until logic.Time, during func(*logic.Game, *Writer)) ([]byte, *logic.Game) {
	t.Helper()
	g := newStartedGame(t)
	var buf bytes.Buffer
	rw, err := NewWriter(&buf, g)
	require.NoError(t, err)

	g.SendPlayerCommand(logic.NewCmdBuild(0, 1, logic.Coords{X: 0, Y: 0}, logic.BuildingLumberjacksHut))
	g.SendPlayerCommand(logic.NewCmdBuild(0, 2, logic.Coords{X: 4, Y: 0}, logic.BuildingQuarry))
	require.NoError(t, g.RunUntil(until/2))
	if during != nil {
		during(g, rw)
	}
	g.SendPlayerCommand(logic.NewCmdSetWareTargetQuantity(0, 1, logic.WareLog, 40))
	require.NoError(t, g.RunUntil(until))
	require.NoError(t, rw.Close())
	return buf.Bytes(), g
}

func TestReplay_RoundTrip(t *testing.T) {
	data, recorded := record(t, 5000, nil)

	rr, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer rr.Close()
	assert.Equal(t, recorded.ID(), rr.Header().GameID)
	assert.Equal(t, logic.Time(0), rr.Header().StartTime)

	res, g, err := Play(context.Background(), rr, quiet())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.True(t, res.Ended)
	assert.Equal(t, logic.Time(5000), res.EndTime)
	assert.Equal(t, 3, res.Commands)
	assert.Len(t, res.Checks, 25, "one check every 200ms up to and including 5000")
	for _, c := range res.Checks {
		assert.True(t, c.OK(), "check at %d", c.Time)
	}
	assert.Equal(t, recorded.SyncHash(), res.FinalHash)
	assert.Equal(t, recorded.Objects().Len(), g.Objects().Len())
	assert.Equal(t, 0, g.Desyncs())
}

func TestReplay_Records(t *testing.T) {
	g := newStartedGame(t)
	var buf bytes.Buffer
	rw, err := NewWriter(&buf, g)
	require.NoError(t, err)
	g.SendPlayerCommand(logic.NewCmdBuild(0, 1, logic.Coords{X: 1, Y: 2}, logic.BuildingQuarry))
	require.NoError(t, g.RunUntil(450))
	require.NoError(t, rw.Close())
	assert.Equal(t, 1, rw.Commands())
	assert.Equal(t, 2, rw.Syncs())

	rr, err := NewReader(&buf)
	require.NoError(t, err)
	defer rr.Close()

	var types []RecordType
	var times []logic.Time
	var first Record
	for rec, err := range rr.Records() {
		require.NoError(t, err)
		if len(types) == 0 {
			first = rec
		}
		types = append(types, rec.Type)
		times = append(times, rec.Time)
	}
	assert.Equal(t, []RecordType{RecordCommand, RecordSync, RecordSync, RecordEnd}, types)
	assert.Equal(t, []logic.Time{1, 200, 400, 450}, times)

	require.NotNil(t, first.Command)
	assert.Equal(t, logic.KindBuild, first.Command.Kind())
	assert.Equal(t, logic.PlayerNumber(1), first.Command.Sender())
	assert.Equal(t, uint32(1), first.Command.CmdSerial())
	assert.Equal(t, logic.Time(1), first.Command.DueTime())

	_, err = rr.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplay_DetectsDesync(t *testing.T) {
	bogus := syncsum.Checksum{0xde, 0xad}
	data, _ := record(t, 1000, func(g *logic.Game, rw *Writer) {
		// An extra checkpoint the simulation cannot match.
		require.NoError(t, rw.SendSync(g.Time(), bogus))
	})

	rr, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer rr.Close()
	res, g, err := Play(context.Background(), rr, quiet())
	require.NoError(t, err)

	assert.True(t, res.Ended, "playback continues past a desync")
	assert.False(t, res.OK())
	require.Len(t, res.Desyncs, 1)
	d, ok := res.FirstDesync()
	require.True(t, ok)
	assert.Equal(t, logic.Time(500), d.Time)
	assert.Equal(t, "replay", d.Peer)
	assert.Equal(t, bogus, d.Expected)
	assert.Equal(t, 1, g.Desyncs())

	failed := 0
	for _, c := range res.Checks {
		if !c.OK() {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestReplay_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.lsrp")
	g := newStartedGame(t)
	rw, err := Create(path, g)
	require.NoError(t, err)
	assert.True(t, g.ReplayAttached())
	g.SendPlayerCommand(logic.NewCmdBuild(0, 2, logic.Coords{X: 2, Y: 2}, logic.BuildingFishersHouse))
	require.NoError(t, g.RunUntil(3000))
	require.NoError(t, rw.Close())
	require.NoError(t, rw.Close(), "second close is a no-op")
	assert.False(t, g.ReplayAttached())

	res, err := Verify(context.Background(), path, quiet())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, g.SyncHash(), res.FinalHash)
	assert.Equal(t, 1, res.Commands)
}

func TestWriter_ClosedRejectsRecords(t *testing.T) {
	g := newStartedGame(t)
	rw, err := NewWriter(io.Discard, g)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	cmd := logic.NewCmdShipSink(5, 1, 3)
	assert.Error(t, rw.RecordCommand(cmd))
	assert.Error(t, rw.SendSync(5, syncsum.Checksum{}))
}

func TestWriter_AlreadyRecording(t *testing.T) {
	g := newStartedGame(t)
	_, err := NewWriter(io.Discard, g)
	require.NoError(t, err)
	_, err = NewWriter(io.Discard, g)
	assert.ErrorContains(t, err, "already attached")
}

func decompress(t *testing.T, data []byte) []byte {
	t.Helper()
	dec, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	require.NoError(t, err)
	return raw
}

func compress(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write(raw)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func TestReader_MissingEndRecord(t *testing.T) {
	data, _ := record(t, 1000, nil)
	raw := decompress(t, data)
	// Drop the 5-byte end record.
	cut := compress(t, raw[:len(raw)-5])

	rr, err := NewReader(bytes.NewReader(cut))
	require.NoError(t, err)
	defer rr.Close()
	res, _, err := Play(context.Background(), rr, quiet())
	require.Error(t, err)
	assert.True(t, wire.IsDataError(err))
	assert.Contains(t, err.Error(), "without an end record")
	assert.False(t, res.Ended)
}

func TestReader_TruncatedRecord(t *testing.T) {
	data, _ := record(t, 1000, nil)
	raw := decompress(t, data)
	// Keep the type byte and half the time of the end record.
	cut := compress(t, raw[:len(raw)-3])

	rr, err := NewReader(bytes.NewReader(cut))
	require.NoError(t, err)
	defer rr.Close()
	var last error
	for _, err := range rr.Records() {
		last = err
	}
	require.Error(t, last)
	assert.True(t, wire.IsTruncated(last))
	assert.Contains(t, last.Error(), "replay record at offset")
}

func TestReader_BadHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader(compress(t, []byte("definitely not a replay"))))
	assert.ErrorContains(t, err, "not a replay file")

	hdr := binary.LittleEndian.AppendUint32(nil, fileMagic)
	hdr = binary.LittleEndian.AppendUint16(hdr, 9)
	_, err = NewReader(bytes.NewReader(compress(t, hdr)))
	require.Error(t, err)
	assert.True(t, logic.IsUnhandledVersion(err))
	assert.Contains(t, err.Error(), "replay: unknown/unhandled version 9 (expected 1)")
}

func TestPlay_CorruptSavegame(t *testing.T) {
	hdr := binary.LittleEndian.AppendUint32(nil, fileMagic)
	hdr = binary.LittleEndian.AppendUint16(hdr, Version)
	hdr = append(hdr, make([]byte, 16)...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)
	hdr = binary.LittleEndian.AppendUint32(hdr, 3)
	hdr = append(hdr, 1, 2, 3)

	rr, err := NewReader(bytes.NewReader(compress(t, hdr)))
	require.NoError(t, err)
	defer rr.Close()
	_, _, err = Play(context.Background(), rr, quiet())
	assert.ErrorContains(t, err, "could not load replay: load game")
}
