package replay

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

const (
	fileMagic uint32 = 0x5052534c // "LSRP"

	// Version is the replay file format version.
	Version uint16 = 1
)

// RecordType tags each record after the header.
type RecordType uint8

const (
	RecordCommand RecordType = 1
	RecordSync    RecordType = 2
	RecordEnd     RecordType = 3
)

func (t RecordType) String() string {
	switch t {
	case RecordCommand:
		return "command"
	case RecordSync:
		return "sync"
	case RecordEnd:
		return "end"
	}
	return fmt.Sprintf("record(%d)", uint8(t))
}

// Writer records a running game. It implements logic.ReplayRecorder and is
// driven from the game goroutine only.
type Writer struct {
	game   *logic.Game
	file   io.Closer
	enc    *zstd.Encoder
	buf    *bufio.Writer
	w      *wire.Writer
	closed bool
	log    *slog.Logger

	commands int
	syncs    int
}

// Create opens path and starts recording g into it. See NewWriter.
func Create(path string, g *logic.Game) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create replay: %w", err)
	}
	rw, err := newWriter(f, g)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rw.file = f
	return rw, nil
}

// NewWriter writes the replay header and a savegame of g to out, then
// attaches itself to g. The game should already be started so the savegame
// carries its periodic commands.
//
// Close must be called to write the end record and flush the stream.
func NewWriter(out io.Writer, g *logic.Game) (*Writer, error) {
	return newWriter(out, g)
}

func newWriter(out io.Writer, g *logic.Game) (*Writer, error) {
	var save bytes.Buffer
	if err := g.Save(&save); err != nil {
		return nil, fmt.Errorf("create replay: %w", err)
	}

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create replay: %w", err)
	}
	buf := bufio.NewWriterSize(enc, 64*1024)
	rw := &Writer{
		game: g,
		enc:  enc,
		buf:  buf,
		w:    wire.NewWriter(buf),
		log:  g.Logger(),
	}

	id := g.ID()
	rw.w.U32(fileMagic)
	rw.w.U16(Version)
	rw.w.Raw(id[:])
	rw.w.I32(int32(g.Time()))
	rw.w.Blob(save.Bytes())
	if err := rw.w.Err(); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create replay: header: %w", err)
	}

	if err := g.AttachReplay(rw); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create replay: %w", err)
	}
	rw.log.Info("replay recording started", "game", id, "time", g.Time(), "savegame_bytes", save.Len())
	return rw, nil
}

// RecordCommand writes an executing player command.
func (rw *Writer) RecordCommand(cmd logic.PlayerCommand) error {
	if rw.closed {
		return errors.New("replay writer closed")
	}
	rw.w.U8(uint8(RecordCommand))
	rw.w.I32(int32(cmd.DueTime()))
	if err := logic.EncodeCommand(rw.w, cmd); err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	rw.commands++
	return nil
}

// SendSync writes a sync checkpoint and flushes the stream up to it.
func (rw *Writer) SendSync(t logic.Time, sum syncsum.Checksum) error {
	if rw.closed {
		return errors.New("replay writer closed")
	}
	rw.w.U8(uint8(RecordSync))
	rw.w.I32(int32(t))
	rw.w.Raw(sum[:])
	if err := rw.w.Err(); err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	rw.syncs++
	return rw.Flush()
}

// Flush pushes buffered records through the compressor.
func (rw *Writer) Flush() error {
	if err := rw.buf.Flush(); err != nil {
		return fmt.Errorf("flush replay: %w", err)
	}
	if err := rw.enc.Flush(); err != nil {
		return fmt.Errorf("flush replay: %w", err)
	}
	return nil
}

// Close detaches from the game, writes the end record at the current game
// time and closes the stream. Closing twice is a no-op.
func (rw *Writer) Close() error {
	if rw.closed {
		return nil
	}
	if rw.game.ReplayAttached() {
		rw.game.DetachReplay()
	}
	end := rw.game.Time()
	rw.w.U8(uint8(RecordEnd))
	rw.w.I32(int32(end))
	rw.closed = true

	err := rw.w.Err()
	if ferr := rw.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := rw.enc.Close(); err == nil {
		err = cerr
	}
	if rw.file != nil {
		if cerr := rw.file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close replay: %w", err)
	}
	rw.log.Info("replay recording finished",
		"game", rw.game.ID(),
		"end", end,
		"commands", rw.commands,
		"syncs", rw.syncs,
	)
	return nil
}

// Commands returns the number of command records written.
func (rw *Writer) Commands() int { return rw.commands }

// Syncs returns the number of sync records written.
func (rw *Writer) Syncs() int { return rw.syncs }
