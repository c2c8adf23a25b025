package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

// Header is the fixed part of a replay file.
type Header struct {
	Version   uint16
	GameID    uuid.UUID
	StartTime logic.Time
}

// Record is one entry after the header. Command is set for RecordCommand,
// Sync for RecordSync.
type Record struct {
	Type    RecordType
	Time    logic.Time
	Command logic.PlayerCommand
	Sync    syncsum.Checksum
}

// Reader reads a replay file lazily, one record at a time.
type Reader struct {
	dec      *zstd.Decoder
	r        *wire.Reader
	file     io.Closer
	header   Header
	savegame []byte
	done     bool
	err      error
}

// Open opens a replay file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	rr, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rr.file = f
	return rr, nil
}

// NewReader reads the replay header from in.
func NewReader(in io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	rr := &Reader{dec: dec, r: wire.NewReader(dec)}
	if err := rr.readHeader(); err != nil {
		dec.Close()
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return rr, nil
}

func (rr *Reader) readHeader() error {
	r := rr.r
	if m := r.U32(); r.Err() == nil && m != fileMagic {
		return errors.New("not a replay file")
	}
	rr.header.Version = r.U16()
	if err := r.Err(); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if rr.header.Version != Version {
		return &logic.UnhandledVersionError{Type: "replay", Got: rr.header.Version, Want: Version}
	}
	r.Raw(rr.header.GameID[:])
	rr.header.StartTime = logic.Time(r.I32())
	rr.savegame = r.Blob()
	if err := r.Err(); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	return nil
}

// Header returns the replay header.
func (rr *Reader) Header() Header { return rr.header }

// Savegame returns the raw savegame the recording started from.
func (rr *Reader) Savegame() []byte { return rr.savegame }

// LoadGame restores the game the recording started from.
func (rr *Reader) LoadGame(opts ...logic.Option) (*logic.Game, error) {
	g, err := logic.LoadGame(bytes.NewReader(rr.savegame), opts...)
	if err != nil {
		return nil, fmt.Errorf("could not load replay: %w", err)
	}
	if g.ID() != rr.header.GameID {
		return nil, fmt.Errorf("could not load replay: savegame is for game %s, header says %s", g.ID(), rr.header.GameID)
	}
	return g, nil
}

// Next returns the next record. After the end record it returns io.EOF. A
// stream that stops before its end record fails with a *wire.DataError.
func (rr *Reader) Next() (Record, error) {
	if rr.err != nil {
		return Record{}, rr.err
	}
	if rr.done {
		return Record{}, io.EOF
	}
	rec, err := rr.next()
	if err != nil {
		rr.err = err
		return Record{}, err
	}
	if rec.Type == RecordEnd {
		rr.done = true
	}
	return rec, nil
}

func (rr *Reader) next() (Record, error) {
	r := rr.r
	if r.AtEOF() {
		r.Fail("replay ends without an end record")
		return Record{}, r.Err()
	}
	start := r.Offset()
	rec := Record{Type: RecordType(r.U8())}
	rec.Time = logic.Time(r.I32())
	if err := r.Err(); err != nil {
		return Record{}, fmt.Errorf("replay record at offset %d: %w", start, err)
	}

	switch rec.Type {
	case RecordCommand:
		cmd, err := logic.DecodePlayerCommand(r)
		if err != nil {
			return Record{}, fmt.Errorf("replay %s record at offset %d: %w", rec.Type, start, err)
		}
		cmd.SetDueTime(rec.Time)
		rec.Command = cmd
	case RecordSync:
		r.Raw(rec.Sync[:])
	case RecordEnd:
	default:
		r.Fail("unknown replay record type %d", uint8(rec.Type))
	}
	if err := r.Err(); err != nil {
		return Record{}, fmt.Errorf("replay %s record at offset %d: %w", rec.Type, start, err)
	}
	return rec, nil
}

// Records iterates over the remaining records. Iteration stops after the end
// record or at the first error, which is yielded once.
func (rr *Reader) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := rr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the decoder and the underlying file, if any.
func (rr *Reader) Close() error {
	rr.dec.Close()
	if rr.file != nil {
		return rr.file.Close()
	}
	return nil
}
