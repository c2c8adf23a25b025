// Package syncsum accumulates the synchronization hash of a running game.
//
// Every state mutation that can influence the outcome of the simulation is
// fed into an Accumulator as a tagged entry. Two peers that executed the same
// command stream produce the same Checksum at the same game time; any
// difference is a desync.
//
// Only deterministic data may be fed: never wall-clock time, map iteration
// order, pointer values or anything derived from floating point.
package syncsum

import (
	"crypto/md5"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
)

// Size is the byte length of a Checksum on the wire.
const Size = md5.Size

// Checksum is the 16-byte digest exchanged in sync reports and replay files.
type Checksum [Size]byte

func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether c is the all-zero checksum.
func (c Checksum) IsZero() bool {
	return c == Checksum{}
}

// ParseChecksum decodes the hex form produced by String.
func ParseChecksum(s string) (Checksum, error) {
	var c Checksum
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("parse checksum: %w", err)
	}
	if len(b) != Size {
		return c, fmt.Errorf("parse checksum: want %d bytes, got %d", Size, len(b))
	}
	copy(c[:], b)
	return c, nil
}

// Sum returns the checksum of p fed into a fresh accumulator.
func Sum(p []byte) Checksum {
	return Checksum(md5.Sum(p))
}

// Entry tags a record in the sync stream.
type Entry uint8

const (
	EntryRunQueue      Entry = 1
	EntryRandom        Entry = 2
	EntryCreateObject  Entry = 3
	EntryDestroyObject Entry = 4
	EntryWareChange    Entry = 5
	EntryObjectAct     Entry = 6
	EntryObjectState   Entry = 7
	EntryPlayerState   Entry = 8
)

// Accumulator is a running MD5 over the sync stream.
//
// Not safe for concurrent use; it belongs to exactly one game.
type Accumulator struct {
	h    hash.Hash
	fed  uint64
	tmp  [4]byte
	dump *ring
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{h: md5.New()}
}

// Data feeds raw bytes.
func (a *Accumulator) Data(p []byte) {
	a.h.Write(p)
	a.fed += uint64(len(p))
	if a.dump != nil {
		a.dump.write(p)
	}
}

func (a *Accumulator) U8(v uint8) {
	a.tmp[0] = v
	a.Data(a.tmp[:1])
}

func (a *Accumulator) U16(v uint16) {
	binary.LittleEndian.PutUint16(a.tmp[:2], v)
	a.Data(a.tmp[:2])
}

func (a *Accumulator) U32(v uint32) {
	binary.LittleEndian.PutUint32(a.tmp[:4], v)
	a.Data(a.tmp[:4])
}

func (a *Accumulator) I32(v int32) { a.U32(uint32(v)) }

// Entry feeds a tag byte.
func (a *Accumulator) Entry(e Entry) { a.U8(uint8(e)) }

// String feeds a u16 length prefix and the bytes of s.
func (a *Accumulator) String(s string) {
	a.U16(uint16(len(s)))
	a.Data([]byte(s))
}

// Snapshot returns the digest of everything fed so far. It does not reset.
func (a *Accumulator) Snapshot() Checksum {
	var c Checksum
	copy(c[:], a.h.Sum(nil))
	return c
}

// Reset discards all fed data.
func (a *Accumulator) Reset() {
	a.h.Reset()
	a.fed = 0
	if a.dump != nil {
		a.dump.reset()
	}
}

// Fed returns the number of bytes fed since creation or the last Reset.
func (a *Accumulator) Fed() uint64 {
	return a.fed
}

// MarshalBinary captures the running hash state so a savegame can resume it.
func (a *Accumulator) MarshalBinary() ([]byte, error) {
	m, ok := a.h.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("sync hash state is not marshalable")
	}
	state, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal sync hash: %w", err)
	}
	out := make([]byte, 8+len(state))
	binary.LittleEndian.PutUint64(out[:8], a.fed)
	copy(out[8:], state)
	return out, nil
}

// UnmarshalBinary restores state produced by MarshalBinary.
func (a *Accumulator) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("unmarshal sync hash: short state (%d bytes)", len(data))
	}
	h := md5.New()
	u, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("sync hash state is not unmarshalable")
	}
	if err := u.UnmarshalBinary(data[8:]); err != nil {
		return fmt.Errorf("unmarshal sync hash: %w", err)
	}
	a.h = h
	a.fed = binary.LittleEndian.Uint64(data[:8])
	if a.dump != nil {
		a.dump.reset()
	}
	return nil
}
