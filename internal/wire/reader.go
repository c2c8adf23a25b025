package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxBlobSize bounds length-prefixed blobs so a corrupt prefix cannot force
// a huge allocation.
const MaxBlobSize = 64 << 20

// Reader decodes primitives from an underlying io.Reader.
type Reader struct {
	r   *bufio.Reader
	off int64
	err error
	tmp [8]byte
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// Err returns the first error encountered, if any. It is always a *DataError.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.off
}

// Fail records a DataError at the current offset unless an earlier error is
// already recorded. Decoders use it to reject out-of-range values.
func (r *Reader) Fail(format string, args ...any) {
	if r.err == nil {
		r.err = &DataError{Offset: r.off, Msg: fmt.Sprintf(format, args...)}
	}
}

// AtEOF reports whether the stream is exhausted. It does not consume data.
func (r *Reader) AtEOF() bool {
	if r.err != nil {
		return false
	}
	_, err := r.r.Peek(1)
	return errors.Is(err, io.EOF)
}

func (r *Reader) read(p []byte, what string) bool {
	if r.err != nil {
		return false
	}
	n, err := io.ReadFull(r.r, p)
	start := r.off
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = &DataError{Offset: start, Msg: "reading " + what, Err: err}
		return false
	}
	return true
}

func (r *Reader) U8() uint8 {
	if !r.read(r.tmp[:1], "u8") {
		return 0
	}
	return r.tmp[0]
}

func (r *Reader) U16() uint16 {
	if !r.read(r.tmp[:2], "u16") {
		return 0
	}
	return binary.LittleEndian.Uint16(r.tmp[:2])
}

func (r *Reader) U32() uint32 {
	if !r.read(r.tmp[:4], "u32") {
		return 0
	}
	return binary.LittleEndian.Uint32(r.tmp[:4])
}

func (r *Reader) U64() uint64 {
	if !r.read(r.tmp[:8], "u64") {
		return 0
	}
	return binary.LittleEndian.Uint64(r.tmp[:8])
}

func (r *Reader) I8() int8   { return int8(r.U8()) }
func (r *Reader) I16() int16 { return int16(r.U16()) }
func (r *Reader) I32() int32 { return int32(r.U32()) }

// Bool reads a single byte; any value other than 0 or 1 is a DataError.
func (r *Reader) Bool() bool {
	v := r.U8()
	if v > 1 {
		r.Fail("invalid bool value %d", v)
		return false
	}
	return v == 1
}

func (r *Reader) String() string {
	n := r.U16()
	if r.err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if !r.read(buf, "string") {
		return ""
	}
	return string(buf)
}

func (r *Reader) Blob() []byte {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if n > MaxBlobSize {
		r.Fail("blob length %d exceeds limit %d", n, MaxBlobSize)
		return nil
	}
	buf := make([]byte, n)
	if !r.read(buf, "blob") {
		return nil
	}
	return buf
}

// Raw fills p completely.
func (r *Reader) Raw(p []byte) {
	r.read(p, "raw bytes")
}
