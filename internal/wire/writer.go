package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes primitives to an underlying io.Writer.
type Writer struct {
	w   io.Writer
	n   int64
	err error
	tmp [8]byte
}

// NewWriter returns a Writer that appends to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int64 {
	return w.n
}

// Fail records err unless an earlier error is already recorded.
// Encoders use it to reject values that cannot be represented.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
}

func (w *Writer) U8(v uint8) {
	w.tmp[0] = v
	w.write(w.tmp[:1])
}

func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.tmp[:2], v)
	w.write(w.tmp[:2])
}

func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.tmp[:4], v)
	w.write(w.tmp[:4])
}

func (w *Writer) U64(v uint64) {
	binary.LittleEndian.PutUint64(w.tmp[:8], v)
	w.write(w.tmp[:8])
}

func (w *Writer) I8(v int8)   { w.U8(uint8(v)) }
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// Bool writes 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// String writes a u16 length prefix followed by the raw bytes.
func (w *Writer) String(s string) {
	if len(s) > math.MaxUint16 {
		w.Fail(fmt.Errorf("string too long: %d bytes", len(s)))
		return
	}
	w.U16(uint16(len(s)))
	w.write([]byte(s))
}

// Blob writes a u32 length prefix followed by p.
func (w *Writer) Blob(p []byte) {
	if len(p) > MaxBlobSize {
		w.Fail(fmt.Errorf("blob too large: %d bytes", len(p)))
		return
	}
	w.U32(uint32(len(p)))
	w.write(p)
}

// Raw writes p without a length prefix.
func (w *Writer) Raw(p []byte) {
	w.write(p)
}
