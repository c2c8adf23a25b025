package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_LittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.U8(0x01)
	w.U16(0x0302)
	w.U32(0x07060504)
	w.I32(-1)
	w.Bool(true)
	w.String("ab")
	require.NoError(t, w.Err())

	want := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0xff, 0xff, 0xff, 0xff,
		0x01,
		0x02, 0x00, 'a', 'b',
	}
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(len(want)), w.Len())
}

func TestReader_ReadsWhatWriterWrote(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.U8(200)
	w.U16(65000)
	w.U32(4000000000)
	w.U64(1 << 40)
	w.I8(-5)
	w.I16(-300)
	w.I32(-70000)
	w.Bool(false)
	w.String("héllo")
	w.Blob([]byte{9, 8, 7})
	w.Raw([]byte{1, 2})
	require.NoError(t, w.Err())

	r := NewReader(&buf)
	assert.Equal(t, uint8(200), r.U8())
	assert.Equal(t, uint16(65000), r.U16())
	assert.Equal(t, uint32(4000000000), r.U32())
	assert.Equal(t, uint64(1<<40), r.U64())
	assert.Equal(t, int8(-5), r.I8())
	assert.Equal(t, int16(-300), r.I16())
	assert.Equal(t, int32(-70000), r.I32())
	assert.False(t, r.Bool())
	assert.Equal(t, "héllo", r.String())
	assert.Equal(t, []byte{9, 8, 7}, r.Blob())
	raw := make([]byte, 2)
	r.Raw(raw)
	assert.Equal(t, []byte{1, 2}, raw)
	require.NoError(t, r.Err())
	assert.True(t, r.AtEOF())
}

func TestReader_TruncatedReportsOffset(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02, 0x03}))
	_ = r.U16()
	_ = r.U32()

	err := r.Err()
	require.Error(t, err)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, int64(2), de.Offset)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.True(t, IsTruncated(err))
	assert.True(t, IsDataError(err))
}

func TestReader_StickyError(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	assert.Equal(t, uint8(0), r.U8())
	first := r.Err()
	require.Error(t, first)

	assert.Equal(t, uint32(0), r.U32())
	assert.Same(t, first, r.Err(), "first error must be kept")
}

func TestReader_InvalidBool(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{7}))
	r.Bool()
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "invalid bool value 7")
}

func TestReader_BlobLimit(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.U32(MaxBlobSize + 1)
	r := NewReader(&buf)
	assert.Nil(t, r.Blob())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "exceeds limit")
}

func TestWriter_StringTooLong(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.String(strings.Repeat("x", 70000))
	require.Error(t, w.Err())
	assert.Equal(t, 0, buf.Len())
}

func TestReader_Fail(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	r.U8()
	r.Fail("bad kind %d", 99)
	var de *DataError
	require.ErrorAs(t, r.Err(), &de)
	assert.Equal(t, int64(1), de.Offset)
	assert.Equal(t, "data error at offset 1: bad kind 99", de.Error())
}
