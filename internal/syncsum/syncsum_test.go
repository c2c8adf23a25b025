package syncsum

import (
	"bytes"
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_SameBytesSameDigest(t *testing.T) {
	feed := func(a *Accumulator) {
		a.Entry(EntryRunQueue)
		a.I32(100)
		a.U8(1)
		a.String("Alice")
		a.Data([]byte{1, 2, 3, 4})
	}

	a1 := New()
	a2 := New()
	feed(a1)
	feed(a2)

	assert.Equal(t, a1.Snapshot(), a2.Snapshot())
	assert.Equal(t, a1.Fed(), a2.Fed())
}

func TestAccumulator_SnapshotDoesNotReset(t *testing.T) {
	a := New()
	a.Data([]byte("abc"))
	first := a.Snapshot()
	second := a.Snapshot()
	assert.Equal(t, first, second)

	a.Data([]byte("d"))
	assert.NotEqual(t, first, a.Snapshot())
	assert.Equal(t, Sum([]byte("abcd")), a.Snapshot())
}

func TestAccumulator_IsMD5OfStream(t *testing.T) {
	a := New()
	a.U32(0x04030201)
	assert.Equal(t, Checksum(md5.Sum([]byte{1, 2, 3, 4})), a.Snapshot())
}

func TestAccumulator_Reset(t *testing.T) {
	a := New()
	empty := a.Snapshot()
	a.Data([]byte("state"))
	a.Reset()
	assert.Equal(t, empty, a.Snapshot())
	assert.Equal(t, uint64(0), a.Fed())
}

func TestAccumulator_MarshalResumes(t *testing.T) {
	a := New()
	a.Data([]byte("first half "))
	state, err := a.MarshalBinary()
	require.NoError(t, err)

	b := New()
	require.NoError(t, b.UnmarshalBinary(state))
	assert.Equal(t, a.Fed(), b.Fed())

	a.Data([]byte("second half"))
	b.Data([]byte("second half"))
	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, Sum([]byte("first half second half")), b.Snapshot())
}

func TestAccumulator_UnmarshalShortState(t *testing.T) {
	err := New().UnmarshalBinary([]byte{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short state")
}

func TestChecksum_StringRoundTrip(t *testing.T) {
	c := Sum([]byte("x"))
	parsed, err := ParseChecksum(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
	assert.Len(t, c.String(), 32)
	assert.False(t, c.IsZero())
	assert.True(t, Checksum{}.IsZero())

	_, err = ParseChecksum("abcd")
	require.Error(t, err)
}

func TestAccumulator_KeepRecent(t *testing.T) {
	a := New()
	a.KeepRecent(4)
	a.Data([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, a.Recent())

	a.Data([]byte{4, 5})
	assert.Equal(t, []byte{2, 3, 4, 5}, a.Recent())

	a.Data([]byte{6, 7, 8, 9, 10, 11})
	assert.Equal(t, []byte{8, 9, 10, 11}, a.Recent())

	a.Data([]byte{12})
	assert.Equal(t, []byte{9, 10, 11, 12}, a.Recent())
}

func TestAccumulator_KeepRecentExactWrap(t *testing.T) {
	a := New()
	a.KeepRecent(4)
	a.Data([]byte{1, 2})
	a.Data([]byte{3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, a.Recent())
	a.Data([]byte{5})
	assert.Equal(t, []byte{2, 3, 4, 5}, a.Recent())
}

func TestAccumulator_DumpRoundTrip(t *testing.T) {
	a := New()
	a.KeepRecent(1024)
	a.Entry(EntryRandom)
	a.U32(42)

	var buf bytes.Buffer
	require.NoError(t, a.WriteDump(&buf))
	got, err := ReadDump(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(EntryRandom), 42, 0, 0, 0}, got)
}

func TestAccumulator_DumpToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "syncstreams")
	a := New()
	a.KeepRecent(16)
	a.Data([]byte("tail"))

	path, err := a.DumpToDir(dir, "desync-100.bin.zst")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := ReadDump(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("tail"), got)
}

func TestAccumulator_DumpDisabled(t *testing.T) {
	a := New()
	require.Error(t, a.WriteDump(&bytes.Buffer{}))
	assert.Nil(t, a.Recent())
}
