package syncsum

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ring keeps the most recent bytes of the sync stream for desync diagnosis.
type ring struct {
	buf   []byte
	pos   int
	full  bool
	total uint64
}

func newRing(size int) *ring {
	return &ring{buf: make([]byte, size)}
}

func (r *ring) write(p []byte) {
	r.total += uint64(len(p))
	if len(p) >= len(r.buf) {
		copy(r.buf, p[len(p)-len(r.buf):])
		r.pos = 0
		r.full = true
		return
	}
	n := copy(r.buf[r.pos:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
		r.full = true
	}
	r.pos = (r.pos + len(p)) % len(r.buf)
	if r.pos == 0 && len(p) > 0 {
		r.full = true
	}
}

func (r *ring) reset() {
	r.pos = 0
	r.full = false
	r.total = 0
}

// bytes returns the retained stream in feed order.
func (r *ring) bytes() []byte {
	if !r.full {
		return append([]byte(nil), r.buf[:r.pos]...)
	}
	out := make([]byte, 0, len(r.buf))
	out = append(out, r.buf[r.pos:]...)
	return append(out, r.buf[:r.pos]...)
}

// KeepRecent makes the accumulator retain the last n bytes fed, so they can
// be written out with WriteDump when a desync is detected. n <= 0 disables
// retention.
func (a *Accumulator) KeepRecent(n int) {
	if n <= 0 {
		a.dump = nil
		return
	}
	a.dump = newRing(n)
}

// Recent returns the retained tail of the sync stream, oldest byte first.
func (a *Accumulator) Recent() []byte {
	if a.dump == nil {
		return nil
	}
	return a.dump.bytes()
}

// WriteDump writes the retained tail of the sync stream to w, zstd
// compressed.
func (a *Accumulator) WriteDump(w io.Writer) error {
	if a.dump == nil {
		return fmt.Errorf("sync stream retention is disabled")
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("sync dump: %w", err)
	}
	if _, err := enc.Write(a.dump.bytes()); err != nil {
		_ = enc.Close()
		return fmt.Errorf("sync dump: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("sync dump: %w", err)
	}
	return nil
}

// DumpToDir writes the retained sync stream to dir/name and returns the path.
func (a *Accumulator) DumpToDir(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("sync dump: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("sync dump: %w", err)
	}
	if err := a.WriteDump(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sync dump: %w", err)
	}
	return path, nil
}

// ReadDump decompresses a dump written by WriteDump.
func ReadDump(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read sync dump: %w", err)
	}
	defer dec.Close()
	b, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read sync dump: %w", err)
	}
	return b, nil
}
