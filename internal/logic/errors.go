package logic

import (
	"errors"
	"fmt"

	"github.com/roach88/lockstep/internal/syncsum"
)

// UnhandledVersionError reports a serialized record whose packet version is
// outside the range this build can read.
type UnhandledVersionError struct {
	// Type names the record being read ("start/stop building", "command queue").
	Type string

	// Got is the version found in the data.
	Got uint16

	// Want is the newest version this build writes.
	Want uint16
}

func (e *UnhandledVersionError) Error() string {
	return fmt.Sprintf("%s: unknown/unhandled version %d (expected %d)", e.Type, e.Got, e.Want)
}

// IsUnhandledVersion returns true if err (or anything it wraps) is an
// *UnhandledVersionError.
func IsUnhandledVersion(err error) bool {
	var ve *UnhandledVersionError
	return errors.As(err, &ve)
}

// UnknownKindError reports a command kind that has no codec: either a
// reserved value or one this build never knew.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown command kind %s", e.Kind)
}

// IsUnknownKind returns true if err (or anything it wraps) is an
// *UnknownKindError.
func IsUnknownKind(err error) bool {
	var ke *UnknownKindError
	return errors.As(err, &ke)
}

// InvariantError is the panic value used for programming errors that would
// otherwise corrupt deterministic execution, such as enqueueing a command
// twice. It is never returned as an error.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "logic invariant violated: " + e.Msg
}

func invariant(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// Desync describes a sync hash mismatch between this game and a peer.
// It is reported, never returned as an error: the game keeps running.
type Desync struct {
	// Time is the game time at which both hashes were taken.
	Time Time

	// Peer names the other side ("replay", a player name, "host").
	Peer string

	// Expected is the reference hash (host or replay file).
	Expected syncsum.Checksum

	// Got is the hash computed locally or reported by the peer.
	Got syncsum.Checksum

	// DumpPath is the sync-stream dump written for this desync, if any.
	DumpPath string
}

func (d Desync) String() string {
	return fmt.Sprintf("desync at %d with %s: expected %s, got %s", d.Time, d.Peer, d.Expected, d.Got)
}
