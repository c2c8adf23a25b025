// Package netsession runs a game across the network in lockstep.
//
// The host owns network time. Every frame it advances its own game and
// broadcasts TIME; clients never simulate past the last TIME they received.
// Player commands are sent to the host, which assigns the cmdserial and a
// duetime a fixed delay after the current network time, then relays them to
// every peer, itself included. Because all peers execute the same commands
// at the same game times, their simulations stay identical.
//
// The host runs the periodic sync check chain. Each check records the host's
// own hash and asks clients for theirs with SYNCREQUEST; a SYNCREPORT that
// differs is a desync.
package netsession

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
)

// Config tunes the session timing. Zero fields take defaults.
type Config struct {
	// CommandDelay is added to network time to get a relayed command's
	// duetime. It must cover the round trip to the slowest peer.
	CommandDelay logic.Duration

	// TimeStep is how far network time advances per frame.
	TimeStep logic.Duration

	// Frame is the wall-clock length of a frame.
	Frame time.Duration

	// MaxLag bounds how far network time may run ahead of the slowest
	// peer's acknowledged time.
	MaxLag logic.Duration

	// HandshakeTimeout bounds the wait for HELLO and WELCOME.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the stock timing.
func DefaultConfig() Config {
	return Config{
		CommandDelay:     200,
		TimeStep:         50,
		Frame:            50 * time.Millisecond,
		MaxLag:           2000,
		HandshakeTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CommandDelay <= 0 {
		c.CommandDelay = d.CommandDelay
	}
	if c.TimeStep <= 0 {
		c.TimeStep = d.TimeStep
	}
	if c.Frame <= 0 {
		c.Frame = d.Frame
	}
	if c.MaxLag <= 0 {
		c.MaxLag = d.MaxLag
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	return c
}

// Status is a snapshot of a peer's simulation, safe to read from any
// goroutine.
type Status struct {
	Time    logic.Time
	Hash    syncsum.Checksum
	Objects int
	Peers   int
	Reports int
	Desyncs int
}

// SyncResult is the outcome of comparing one SYNCREPORT with the host hash.
type SyncResult struct {
	GameID   uuid.UUID
	Time     logic.Time
	Peer     string
	Expected syncsum.Checksum
	Got      syncsum.Checksum
}

// OK reports whether the hashes matched.
func (r SyncResult) OK() bool { return r.Expected == r.Got }

// Reporter receives every sync comparison the host makes.
type Reporter interface {
	ReportSync(ctx context.Context, res SyncResult) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, res SyncResult) error

func (f ReporterFunc) ReportSync(ctx context.Context, res SyncResult) error { return f(ctx, res) }

// RejectedError is returned by Dial when the host refuses the seat.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("host rejected connection: %s", e.Reason)
}

// DisconnectedError ends Client.Run when the host closes the session.
type DisconnectedError struct {
	Reason string
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("disconnected by host: %s", e.Reason)
}
