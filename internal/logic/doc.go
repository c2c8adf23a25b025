// Package logic implements the deterministic lockstep simulation core: the
// command queue, player commands, the objects they act on, and the periodic
// sync commands that feed the network session and the replay writer.
//
// ARCHITECTURE:
//
// Single-Threaded Execution:
// A Game executes commands one at a time on the goroutine that calls
// RunUntil. Nothing else may execute a Command. Other goroutines (network
// receive paths) hand commands over through Game.Submit; they are moved into
// the queue at the start of the next RunUntil call.
//
// Command Ordering:
// Pending commands are ordered by (duetime, category, serial, seq):
//   - duetime: game time at which the command becomes due
//   - category: sync probes first, then player commands, then game logic
//   - serial: cmdserial for player commands (agreed network-wide),
//     queue-assigned serial for game-logic commands
//   - seq: queue insertion counter, only reached for sync probes or
//     duplicate serials
//
// No part of the key depends on memory addresses, goroutines or wall-clock
// arrival, so every peer executes the same set of commands in the same order.
//
// Sync Hash:
// Every game-logic command run by the queue, every RNG draw and every object
// or ware mutation is fed into the game's syncsum.Accumulator. Peers compare
// snapshots at agreed game times to detect desyncs.
//
// Stale References:
// Commands address objects by Serial. A serial that no longer resolves, or
// resolves to an object of another type or owner, makes the command a no-op.
// This is expected under network latency and is not an error.
package logic
