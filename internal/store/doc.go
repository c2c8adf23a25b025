// Package store provides SQLite-backed storage for lockstep session records.
//
// The store keeps what a host or a replay verification learns about a game:
//   - Games: id, seed and player names
//   - Sync reports: every comparison of a peer's hash with the host's
//   - Desyncs: failed comparisons, with the path of the sync-stream dump
//   - Replay runs: results of replay playback verification
//
// # Ordering
//
// Rows carry game time, never wall-clock time. Reads order by
// game_time ASC, peer COLLATE BINARY ASC so two runs of the same game produce
// identical listings.
//
// # Idempotency
//
// Reports and desyncs are unique per (game, time, peer); writing the same
// one twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
