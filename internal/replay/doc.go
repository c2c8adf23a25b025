// Package replay records games and plays them back with sync verification.
//
// A replay file is a zstd stream holding a header, the savegame the
// recording started from, and then a time-ordered sequence of records:
//
//	u32 magic "LSRP"
//	u16 version
//	[16] game id
//	i32 start time
//	blob savegame
//	records...
//
// Each record begins with a u8 type:
//
//	1 command  i32 duetime, command record (see logic.EncodeCommand)
//	2 sync     i32 time, 16 byte sync checksum
//	3 end      i32 time
//
// Player commands are written when they execute, so command records appear
// in execution order. Sync records are produced by the replay sync chain
// (logic.CmdReplaySyncWrite) every few hundred milliseconds of game time.
//
// Play reloads the savegame and re-drives the command queue from the
// records. Each sync record becomes a logic.CmdReplaySyncRead at the same
// game time, so a mismatch pinpoints the interval in which the simulation
// diverged.
package replay
