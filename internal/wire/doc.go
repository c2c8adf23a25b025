// Package wire implements the little-endian binary stream used by every
// persisted or transmitted record: savegame packets, replay files and network
// messages.
//
// Writer and Reader carry a sticky error. After the first failure every
// further call is a no-op, so callers encode or decode a whole record and
// check Err once at the end, the same way bufio.Scanner is used.
//
// Strings are length-prefixed (u16) and blobs are length-prefixed (u32).
// Reader tracks the byte offset of everything it consumed; all decode
// failures surface as *DataError carrying that offset, so a corrupt file can
// be diagnosed down to the byte.
package wire
