package logic

import (
	"bytes"
	"fmt"

	"github.com/roach88/lockstep/internal/wire"
)

// Record layout shared by savegames, replays and network messages:
//
//	u16 packet version
//	u8  kind
//	u8  sender        player commands only
//	u32 cmdserial     player commands only
//	... payload       kind specific
//
// The duetime is not part of the record; the enclosing container carries it.

type codec struct {
	version    uint16
	minVersion uint16
	player     bool
	decode     func(r *wire.Reader, version uint16) GameLogicCommand
}

var codecs = map[Kind]codec{
	KindBuild:                   {version: 1, minVersion: 1, player: true, decode: decodeBuild},
	KindStopBuilding:            {version: 1, minVersion: 1, player: true, decode: decodeStopBuilding},
	KindEnhanceBuilding:         {version: 2, minVersion: 1, player: true, decode: decodeEnhanceBuilding},
	KindBulldoze:                {version: 1, minVersion: 1, player: true, decode: decodeBulldoze},
	KindSetWareTargetQuantity:   {version: 1, minVersion: 1, player: true, decode: decodeSetWareTargetQuantity},
	KindResetWareTargetQuantity: {version: 1, minVersion: 1, player: true, decode: decodeResetWareTargetQuantity},
	KindSetInputMaxFill:         {version: 1, minVersion: 1, player: true, decode: decodeSetInputMaxFill},
	KindDismantleBuilding:       {version: 2, minVersion: 1, player: true, decode: decodeDismantleBuilding},
	KindShipScoutDirection:      {version: 1, minVersion: 1, player: true, decode: decodeShipScoutDirection},
	KindShipSink:                {version: 1, minVersion: 1, player: true, decode: decodeShipSink},
	KindShipCancelExpedition:    {version: 1, minVersion: 1, player: true, decode: decodeShipCancelExpedition},
	KindStartExpedition:         {version: 1, minVersion: 1, player: true, decode: decodeStartExpedition},
	KindShipName:                {version: 1, minVersion: 1, player: true, decode: decodeShipName},
	KindDestroyMapObject:        {version: 1, minVersion: 1, decode: decodeDestroyMapObject},
	KindAct:                     {version: 1, minVersion: 1, decode: decodeAct},
	KindCalculateStatistics:     {version: 1, minVersion: 1, decode: decodeCalculateStatistics},
}

// PacketVersion returns the version EncodeCommand writes for k, or 0 if k
// has no codec.
func PacketVersion(k Kind) uint16 {
	return codecs[k].version
}

// EncodeCommand writes cmd as a self-describing record.
func EncodeCommand(w *wire.Writer, cmd GameLogicCommand) error {
	c, ok := codecs[cmd.Kind()]
	if !ok {
		return &UnknownKindError{Kind: cmd.Kind()}
	}
	w.U16(c.version)
	w.U8(uint8(cmd.Kind()))
	if pc, ok := cmd.(PlayerCommand); ok {
		w.U8(uint8(pc.Sender()))
		w.U32(pc.CmdSerial())
	}
	cmd.writePayload(w)
	if err := w.Err(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind(), err)
	}
	return nil
}

// DecodeCommand reads one record written by EncodeCommand. The returned
// command has a zero duetime.
func DecodeCommand(r *wire.Reader) (GameLogicCommand, error) {
	version := r.U16()
	kind := Kind(r.U8())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("command header: %w", err)
	}
	c, ok := codecs[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	if version < c.minVersion || version > c.version {
		return nil, &UnhandledVersionError{Type: kind.String(), Got: version, Want: c.version}
	}

	var sender PlayerNumber
	var serial uint32
	if c.player {
		sender = PlayerNumber(r.U8())
		serial = r.U32()
		if r.Err() == nil && sender == 0 {
			r.Fail("invalid sender 0")
		}
	}
	cmd := c.decode(r, version)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if pc, ok := cmd.(PlayerCommand); ok {
		pc.setSender(sender)
		pc.SetCmdSerial(serial)
	}
	return cmd, nil
}

// DecodePlayerCommand reads a record and requires it to be a player command.
func DecodePlayerCommand(r *wire.Reader) (PlayerCommand, error) {
	cmd, err := DecodeCommand(r)
	if err != nil {
		return nil, err
	}
	pc, ok := cmd.(PlayerCommand)
	if !ok {
		return nil, fmt.Errorf("%s: not a player command", cmd.Kind())
	}
	return pc, nil
}

// MarshalCommand encodes cmd into a new byte slice.
func MarshalCommand(cmd GameLogicCommand) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeCommand(wire.NewWriter(&buf), cmd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalPlayerCommand decodes a record that must span all of p.
func UnmarshalPlayerCommand(p []byte) (PlayerCommand, error) {
	r := wire.NewReader(bytes.NewReader(p))
	pc, err := DecodePlayerCommand(r)
	if err != nil {
		return nil, err
	}
	if !r.AtEOF() {
		return nil, fmt.Errorf("%s: trailing data after record at offset %d", pc.Kind(), r.Offset())
	}
	return pc, nil
}
