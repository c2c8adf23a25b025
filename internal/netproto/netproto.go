// Package netproto encodes the messages exchanged by a network session.
//
// Every message is one binary websocket frame: a u8 code followed by the
// message body in the wire encoding. Player commands travel as the same
// self-describing records used in savegames and replays.
package netproto

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

// ProtocolVersion must match between host and client. Bump it whenever a
// message layout or the command record format changes.
const ProtocolVersion uint16 = 1

// Code identifies a message type. Values are stable.
type Code uint8

const (
	CodeDisconnect    Code = 1
	CodeHello         Code = 2
	CodeWelcome       Code = 4
	CodeTime          Code = 5
	CodePlayerCommand Code = 6
	CodeSyncRequest   Code = 7
	CodeSyncReport    Code = 8
)

var codeNames = map[Code]string{
	CodeDisconnect:    "DISCONNECT",
	CodeHello:         "HELLO",
	CodeWelcome:       "WELCOME",
	CodeTime:          "TIME",
	CodePlayerCommand: "PLAYERCOMMAND",
	CodeSyncRequest:   "SYNCREQUEST",
	CodeSyncReport:    "SYNCREPORT",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
}

// Disconnect reasons sent to peers.
const (
	ReasonWrongVersion = "WRONG_VERSION"
	ReasonGameFull     = "GAME_FULL"
	ReasonProtocol     = "PROTOCOL_ERROR"
	ReasonServerLeft   = "SERVER_LEFT"
	ReasonClientLeft   = "CLIENT_LEFT"
)

// Message is implemented by every message type.
type Message interface {
	Code() Code
	encode(w *wire.Writer) error
}

// Disconnect announces that the sender is closing the session.
type Disconnect struct {
	Reason string
}

// Hello is the first message a client sends.
type Hello struct {
	Version uint16
	Name    string
}

// Welcome seats a client. Savegame holds the host's game at Time; the client
// loads it and from then on receives every player command.
type Welcome struct {
	Player   logic.PlayerNumber
	GameID   uuid.UUID
	Time     logic.Time
	Savegame []byte
}

// Time commits network time: peers may simulate up to Time.
type Time struct {
	Time logic.Time
}

// PlayerCommand carries a player command. From a client it is a request and
// its duetime and cmdserial are ignored; from the host both are final.
type PlayerCommand struct {
	Command logic.PlayerCommand
}

// SyncRequest asks a client to report its sync hash at Time.
type SyncRequest struct {
	Time logic.Time
}

// SyncReport answers a SyncRequest.
type SyncReport struct {
	Time logic.Time
	Sum  syncsum.Checksum
}

func (Disconnect) Code() Code    { return CodeDisconnect }
func (Hello) Code() Code         { return CodeHello }
func (Welcome) Code() Code       { return CodeWelcome }
func (Time) Code() Code          { return CodeTime }
func (PlayerCommand) Code() Code { return CodePlayerCommand }
func (SyncRequest) Code() Code   { return CodeSyncRequest }
func (SyncReport) Code() Code    { return CodeSyncReport }

func (m Disconnect) encode(w *wire.Writer) error {
	w.String(m.Reason)
	return nil
}

func (m Hello) encode(w *wire.Writer) error {
	w.U16(m.Version)
	w.String(m.Name)
	return nil
}

func (m Welcome) encode(w *wire.Writer) error {
	w.U8(uint8(m.Player))
	w.Raw(m.GameID[:])
	w.I32(int32(m.Time))
	w.Blob(m.Savegame)
	return nil
}

func (m Time) encode(w *wire.Writer) error {
	w.I32(int32(m.Time))
	return nil
}

func (m PlayerCommand) encode(w *wire.Writer) error {
	w.I32(int32(m.Command.DueTime()))
	return logic.EncodeCommand(w, m.Command)
}

func (m SyncRequest) encode(w *wire.Writer) error {
	w.I32(int32(m.Time))
	return nil
}

func (m SyncReport) encode(w *wire.Writer) error {
	w.I32(int32(m.Time))
	w.Raw(m.Sum[:])
	return nil
}

// Encode serializes m into a frame.
func Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	w.U8(uint8(m.Code()))
	if err := m.encode(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Code(), err)
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Code(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses one frame. Trailing bytes are an error.
func Decode(frame []byte) (Message, error) {
	r := wire.NewReader(bytes.NewReader(frame))
	code := Code(r.U8())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var m Message
	switch code {
	case CodeDisconnect:
		m = Disconnect{Reason: r.String()}
	case CodeHello:
		m = Hello{Version: r.U16(), Name: r.String()}
	case CodeWelcome:
		var msg Welcome
		msg.Player = logic.PlayerNumber(r.U8())
		r.Raw(msg.GameID[:])
		msg.Time = logic.Time(r.I32())
		msg.Savegame = r.Blob()
		m = msg
	case CodeTime:
		m = Time{Time: logic.Time(r.I32())}
	case CodePlayerCommand:
		due := logic.Time(r.I32())
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", code, err)
		}
		cmd, err := logic.DecodePlayerCommand(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", code, err)
		}
		cmd.SetDueTime(due)
		m = PlayerCommand{Command: cmd}
	case CodeSyncRequest:
		m = SyncRequest{Time: logic.Time(r.I32())}
	case CodeSyncReport:
		var msg SyncReport
		msg.Time = logic.Time(r.I32())
		r.Raw(msg.Sum[:])
		m = msg
	default:
		return nil, fmt.Errorf("decode message: unknown code %s", code)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", code, err)
	}
	if !r.AtEOF() {
		return nil, fmt.Errorf("decode %s: trailing data after offset %d", code, r.Offset())
	}
	return m, nil
}
