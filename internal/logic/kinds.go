package logic

import "fmt"

// Kind identifies a command type in savegames, replays and network messages.
//
// Values are persisted and sent over the wire. They must never be renumbered
// or reused: removed commands leave permanent gaps (see reservedKinds).
type Kind uint8

const (
	KindNone Kind = 0

	// Player commands.
	KindBuild                   Kind = 1
	KindStopBuilding            Kind = 5
	KindEnhanceBuilding         Kind = 6
	KindBulldoze                Kind = 7
	KindSetWareTargetQuantity   Kind = 13
	KindResetWareTargetQuantity Kind = 14
	KindSetInputMaxFill         Kind = 18
	KindDismantleBuilding       Kind = 24
	KindShipScoutDirection      Kind = 28
	KindShipSink                Kind = 31
	KindShipCancelExpedition    Kind = 32
	KindStartExpedition         Kind = 33
	KindShipName                Kind = 37

	// Game-logic commands scheduled by the simulation itself.
	KindDestroyMapObject    Kind = 124
	KindAct                 Kind = 125
	KindCalculateStatistics Kind = 129

	// Sync probes. Never saved, never sent.
	KindNetCheckSync    Kind = 132
	KindReplaySyncWrite Kind = 133
	KindReplaySyncRead  Kind = 134
	KindReplayEnd       Kind = 135
)

// reservedKinds lists values that belonged to removed commands.
var reservedKinds = map[Kind]string{
	2:   "build flag",
	3:   "build road",
	4:   "flag action",
	8:   "change training options",
	9:   "drop soldier",
	10:  "change soldier capacity",
	11:  "enemy flag action",
	12:  "set ware priority",
	15:  "set worker target quantity",
	16:  "reset worker target quantity",
	17:  "scripted event",
	19:  "message set status read",
	20:  "message set status archived",
	21:  "set stock policy",
	22:  "evict worker",
	23:  "military site soldier preference",
	25:  "propose trade",
	26:  "accept trade",
	27:  "cancel trade",
	29:  "ship construct port",
	30:  "ship explore island",
	34:  "expedition config",
	35:  "pick starting position",
	36:  "diplomacy",
	126: "incorporate",
	127: "script",
	128: "script coroutine",
	130: "call economy balance",
	131: "delete message",
}

var kindNames = map[Kind]string{
	KindBuild:                   "build",
	KindStopBuilding:            "start/stop building",
	KindEnhanceBuilding:         "enhance building",
	KindBulldoze:                "bulldoze",
	KindSetWareTargetQuantity:   "set ware target quantity",
	KindResetWareTargetQuantity: "reset ware target quantity",
	KindSetInputMaxFill:         "set input max fill",
	KindDismantleBuilding:       "dismantle building",
	KindShipScoutDirection:      "ship scout direction",
	KindShipSink:                "ship sink",
	KindShipCancelExpedition:    "ship cancel expedition",
	KindStartExpedition:         "start expedition",
	KindShipName:                "ship name",
	KindDestroyMapObject:        "destroy map object",
	KindAct:                     "act",
	KindCalculateStatistics:     "calculate statistics",
	KindNetCheckSync:            "net check sync",
	KindReplaySyncWrite:         "replay sync write",
	KindReplaySyncRead:          "replay sync read",
	KindReplayEnd:               "replay end",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	if name, ok := reservedKinds[k]; ok {
		return fmt.Sprintf("reserved(%d: %s)", uint8(k), name)
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Reserved reports whether k is a permanently retired value.
func (k Kind) Reserved() bool {
	_, ok := reservedKinds[k]
	return ok
}
