package logic

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Player commands have a textual form used by scenarios and the inspect
// output: an identifier plus string arguments.

var commandIDs = map[string]Kind{
	"build":                      KindBuild,
	"stop_building":              KindStopBuilding,
	"enhance_building":           KindEnhanceBuilding,
	"bulldoze":                   KindBulldoze,
	"set_ware_target_quantity":   KindSetWareTargetQuantity,
	"reset_ware_target_quantity": KindResetWareTargetQuantity,
	"set_input_max_fill":         KindSetInputMaxFill,
	"dismantle_building":         KindDismantleBuilding,
	"ship_scout_direction":       KindShipScoutDirection,
	"ship_sink":                  KindShipSink,
	"ship_cancel_expedition":     KindShipCancelExpedition,
	"start_expedition":           KindStartExpedition,
	"ship_name":                  KindShipName,
}

// CommandIDs returns the identifiers accepted by NewPlayerCommand, sorted.
func CommandIDs() []string {
	return slices.Sorted(maps.Keys(commandIDs))
}

// CommandID returns the identifier of k, or "" for non-player kinds.
func CommandID(k Kind) string {
	for id, kind := range commandIDs {
		if kind == k {
			return id
		}
	}
	return ""
}

// NewPlayerCommand builds a player command from its identifier and string
// arguments. Every argument must be consumed; unknown ones are an error.
func NewPlayerCommand(id string, due Time, sender PlayerNumber, args map[string]string) (PlayerCommand, error) {
	kind, ok := commandIDs[id]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", id)
	}
	a := &argParser{args: args, used: make(map[string]bool)}
	var cmd PlayerCommand
	switch kind {
	case KindBuild:
		pos := Coords{X: a.int16("x"), Y: a.int16("y")}
		cmd = NewCmdBuild(due, sender, pos, a.building("building"))
	case KindStopBuilding:
		cmd = NewCmdStopBuilding(due, sender, a.serial("serial"))
	case KindEnhanceBuilding:
		cmd = NewCmdEnhanceBuilding(due, sender, a.serial("serial"), a.optBool("keep_wares"))
	case KindBulldoze:
		cmd = NewCmdBulldoze(due, sender, a.serial("serial"))
	case KindSetWareTargetQuantity:
		cmd = NewCmdSetWareTargetQuantity(due, sender, a.ware("ware"), a.uint32("quantity"))
	case KindResetWareTargetQuantity:
		cmd = NewCmdResetWareTargetQuantity(due, sender, a.ware("ware"))
	case KindSetInputMaxFill:
		cmd = NewCmdSetInputMaxFill(due, sender, a.serial("serial"), a.ware("ware"), a.uint32("max"))
	case KindDismantleBuilding:
		cmd = NewCmdDismantleBuilding(due, sender, a.serial("serial"), a.optBool("keep_wares"))
	case KindShipScoutDirection:
		cmd = NewCmdShipScoutDirection(due, sender, a.serial("serial"), a.direction("direction"))
	case KindShipSink:
		cmd = NewCmdShipSink(due, sender, a.serial("serial"))
	case KindShipCancelExpedition:
		cmd = NewCmdShipCancelExpedition(due, sender, a.serial("serial"))
	case KindStartExpedition:
		cmd = NewCmdStartExpedition(due, sender, a.serial("serial"))
	case KindShipName:
		cmd = NewCmdShipName(due, sender, a.serial("serial"), a.str("name"))
	}
	if err := a.finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return cmd, nil
}

// CommandArgs returns the textual arguments of cmd.
func CommandArgs(cmd GameLogicCommand) map[string]string {
	return cmd.args()
}

// FormatPlayerCommand renders cmd on one line, e.g.
// "p1 #3 build building=quarry x=3 y=4". Arguments are sorted by name.
func FormatPlayerCommand(cmd PlayerCommand) string {
	var b strings.Builder
	fmt.Fprintf(&b, "p%d #%d ", cmd.Sender(), cmd.CmdSerial())
	if id := CommandID(cmd.Kind()); id != "" {
		b.WriteString(id)
	} else {
		b.WriteString(cmd.Kind().String())
	}
	args := cmd.args()
	for _, k := range slices.Sorted(maps.Keys(args)) {
		v := args[k]
		if v == "" || strings.ContainsAny(v, " =\"") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}

type argParser struct {
	args map[string]string
	used map[string]bool
	err  error
}

func (a *argParser) fail(format string, args ...any) {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
}

func (a *argParser) lookup(key string, required bool) (string, bool) {
	a.used[key] = true
	v, ok := a.args[key]
	if !ok && required {
		a.fail("missing argument %q", key)
	}
	return v, ok
}

func (a *argParser) str(key string) string {
	v, _ := a.lookup(key, true)
	return v
}

func (a *argParser) int16(key string) int16 {
	v, ok := a.lookup(key, true)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 16)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return int16(n)
}

func (a *argParser) uint32(key string) uint32 {
	v, ok := a.lookup(key, true)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return uint32(n)
}

func (a *argParser) serial(key string) Serial {
	return Serial(a.uint32(key))
}

func (a *argParser) optBool(key string) bool {
	v, ok := a.lookup(key, false)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return b
}

func (a *argParser) ware(key string) Ware {
	v, ok := a.lookup(key, true)
	if !ok {
		return 0
	}
	w, err := ParseWare(v)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return w
}

func (a *argParser) building(key string) BuildingType {
	v, ok := a.lookup(key, true)
	if !ok {
		return BuildingNone
	}
	t, err := ParseBuildingType(v)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return t
}

func (a *argParser) direction(key string) Direction {
	v, ok := a.lookup(key, true)
	if !ok {
		return DirNone
	}
	d, err := ParseDirection(v)
	if err != nil {
		a.fail("argument %q: %w", key, err)
	}
	return d
}

func (a *argParser) finish() error {
	if a.err != nil {
		return a.err
	}
	var extra []string
	for k := range a.args {
		if !a.used[k] {
			extra = append(extra, strconv.Quote(k))
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return fmt.Errorf("unknown arguments %s", strings.Join(extra, ", "))
	}
	return nil
}
