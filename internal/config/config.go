// Package config loads game and session settings.
//
// Settings files are YAML. They are checked against the embedded CUE schema
// in settings.cue, which also supplies the defaults for omitted fields and
// rejects unknown ones.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/netproto"
	"github.com/roach88/lockstep/internal/netsession"
)

//go:embed settings.cue
var schemaSource string

// Settings is a validated settings file.
type Settings struct {
	Seed       uint64     `yaml:"seed" json:"seed"`
	Players    []Player   `yaml:"players" json:"players"`
	Intervals  Intervals  `yaml:"intervals" json:"intervals"`
	Network    Network    `yaml:"network" json:"network"`
	SyncStream SyncStream `yaml:"syncstream" json:"syncstream"`
}

type Player struct {
	Name string `yaml:"name" json:"name"`
}

// Intervals are in milliseconds of game time.
type Intervals struct {
	NetSyncMS    int32 `yaml:"net_sync_ms" json:"net_sync_ms"`
	ReplaySyncMS int32 `yaml:"replay_sync_ms" json:"replay_sync_ms"`
	StatisticsMS int32 `yaml:"statistics_ms" json:"statistics_ms"`
}

// Network configures host and client sessions. FrameMS is wall-clock time;
// the other durations are game time.
type Network struct {
	Listen          string `yaml:"listen" json:"listen"`
	ProtocolVersion uint16 `yaml:"protocol_version" json:"protocol_version"`
	CommandDelayMS  int32  `yaml:"command_delay_ms" json:"command_delay_ms"`
	TimeStepMS      int32  `yaml:"time_step_ms" json:"time_step_ms"`
	FrameMS         int32  `yaml:"frame_ms" json:"frame_ms"`
	MaxLagMS        int32  `yaml:"max_lag_ms" json:"max_lag_ms"`
}

// SyncStream controls the diagnostic dump written on desync. KeepBytes 0
// disables it.
type SyncStream struct {
	DumpDir   string `yaml:"dump_dir" json:"dump_dir"`
	KeepBytes int    `yaml:"keep_bytes" json:"keep_bytes"`
}

// Error is a settings validation failure.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Pos.IsValid() && e.Pos.Filename() != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

// Default returns the settings used when no file is given.
func Default() Settings {
	s, err := Parse([]byte("players:\n  - name: host\n  - name: guest\n"))
	if err != nil {
		panic(fmt.Sprintf("config: default settings do not validate: %v", err))
	}
	return s
}

// Load reads and validates a settings file.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates YAML settings and fills in defaults.
func Parse(data []byte) (Settings, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("settings.cue"))
	if err := schema.Err(); err != nil {
		return Settings{}, fmt.Errorf("compile settings schema: %w", err)
	}
	v := schema.FillPath(cue.ParsePath("data"), raw).LookupPath(cue.ParsePath("settings"))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Settings{}, formatCUEError(err)
	}

	var s Settings
	if err := v.Decode(&s); err != nil {
		return Settings{}, formatCUEError(err)
	}
	if s.Network.ProtocolVersion != netproto.ProtocolVersion {
		return Settings{}, &Error{
			Path:    "network.protocol_version",
			Message: fmt.Sprintf("unsupported protocol version %d (this build speaks %d)", s.Network.ProtocolVersion, netproto.ProtocolVersion),
		}
	}
	return s, nil
}

// formatCUEError keeps the first error with its path and position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		e.Path = strings.Join(path, ".")
	}
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		e.Pos = pos[0]
	}
	return e
}

// Write stores the settings as YAML.
func (s Settings) Write(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// PlayerNames lists the player names in seat order.
func (s Settings) PlayerNames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return names
}

// Setup returns the game setup described by the settings.
func (s Settings) Setup() logic.Setup {
	return logic.Setup{
		Seed:    s.Seed,
		Players: s.PlayerNames(),
		Intervals: logic.Intervals{
			NetSync:    logic.Duration(s.Intervals.NetSyncMS),
			ReplaySync: logic.Duration(s.Intervals.ReplaySyncMS),
			Statistics: logic.Duration(s.Intervals.StatisticsMS),
		},
	}
}

// GameOptions returns the game options implied by the settings.
func (s Settings) GameOptions() []logic.Option {
	if s.SyncStream.DumpDir == "" || s.SyncStream.KeepBytes == 0 {
		return nil
	}
	return []logic.Option{logic.WithSyncDump(s.SyncStream.DumpDir, s.SyncStream.KeepBytes)}
}

// Session returns the network session timing.
func (s Settings) Session() netsession.Config {
	return netsession.Config{
		CommandDelay: logic.Duration(s.Network.CommandDelayMS),
		TimeStep:     logic.Duration(s.Network.TimeStepMS),
		Frame:        time.Duration(s.Network.FrameMS) * time.Millisecond,
		MaxLag:       logic.Duration(s.Network.MaxLagMS),
	}
}
