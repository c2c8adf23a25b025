package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/testutil"
)

// Scenario is a scripted game.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Seed    uint64   `yaml:"seed"`
	Players []string `yaml:"players"`

	// Until is the game time at which the run ends.
	Until int32 `yaml:"until"`

	// Intervals override the game's sync and statistics spacing.
	Intervals Intervals `yaml:"intervals,omitempty"`

	Commands []CommandStep `yaml:"commands"`

	// Checkpoints are game times at which the sync hash is captured, in
	// increasing order. The hash at Until is always captured.
	Checkpoints []int32 `yaml:"checkpoints,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Intervals are in milliseconds; zero keeps the default.
type Intervals struct {
	ReplaySyncMS int32 `yaml:"replay_sync_ms,omitempty"`
	StatisticsMS int32 `yaml:"statistics_ms,omitempty"`
}

// CommandStep is one player command.
type CommandStep struct {
	// At is the duetime.
	At int32 `yaml:"at"`

	// Player is the sender. Unknown players are allowed; their commands are
	// no-ops.
	Player uint8 `yaml:"player"`

	// Serial is the cmdserial, unique within the scenario.
	Serial uint32 `yaml:"serial"`

	// Do is the command identifier, e.g. "build".
	Do string `yaml:"do"`

	Args map[string]string `yaml:"args,omitempty"`
}

// Assertion checks the final game state.
type Assertion struct {
	// Type is one of object_count, stock, building_at.
	Type string `yaml:"type"`

	Player uint8 `yaml:"player,omitempty"`

	// Object is "building" or "ship" (object_count).
	Object string `yaml:"object,omitempty"`

	// Ware names a ware (stock).
	Ware string `yaml:"ware,omitempty"`

	// Count is the exact expected number. With stock, Min and Max may be
	// given instead.
	Count *int64 `yaml:"count,omitempty"`
	Min   *int64 `yaml:"min,omitempty"`
	Max   *int64 `yaml:"max,omitempty"`

	// X, Y and Building describe a field (building_at). An empty Building
	// expects the field to be free.
	X        int16  `yaml:"x,omitempty"`
	Y        int16  `yaml:"y,omitempty"`
	Building string `yaml:"building,omitempty"`
}

// Assertion type constants.
const (
	AssertObjectCount = "object_count"
	AssertStock       = "stock"
	AssertBuildingAt  = "building_at"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("players list is required and must be non-empty")
	}
	if s.Until <= 0 {
		return fmt.Errorf("until must be positive")
	}

	serials := make(map[uint32]int)
	for i, step := range s.Commands {
		if step.At <= 0 || step.At > s.Until {
			return fmt.Errorf("commands[%d]: at must be in 1..%d", i, s.Until)
		}
		if step.Player == 0 {
			return fmt.Errorf("commands[%d]: player is required", i)
		}
		if step.Serial == 0 {
			return fmt.Errorf("commands[%d]: serial is required", i)
		}
		if j, dup := serials[step.Serial]; dup {
			return fmt.Errorf("commands[%d]: serial %d already used by commands[%d]", i, step.Serial, j)
		}
		serials[step.Serial] = i
		if _, err := step.build(); err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
	}

	if !slices.IsSorted(s.Checkpoints) || len(slices.Compact(slices.Clone(s.Checkpoints))) != len(s.Checkpoints) {
		return fmt.Errorf("checkpoints must be strictly increasing")
	}
	for i, cp := range s.Checkpoints {
		if cp <= 0 || cp > s.Until {
			return fmt.Errorf("checkpoints[%d]: %d outside 1..%d", i, cp, s.Until)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertObjectCount:
		if a.Player == 0 {
			return fmt.Errorf("assertions[%d]: player is required for object_count", index)
		}
		if _, err := parseObjectType(a.Object); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for object_count", index)
		}
	case AssertStock:
		if a.Player == 0 {
			return fmt.Errorf("assertions[%d]: player is required for stock", index)
		}
		if _, err := logic.ParseWare(a.Ware); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count == nil && a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: count, min or max is required for stock", index)
		}
	case AssertBuildingAt:
		if a.Building != "" {
			if _, err := logic.ParseBuildingType(a.Building); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func parseObjectType(s string) (logic.ObjectType, error) {
	switch s {
	case "building":
		return logic.ObjectBuilding, nil
	case "ship":
		return logic.ObjectShip, nil
	}
	return 0, fmt.Errorf("unknown object type %q", s)
}

// build creates a fresh command for the step. Queued commands cannot be
// shared between runs.
func (c CommandStep) build() (logic.PlayerCommand, error) {
	cmd, err := logic.NewPlayerCommand(c.Do, logic.Time(c.At), logic.PlayerNumber(c.Player), c.Args)
	if err != nil {
		return nil, err
	}
	cmd.SetCmdSerial(c.Serial)
	return cmd, nil
}

// GameID is the id every run of the scenario uses.
func (s *Scenario) GameID() uuid.UUID {
	return testutil.GameID("scenario:" + s.Name)
}

// NewGame creates and starts the scenario's game. Attach a replay recorder
// before calling Enqueue, so that the commands are recorded rather than
// saved.
func (s *Scenario) NewGame(opts ...logic.Option) (*logic.Game, error) {
	g, err := logic.NewGame(s.setup(), opts...)
	if err != nil {
		return nil, err
	}
	if err := g.Start(); err != nil {
		return nil, err
	}
	return g, nil
}

// Enqueue queues fresh copies of the scenario's commands on g.
func (s *Scenario) Enqueue(g *logic.Game) error {
	for i, step := range s.Commands {
		cmd, err := step.build()
		if err != nil {
			return fmt.Errorf("commands[%d]: %w", i, err)
		}
		g.Enqueue(cmd)
	}
	return nil
}

func (s *Scenario) setup() logic.Setup {
	return logic.Setup{
		ID:      s.GameID(),
		Seed:    s.Seed,
		Players: s.Players,
		Intervals: logic.Intervals{
			ReplaySync: logic.Duration(s.Intervals.ReplaySyncMS),
			Statistics: logic.Duration(s.Intervals.StatisticsMS),
		},
	}
}
