package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/logic"
)

const (
	scenariosDir = "../harness/testdata/scenarios"
	goldenDir    = "../harness/testdata/golden"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeData unmarshals the data of a JSON success response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockstep.yaml")

	out, err := execute(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	settings, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), settings)

	_, err = execute(t, "init-config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "init-config", path, "--force")
	require.NoError(t, err)
}

func TestScenarioCommand_Passes(t *testing.T) {
	out, err := execute(t, "scenario", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ two_builders")
	assert.Contains(t, out, "✓ stale_references")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestScenarioCommand_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "scenario", scenariosDir, "--filter", "two_*")
	require.NoError(t, err, out)

	var summary ScenarioSummary
	decodeData(t, out, &summary)
	require.Len(t, summary.Scenarios, 1)
	assert.Equal(t, "two_builders", summary.Scenarios[0].Name)
	assert.True(t, summary.Scenarios[0].Pass)
	assert.Len(t, summary.Scenarios[0].FinalHash, 32)
}

func TestScenarioCommand_NoMatches(t *testing.T) {
	out, err := execute(t, "scenario", scenariosDir, "--filter", "nothing_*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestScenarioCommand_UpdateWritesTimeline(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(scenariosDir, "two_builders.yaml")

	_, err := execute(t, "scenario", file, "--golden", dir, "--update")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "two_builders.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(goldenDir, "two_builders.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestScenarioCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two_builders.golden"), []byte("end 0\n"), 0o644))

	out, err := execute(t, "scenario", filepath.Join(scenariosDir, "two_builders.yaml"), "--golden", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ two_builders")
	assert.Contains(t, out, "does not match golden file")
}

func TestScenarioCommand_MissingPath(t *testing.T) {
	_, err := execute(t, "scenario", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecordReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	replayPath := filepath.Join(dir, "two_builders.lsrp")
	dbPath := filepath.Join(dir, "games.db")

	out, err := execute(t, "--format", "json", "record", filepath.Join(scenariosDir, "two_builders.yaml"),
		"-o", replayPath, "--db", dbPath)
	require.NoError(t, err, out)
	var rec RecordResult
	decodeData(t, out, &rec)
	assert.Equal(t, int32(1000), rec.EndTime)
	assert.Equal(t, 4, rec.Commands)
	assert.Equal(t, 4, rec.Syncs)

	out, err = execute(t, "--format", "json", "replay", replayPath, "--db", dbPath)
	require.NoError(t, err, out)
	var played ReplayResult
	decodeData(t, out, &played)
	assert.True(t, played.OK)
	assert.True(t, played.Ended)
	assert.Equal(t, rec.GameID, played.GameID)
	assert.Equal(t, int32(1000), played.EndTime)
	assert.Equal(t, 4, played.Commands)
	assert.Equal(t, 4, played.Checks)
	assert.Equal(t, rec.FinalHash, played.FinalHash)
	assert.Empty(t, played.Desyncs)
	assert.Positive(t, played.RunID)

	out, err = execute(t, "--format", "json", "inspect", replayPath)
	require.NoError(t, err, out)
	var inspected InspectResult
	decodeData(t, out, &inspected)
	assert.Equal(t, rec.GameID, inspected.GameID)
	assert.Equal(t, uint16(1), inspected.Version)
	require.Len(t, inspected.Records, 9)
	assert.Equal(t, InspectRecord{Type: "command", Time: 100, Command: "p1 #1 build building=quarry x=3 y=4"}, inspected.Records[0])
	assert.Equal(t, "sync", inspected.Records[2].Type)
	assert.Len(t, inspected.Records[2].Hash, 32)
	assert.Equal(t, InspectRecord{Type: "end", Time: 1000}, inspected.Records[8])

	out, err = execute(t, "--format", "json", "reports", "--db", dbPath)
	require.NoError(t, err, out)
	var games []GameSummary
	decodeData(t, out, &games)
	require.Len(t, games, 1)
	assert.Equal(t, rec.GameID, games[0].GameID)
	assert.Equal(t, uint64(7), games[0].Seed)
	assert.Equal(t, []string{"alice", "bob"}, games[0].Players)
	assert.Equal(t, 1, games[0].ReplayRuns)
	assert.Zero(t, games[0].Failed)

	out, err = execute(t, "reports", "--db", dbPath, "--game", rec.GameID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "run #")
	assert.Contains(t, out, "ended=true")
}

func TestReplayCommand_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lsrp")
	require.NoError(t, os.WriteFile(path, []byte("not a replay"), 0o644))

	_, err := execute(t, "replay", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "inspect", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReportsCommand_UnknownGame(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "games.db")
	out, err := execute(t, "reports", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No games stored.")

	_, err = execute(t, "reports", "--db", dbPath, "--game", "0192f0c8-0000-7000-8000-000000000001")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "reports", "--db", dbPath, "--game", "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJoinCommand_Unreachable(t *testing.T) {
	_, err := execute(t, "join", "ws://127.0.0.1:1/", "--name", "bob")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHostCommand_InvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("players: []\n"), 0o644))

	_, err := execute(t, "host", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseCommandLine(t *testing.T) {
	cmd, err := ParseCommandLine("build building=quarry x=3 y=-4", 2)
	require.NoError(t, err)
	assert.Equal(t, logic.KindBuild, cmd.Kind())
	assert.Equal(t, logic.PlayerNumber(2), cmd.Sender())
	assert.Equal(t, "p2 #0 build building=quarry x=3 y=-4", logic.FormatPlayerCommand(cmd))

	cmd, err = ParseCommandLine(`ship_name serial=4 name="Sea Wolf"`, 1)
	require.NoError(t, err)
	assert.Equal(t, `p1 #0 ship_name name="Sea Wolf" serial=4`, logic.FormatPlayerCommand(cmd))
}

func TestParseCommandLine_Errors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"", "empty command"},
		{"launch_rockets", "unknown command"},
		{"bulldoze 5", "not key=value"},
		{`ship_name serial=4 name="Sea Wolf`, "unterminated quote"},
		{"bulldoze serial=1 extra=2", "unknown arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommandLine(tt.line, 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
