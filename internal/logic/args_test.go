package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayerCommand(t *testing.T) {
	cmd, err := NewPlayerCommand("build", 500, 2, map[string]string{
		"x": "-3", "y": "4", "building": "quarry",
	})
	require.NoError(t, err)
	b, ok := cmd.(*CmdBuild)
	require.True(t, ok)
	assert.Equal(t, Coords{-3, 4}, b.pos)
	assert.Equal(t, BuildingQuarry, b.building)
	assert.Equal(t, Time(500), cmd.DueTime())
	assert.Equal(t, PlayerNumber(2), cmd.Sender())
	assert.Equal(t, uint32(0), cmd.CmdSerial())

	cmd, err = NewPlayerCommand("dismantle_building", 1, 1, map[string]string{"serial": "9"})
	require.NoError(t, err)
	assert.False(t, cmd.(*CmdDismantleBuilding).keepWares, "keep_wares defaults to false")
}

func TestNewPlayerCommand_ArgsRoundTrip(t *testing.T) {
	for _, cmd := range allPlayerCommands() {
		id := CommandID(cmd.Kind())
		got, err := NewPlayerCommand(id, 0, cmd.Sender(), CommandArgs(cmd))
		require.NoError(t, err, id)
		assert.Equal(t, CommandArgs(cmd), CommandArgs(got), id)
	}
}

func TestNewPlayerCommand_Errors(t *testing.T) {
	tests := []struct {
		id   string
		args map[string]string
		want string
	}{
		{"launch_rocket", nil, `unknown command "launch_rocket"`},
		{"bulldoze", map[string]string{}, `missing argument "serial"`},
		{"bulldoze", map[string]string{"serial": "x"}, `argument "serial"`},
		{"bulldoze", map[string]string{"serial": "1", "force": "yes"}, `unknown arguments "force"`},
		{"set_ware_target_quantity", map[string]string{"ware": "gold", "quantity": "1"}, `unknown ware "gold"`},
		{"build", map[string]string{"x": "1", "y": "99999", "building": "quarry"}, `argument "y"`},
		{"build", map[string]string{"x": "1", "y": "1", "building": "castle"}, `unknown building "castle"`},
		{"ship_scout_direction", map[string]string{"serial": "1", "direction": "up"}, `unknown direction "up"`},
		{"enhance_building", map[string]string{"serial": "1", "keep_wares": "maybe"}, `argument "keep_wares"`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := NewPlayerCommand(tt.id, 0, 1, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCommandIDs_Sorted(t *testing.T) {
	ids := CommandIDs()
	assert.Len(t, ids, 13)
	assert.IsNonDecreasing(t, ids)
	assert.Equal(t, "", CommandID(KindAct))
}

func TestFormatPlayerCommand(t *testing.T) {
	cmd, err := NewPlayerCommand("build", 500, 2, map[string]string{
		"x": "-3", "y": "4", "building": "quarry",
	})
	require.NoError(t, err)
	cmd.SetCmdSerial(17)
	assert.Equal(t, "p2 #17 build building=quarry x=-3 y=4", FormatPlayerCommand(cmd))

	cmd, err = NewPlayerCommand("ship_name", 1, 1, map[string]string{"serial": "4", "name": "Sea Wolf"})
	require.NoError(t, err)
	assert.Equal(t, `p1 #0 ship_name name="Sea Wolf" serial=4`, FormatPlayerCommand(cmd))
}
