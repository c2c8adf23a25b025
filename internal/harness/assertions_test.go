package harness

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/logic"
)

func newGame(t *testing.T) *logic.Game {
	t.Helper()
	g, err := logic.NewGame(logic.Setup{Seed: 1, Players: []string{"alice"}},
		logic.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return g
}

func i64(v int64) *int64 { return &v }

func TestEvaluateAssertions_Pass(t *testing.T) {
	g := newGame(t)
	errs := EvaluateAssertions(g, []Assertion{
		{Type: AssertObjectCount, Player: 1, Object: "building", Count: i64(0)},
		{Type: AssertStock, Player: 1, Ware: "log", Count: i64(20)},
		{Type: AssertStock, Player: 1, Ware: "granite", Min: i64(1), Max: i64(10)},
		{Type: AssertBuildingAt, X: 1, Y: 2},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	g := newGame(t)
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"count", Assertion{Type: AssertObjectCount, Player: 1, Object: "ship", Count: i64(2)}, "player 1 owns 2 ship(s)"},
		{"exact stock", Assertion{Type: AssertStock, Player: 1, Ware: "fish", Count: i64(6)}, "fish stock = 6"},
		{"min stock", Assertion{Type: AssertStock, Player: 1, Ware: "planks", Min: i64(1)}, "planks stock >= 1"},
		{"max stock", Assertion{Type: AssertStock, Player: 1, Ware: "log", Max: i64(3)}, "log stock <= 3"},
		{"missing player", Assertion{Type: AssertStock, Player: 4, Ware: "log", Count: i64(0)}, "no such player"},
		{"building", Assertion{Type: AssertBuildingAt, X: 1, Y: 2, Building: "sawmill"}, "sawmill at (1,2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(g, []Assertion{tt.a})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]")
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertStock, Expected: "a", Actual: "b"}
	assert.Equal(t, "Assertion failed: stock\n  Expected: a\n  Actual: b", err.Error())
}
