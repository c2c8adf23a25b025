package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/lockstep/internal/logic"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against g and returns the
// failure messages.
func EvaluateAssertions(g *logic.Game, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(g, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluate(g *logic.Game, a Assertion) error {
	switch a.Type {
	case AssertObjectCount:
		return assertObjectCount(g, a)
	case AssertStock:
		return assertStock(g, a)
	case AssertBuildingAt:
		return assertBuildingAt(g, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertObjectCount(g *logic.Game, a Assertion) error {
	typ, err := parseObjectType(a.Object)
	if err != nil {
		return err
	}
	got := int64(g.Objects().Count(logic.PlayerNumber(a.Player), typ))
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertObjectCount,
			Expected: fmt.Sprintf("player %d owns %d %s(s)", a.Player, *a.Count, a.Object),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertStock(g *logic.Game, a Assertion) error {
	w, err := logic.ParseWare(a.Ware)
	if err != nil {
		return err
	}
	p, ok := g.Player(logic.PlayerNumber(a.Player))
	if !ok {
		return &AssertionError{
			Type:     AssertStock,
			Expected: fmt.Sprintf("player %d", a.Player),
			Actual:   "no such player",
		}
	}
	got := int64(p.Stock(w))
	fail := func(expected string) error {
		return &AssertionError{
			Type:     AssertStock,
			Expected: fmt.Sprintf("player %d %s stock %s", a.Player, a.Ware, expected),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	if a.Count != nil && got != *a.Count {
		return fail(fmt.Sprintf("= %d", *a.Count))
	}
	if a.Min != nil && got < *a.Min {
		return fail(fmt.Sprintf(">= %d", *a.Min))
	}
	if a.Max != nil && got > *a.Max {
		return fail(fmt.Sprintf("<= %d", *a.Max))
	}
	return nil
}

func assertBuildingAt(g *logic.Game, a Assertion) error {
	pos := logic.Coords{X: a.X, Y: a.Y}
	b, ok := g.Objects().BuildingAt(pos)
	actual := "free"
	if ok {
		actual = b.BuildingType().String()
	}
	expected := a.Building
	if expected == "" {
		expected = "free"
	}
	if actual != expected {
		return &AssertionError{
			Type:     AssertBuildingAt,
			Expected: fmt.Sprintf("%s at %s", expected, pos),
			Actual:   actual,
		}
	}
	return nil
}
