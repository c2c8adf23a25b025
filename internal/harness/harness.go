package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/replay"
	"github.com/roach88/lockstep/internal/testutil"
)

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger handed to every game. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness is the test execution engine.
type Harness struct {
	logger *slog.Logger
}

// run is one play-through of a scenario.
type run struct {
	game        *logic.Game
	checkpoints []Checkpoint
	replay      []byte
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Play the scenario while recording a replay
// 2. Play it again without recording; every checkpoint must match
// 3. Play the recording back; every recorded hash and the final hash must match
// 4. Evaluate the assertions against the recorded run's final state
//
// A returned error means the scenario could not be executed at all;
// mismatches and failed assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: testutil.Logger()}
	for _, opt := range opts {
		opt(h)
	}
	return h.Run(context.Background(), scenario)
}

// Run executes scenario. See the package-level Run.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	recorded, err := h.play(scenario, true)
	if err != nil {
		return nil, fmt.Errorf("recorded run: %w", err)
	}
	result.Checkpoints = recorded.checkpoints

	again, err := h.play(scenario, false)
	if err != nil {
		return nil, fmt.Errorf("second run: %w", err)
	}
	for i, cp := range again.checkpoints {
		if want := recorded.checkpoints[i]; cp != want {
			result.AddError(fmt.Sprintf("second run diverged at %d: hash %s, objects %d (recorded run: %s, %d)",
				cp.Time, cp.Hash, cp.Objects, want.Hash, want.Objects))
			break
		}
	}

	if err := h.checkReplay(ctx, recorded, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(recorded.game, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) play(s *Scenario, record bool) (*run, error) {
	g, err := s.NewGame(logic.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}

	var (
		buf bytes.Buffer
		rw  *replay.Writer
	)
	if record {
		if rw, err = replay.NewWriter(&buf, g); err != nil {
			return nil, err
		}
	}
	if err := s.Enqueue(g); err != nil {
		return nil, err
	}

	r := &run{game: g}
	capture := func(t int32) error {
		if err := g.RunUntil(logic.Time(t)); err != nil {
			return fmt.Errorf("run until %d: %w", t, err)
		}
		r.checkpoints = append(r.checkpoints, Checkpoint{
			Time:    t,
			Hash:    g.SyncHash().String(),
			Objects: g.Objects().Len(),
		})
		return nil
	}
	for _, t := range s.Checkpoints {
		if t == s.Until {
			continue
		}
		if err := capture(t); err != nil {
			return nil, err
		}
	}
	if err := capture(s.Until); err != nil {
		return nil, err
	}

	if rw != nil {
		if err := rw.Close(); err != nil {
			return nil, err
		}
		r.replay = buf.Bytes()
	}
	return r, nil
}

// checkReplay plays the recording back and fills in the replay summary and
// timeline.
func (h *Harness) checkReplay(ctx context.Context, recorded *run, result *Result) error {
	rr, err := replay.NewReader(bytes.NewReader(recorded.replay))
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	defer rr.Close()
	res, _, err := replay.Play(ctx, rr, logic.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("play recording: %w", err)
	}
	result.Replay = ReplaySummary{
		Commands:  res.Commands,
		Checks:    len(res.Checks),
		Desyncs:   len(res.Desyncs),
		Ended:     res.Ended,
		FinalHash: res.FinalHash.String(),
	}
	if d, ok := res.FirstDesync(); ok {
		result.AddError(fmt.Sprintf("replay desynced: %s", d))
	}
	if !res.Ended {
		result.AddError("replay did not reach its end record")
	}
	if got, want := result.Replay.FinalHash, result.FinalHash(); got != want {
		result.AddError(fmt.Sprintf("replay final hash %s, recorded run %s", got, want))
	}

	timeline, err := Timeline(recorded.replay)
	if err != nil {
		return err
	}
	result.Timeline = timeline
	return nil
}

// Timeline renders the records of a replay, one line each, without the
// hashes.
func Timeline(data []byte) ([]string, error) {
	rr, err := replay.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	defer rr.Close()

	lines := []string{}
	for rec, err := range rr.Records() {
		if err != nil {
			return nil, err
		}
		switch rec.Type {
		case replay.RecordCommand:
			lines = append(lines, fmt.Sprintf("%-7s %6d %s", rec.Type, rec.Time, logic.FormatPlayerCommand(rec.Command)))
		default:
			lines = append(lines, fmt.Sprintf("%-7s %6d", rec.Type, rec.Time))
		}
	}
	return lines, nil
}
