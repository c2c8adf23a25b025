package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/harness"
	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/replay"
	"github.com/roach88/lockstep/internal/store"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Output string
	DBPath string
}

// RecordResult describes a written replay.
type RecordResult struct {
	Path      string `json:"path"`
	GameID    string `json:"game_id"`
	EndTime   int32  `json:"end_time"`
	Commands  int    `json:"commands"`
	Syncs     int    `json:"syncs"`
	FinalHash string `json:"final_hash"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <scenario.yaml>",
		Short: "Record a scenario to a replay file",
		Long: `Play a scenario's commands in a fresh game and record the replay.

Examples:
  lockstep record ./scenarios/two_builders.yaml -o two_builders.lsrp
  lockstep record ./scenarios/two_builders.yaml -o out.lsrp --db games.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "replay file to write (required)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database to register the game in")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runRecord(opts *RecordOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	logger := newLogger(cmd, opts.RootOptions, slog.LevelWarn)

	s, err := harness.LoadScenario(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, "failed to load scenario", err)
	}
	st, err := openStore(opts.DBPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	if st != nil {
		defer st.Close()
	}

	g, err := s.NewGame(logic.WithLogger(logger))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, "failed to create game", err)
	}
	// The writer must be attached before the commands are queued, or the
	// savegame would already contain them.
	w, err := replay.Create(opts.Output, g)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeReplay, "failed to create replay", err)
	}
	if err := s.Enqueue(g); err != nil {
		_ = w.Close()
		return f.Fail(ExitCommandError, ErrCodeScenario, "failed to queue commands", err)
	}
	if err := g.RunUntil(logic.Time(s.Until)); err != nil {
		_ = w.Close()
		return f.Fail(ExitFailure, ErrCodeGeneric, "game failed", err)
	}
	if err := w.Close(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeReplay, "failed to finish replay", err)
	}

	if st != nil {
		rec := store.Game{ID: g.ID(), Seed: s.Seed, Players: s.Players}
		if err := st.WriteGame(commandContext(cmd), rec); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store game", err)
		}
	}

	res := RecordResult{
		Path:      opts.Output,
		GameID:    g.ID().String(),
		EndTime:   int32(g.Time()),
		Commands:  w.Commands(),
		Syncs:     w.Syncs(),
		FinalHash: g.SyncHash().String(),
	}
	return f.Emit(res, func(out io.Writer) {
		fmt.Fprintf(out, "Recorded %s\n", res.Path)
		fmt.Fprintf(out, "  game:     %s\n", res.GameID)
		fmt.Fprintf(out, "  end:      %d\n", res.EndTime)
		fmt.Fprintf(out, "  commands: %d\n", res.Commands)
		fmt.Fprintf(out, "  syncs:    %d\n", res.Syncs)
		fmt.Fprintf(out, "  hash:     %s\n", res.FinalHash)
	})
}
