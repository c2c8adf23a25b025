package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/replay"
	"github.com/roach88/lockstep/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DBPath    string
	DumpDir   string
	KeepBytes int
}

// ReplayDesync is one sync record the playback disagreed with.
type ReplayDesync struct {
	Time     int32  `json:"time"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
	DumpPath string `json:"dump_path,omitempty"`
}

// ReplayResult is the outcome of playing a replay file.
type ReplayResult struct {
	Path      string         `json:"path"`
	GameID    string         `json:"game_id"`
	OK        bool           `json:"ok"`
	Ended     bool           `json:"ended"`
	EndTime   int32          `json:"end_time"`
	Commands  int            `json:"commands"`
	Checks    int            `json:"checks"`
	FinalHash string         `json:"final_hash"`
	Desyncs   []ReplayDesync `json:"desyncs"`
	RunID     int64          `json:"run_id,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Play back a replay file and verify its sync records",
		Long: `Restore the game stored in a replay file and re-execute it,
comparing the sync hash at every sync record.

Exit codes:
  0 - Replay reached its end record without a desync
  1 - Desync detected or the end record is missing
  2 - Command error (unreadable file, etc.)

Examples:
  lockstep replay game.lsrp
  lockstep replay game.lsrp --dump-dir ./dumps
  lockstep replay game.lsrp --db games.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database to store the run in")
	cmd.Flags().StringVar(&opts.DumpDir, "dump-dir", "", "write a sync-stream dump here on desync")
	cmd.Flags().IntVar(&opts.KeepBytes, "keep-bytes", 64*1024, "sync-stream bytes kept for dumps")
	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rr, err := replay.Open(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeReplay, "failed to open replay", err)
	}
	defer rr.Close()

	st, err := openStore(opts.DBPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	if st != nil {
		defer st.Close()
	}

	gameOpts := []logic.Option{logic.WithLogger(newLogger(cmd, opts.RootOptions, slog.LevelWarn))}
	if opts.DumpDir != "" && opts.KeepBytes > 0 {
		gameOpts = append(gameOpts, logic.WithSyncDump(opts.DumpDir, opts.KeepBytes))
	}
	res, g, err := replay.Play(ctx, rr, gameOpts...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeReplay, "replay playback failed", err)
	}

	out := ReplayResult{
		Path:      path,
		GameID:    res.GameID.String(),
		OK:        res.OK(),
		Ended:     res.Ended,
		EndTime:   int32(res.EndTime),
		Commands:  res.Commands,
		Checks:    len(res.Checks),
		FinalHash: res.FinalHash.String(),
		Desyncs:   make([]ReplayDesync, 0, len(res.Desyncs)),
	}
	for _, d := range res.Desyncs {
		out.Desyncs = append(out.Desyncs, ReplayDesync{
			Time:     int32(d.Time),
			Expected: d.Expected.String(),
			Got:      d.Got.String(),
			DumpPath: d.DumpPath,
		})
	}

	if st != nil {
		players := make([]string, 0, len(g.Players()))
		for _, p := range g.Players() {
			players = append(players, p.Name())
		}
		// The seed is not part of the savegame; an unknown game is stored
		// with seed 0.
		rec := store.Game{ID: res.GameID, Players: players, StartTime: int32(rr.Header().StartTime)}
		if err := st.WriteGame(ctx, rec); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store game", err)
		}
		for _, d := range res.Desyncs {
			if err := st.WriteDesync(ctx, store.Desync{
				GameID:   res.GameID,
				Time:     int32(d.Time),
				Peer:     d.Peer,
				Expected: d.Expected,
				Got:      d.Got,
				DumpPath: d.DumpPath,
			}); err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "failed to store desync", err)
			}
		}
		out.RunID, err = st.WriteReplayRun(ctx, store.ReplayRun{
			GameID:     res.GameID,
			ReplayPath: path,
			EndTime:    int32(res.EndTime),
			Commands:   res.Commands,
			Checks:     len(res.Checks),
			Desyncs:    len(res.Desyncs),
			FinalHash:  res.FinalHash,
			Ended:      res.Ended,
		})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store replay run", err)
		}
	}

	if err := f.Emit(out, func(w io.Writer) { writeReplayText(w, out) }); err != nil {
		return err
	}
	switch {
	case len(out.Desyncs) > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d desyncs, first at %d", len(out.Desyncs), out.Desyncs[0].Time))
	case !out.Ended:
		return NewExitError(ExitFailure, "replay has no end record")
	}
	return nil
}

func writeReplayText(w io.Writer, r ReplayResult) {
	status := "OK"
	if !r.OK {
		status = "FAILED"
	}
	fmt.Fprintf(w, "Replay %s: %s\n", r.Path, status)
	fmt.Fprintf(w, "  game:     %s\n", r.GameID)
	fmt.Fprintf(w, "  end:      %d (ended: %t)\n", r.EndTime, r.Ended)
	fmt.Fprintf(w, "  commands: %d\n", r.Commands)
	fmt.Fprintf(w, "  checks:   %d\n", r.Checks)
	fmt.Fprintf(w, "  hash:     %s\n", r.FinalHash)
	for _, d := range r.Desyncs {
		fmt.Fprintf(w, "  desync at %d: expected %s, got %s\n", d.Time, d.Expected, d.Got)
		if d.DumpPath != "" {
			fmt.Fprintf(w, "    dump: %s\n", d.DumpPath)
		}
	}
}
