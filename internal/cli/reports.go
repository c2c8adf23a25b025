package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/store"
)

// ReportsOptions holds flags for the reports command.
type ReportsOptions struct {
	*RootOptions
	DBPath string
	GameID string
}

// GameSummary is one stored game with its report counts.
type GameSummary struct {
	GameID      string   `json:"game_id"`
	Seed        uint64   `json:"seed"`
	Players     []string `json:"players"`
	StartTime   int32    `json:"start_time"`
	Reports     int      `json:"reports"`
	Failed      int      `json:"failed"`
	ReplayRuns  int      `json:"replay_runs"`
	Desyncs     []Report `json:"desyncs,omitempty"`
	SyncReports []Report `json:"sync_reports,omitempty"`
	Runs        []Run    `json:"runs,omitempty"`
}

// Report is a stored sync report or desync.
type Report struct {
	Time     int32  `json:"time"`
	Peer     string `json:"peer"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
	OK       bool   `json:"ok"`
	DumpPath string `json:"dump_path,omitempty"`
}

// Run is a stored replay verification.
type Run struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	EndTime   int32  `json:"end_time"`
	Commands  int    `json:"commands"`
	Checks    int    `json:"checks"`
	Desyncs   int    `json:"desyncs"`
	Ended     bool   `json:"ended"`
	FinalHash string `json:"final_hash"`
}

// NewReportsCommand creates the reports command.
func NewReportsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List stored games, sync reports and desyncs",
		Long: `List the games in a database with their sync report counts, or
show every report, desync and replay run of one game.

Exit codes:
  0 - No failed reports
  1 - At least one failed sync report or desync
  2 - Command error

Examples:
  lockstep reports --db games.db
  lockstep reports --db games.db --game 0192f0c8-7a51-7b3e-9c1d-2e3f4a5b6c7d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database path (required)")
	cmd.Flags().StringVar(&opts.GameID, "game", "", "show one game in detail")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runReports(opts *ReportsOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	var games []store.Game
	detail := opts.GameID != ""
	if detail {
		id, err := uuid.Parse(opts.GameID)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "invalid game id", err)
		}
		g, err := st.ReadGame(ctx, id)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to read game", err)
		}
		games = []store.Game{g}
	} else {
		games, err = st.ReadGames(ctx)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to read games", err)
		}
	}

	summaries := make([]GameSummary, 0, len(games))
	failed := 0
	for _, g := range games {
		s, err := summarizeGame(ctx, st, g, detail)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to read reports", err)
		}
		failed += s.Failed
		summaries = append(summaries, s)
	}

	if err := f.Emit(summaries, func(w io.Writer) { writeReportsText(w, summaries) }); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d failed sync reports", failed))
	}
	return nil
}

func summarizeGame(ctx context.Context, st *store.Store, g store.Game, detail bool) (GameSummary, error) {
	s := GameSummary{
		GameID:    g.ID.String(),
		Seed:      g.Seed,
		Players:   g.Players,
		StartTime: g.StartTime,
	}
	reports, err := st.ReadSyncReports(ctx, g.ID)
	if err != nil {
		return s, err
	}
	desyncs, err := st.ReadDesyncs(ctx, g.ID)
	if err != nil {
		return s, err
	}
	runs, err := st.ReadReplayRuns(ctx, g.ID)
	if err != nil {
		return s, err
	}
	s.Reports = len(reports)
	s.ReplayRuns = len(runs)
	// Replay desyncs have no sync report; count every stored desync.
	s.Failed = len(desyncs)
	if !detail {
		return s, nil
	}

	for _, r := range reports {
		s.SyncReports = append(s.SyncReports, Report{
			Time: r.Time, Peer: r.Peer, Expected: r.Expected.String(), Got: r.Got.String(), OK: r.OK(),
		})
	}
	for _, d := range desyncs {
		s.Desyncs = append(s.Desyncs, Report{
			Time: d.Time, Peer: d.Peer, Expected: d.Expected.String(), Got: d.Got.String(), DumpPath: d.DumpPath,
		})
	}
	for _, r := range runs {
		s.Runs = append(s.Runs, Run{
			ID: r.ID, Path: r.ReplayPath, EndTime: r.EndTime, Commands: r.Commands, Checks: r.Checks,
			Desyncs: r.Desyncs, Ended: r.Ended, FinalHash: r.FinalHash.String(),
		})
	}
	return s, nil
}

func writeReportsText(w io.Writer, games []GameSummary) {
	if len(games) == 0 {
		fmt.Fprintln(w, "No games stored.")
		return
	}
	for _, g := range games {
		fmt.Fprintf(w, "%s  seed=%d players=%s reports=%d failed=%d replay_runs=%d\n",
			g.GameID, g.Seed, strings.Join(g.Players, ","), g.Reports, g.Failed, g.ReplayRuns)
		for _, r := range g.SyncReports {
			mark := "ok"
			if !r.OK {
				mark = "MISMATCH"
			}
			fmt.Fprintf(w, "  report %8d %-12s %s %s\n", r.Time, r.Peer, r.Got, mark)
		}
		for _, d := range g.Desyncs {
			fmt.Fprintf(w, "  desync %8d %-12s expected %s, got %s\n", d.Time, d.Peer, d.Expected, d.Got)
			if d.DumpPath != "" {
				fmt.Fprintf(w, "    dump: %s\n", d.DumpPath)
			}
		}
		for _, r := range g.Runs {
			fmt.Fprintf(w, "  run #%d %s end=%d commands=%d checks=%d desyncs=%d ended=%t %s\n",
				r.ID, r.Path, r.EndTime, r.Commands, r.Checks, r.Desyncs, r.Ended, r.FinalHash)
		}
	}
}
