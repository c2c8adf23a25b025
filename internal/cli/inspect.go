package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/replay"
)

// InspectRecord is one replay record in printable form.
type InspectRecord struct {
	Type    string `json:"type"`
	Time    int32  `json:"time"`
	Command string `json:"command,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

// InspectResult describes a replay file without playing it.
type InspectResult struct {
	Path          string          `json:"path"`
	Version       uint16          `json:"version"`
	GameID        string          `json:"game_id"`
	StartTime     int32           `json:"start_time"`
	SavegameBytes int             `json:"savegame_bytes"`
	Records       []InspectRecord `json:"records"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the header and records of a replay file",
		Long: `Print a replay file's header and every record after it.

Examples:
  lockstep inspect game.lsrp
  lockstep inspect game.lsrp --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	rr, err := replay.Open(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeReplay, "failed to open replay", err)
	}
	defer rr.Close()

	h := rr.Header()
	res := InspectResult{
		Path:          path,
		Version:       h.Version,
		GameID:        h.GameID.String(),
		StartTime:     int32(h.StartTime),
		SavegameBytes: len(rr.Savegame()),
		Records:       []InspectRecord{},
	}
	for rec, err := range rr.Records() {
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeReplay, "failed to read replay", err)
		}
		ir := InspectRecord{Type: rec.Type.String(), Time: int32(rec.Time)}
		switch rec.Type {
		case replay.RecordCommand:
			ir.Command = logic.FormatPlayerCommand(rec.Command)
		case replay.RecordSync:
			ir.Hash = rec.Sync.String()
		}
		res.Records = append(res.Records, ir)
	}

	return f.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Replay %s (format %d)\n", res.Path, res.Version)
		fmt.Fprintf(w, "  game:     %s\n", res.GameID)
		fmt.Fprintf(w, "  start:    %d\n", res.StartTime)
		fmt.Fprintf(w, "  savegame: %d bytes\n", res.SavegameBytes)
		for _, r := range res.Records {
			switch {
			case r.Command != "":
				fmt.Fprintf(w, "%-7s %6d  %s\n", r.Type, r.Time, r.Command)
			case r.Hash != "":
				fmt.Fprintf(w, "%-7s %6d  %s\n", r.Type, r.Time, r.Hash)
			default:
				fmt.Fprintf(w, "%-7s %6d\n", r.Type, r.Time)
			}
		}
	})
}
