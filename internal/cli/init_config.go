package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/config"
)

// DefaultConfigPath is used when no path is given.
const DefaultConfigPath = "lockstep.yaml"

// InitConfigOptions holds flags for the init-config command.
type InitConfigOptions struct {
	*RootOptions
	Force bool
}

// NewInitConfigCommand creates the init-config command.
func NewInitConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default settings file",
		Long: `Write the default game and session settings as YAML.

Examples:
  lockstep init-config
  lockstep init-config ./game.yaml --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runInitConfig(opts, path, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	return cmd
}

func runInitConfig(opts *InitConfigOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return f.Fail(ExitCommandError, ErrCodeSettings,
				fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return f.Fail(ExitCommandError, ErrCodeSettings, "cannot stat settings file", err)
		}
	}
	if err := config.Default().Write(path); err != nil {
		return f.Fail(ExitCommandError, ErrCodeSettings, "failed to write settings", err)
	}
	return f.Emit(map[string]string{"path": path}, func(w io.Writer) {
		fmt.Fprintf(w, "Wrote %s\n", path)
	})
}
