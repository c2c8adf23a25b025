package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/netsession"
)

// JoinOptions holds flags for the join command.
type JoinOptions struct {
	*RootOptions
	Name       string
	ConfigPath string
	Commands   bool
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "join <url>",
		Short: "Join a hosted game",
		Long: `Connect to a host, load its game and follow it in lockstep,
answering every sync request with the local hash.

Exit codes:
  0 - Left the game (interrupt)
  1 - Rejected or disconnected by the host
  2 - Command error (bad URL, host unreachable, etc.)

Examples:
  lockstep join ws://localhost:7396 --name bob
  lockstep join ws://host:7396 --name bob --commands < orders.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "player name (required)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "settings file for sync dumps")
	cmd.Flags().BoolVar(&opts.Commands, "commands", false, "read player commands from stdin")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runJoin(opts *JoinOptions, url string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	logger := newLogger(cmd, opts.RootOptions, slog.LevelInfo)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	var gameOpts []logic.Option
	if opts.ConfigPath != "" {
		settings, err := loadSettings(opts.ConfigPath)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeSettings, "invalid settings", err)
		}
		gameOpts = settings.GameOptions()
	}
	gameOpts = append(gameOpts, logic.WithLogger(logger))

	client, err := netsession.Dial(ctx, url, opts.Name, gameOpts...)
	if err != nil {
		var rejected *netsession.RejectedError
		if errors.As(err, &rejected) {
			return f.Fail(ExitFailure, ErrCodeNetwork, "join rejected", err)
		}
		return f.Fail(ExitCommandError, ErrCodeNetwork, "failed to join", err)
	}

	if opts.Commands {
		go func() {
			if err := readCommands(ctx, cmd.InOrStdin(), client.Player(), client.SendPlayerCommand, logger); err != nil {
				logger.Warn("command input stopped", "error", err)
			}
		}()
	}

	err = client.Run(ctx)
	status := client.Status()
	logger.Info("left game", "player", client.Player(), "time", status.Time, "hash", status.Hash.String())

	var disconnected *netsession.DisconnectedError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.As(err, &disconnected):
		return f.Fail(ExitFailure, ErrCodeNetwork, fmt.Sprintf("disconnected at %d", status.Time), err)
	default:
		return f.Fail(ExitFailure, ErrCodeGeneric, "session failed", err)
	}
}
