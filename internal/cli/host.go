package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/lockstep/internal/config"
	"github.com/roach88/lockstep/internal/logic"
	"github.com/roach88/lockstep/internal/netsession"
	"github.com/roach88/lockstep/internal/replay"
	"github.com/roach88/lockstep/internal/store"
)

// HostOptions holds flags for the host command.
type HostOptions struct {
	*RootOptions
	ConfigPath string
	DBPath     string
	Listen     string
	RecordPath string
	Commands   bool
}

// NewHostCommand creates the host command.
func NewHostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a networked game",
		Long: `Start a new game and serve it to remote players over websockets.

The host plays seat 1. Every sync report it receives is compared with its
own hash and, with --db, stored along with any desync.

Examples:
  lockstep host --config lockstep.yaml
  lockstep host --listen :7400 --db games.db --record game.lsrp
  lockstep host --commands < orders.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "settings file (default: built-in settings)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database to store sync reports in")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides settings)")
	cmd.Flags().StringVar(&opts.RecordPath, "record", "", "record the hosted game to this replay file")
	cmd.Flags().BoolVar(&opts.Commands, "commands", false, "read player commands for seat 1 from stdin")
	return cmd
}

// loadSettings reads path, or returns the defaults for an empty path.
func loadSettings(path string) (config.Settings, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runHost(opts *HostOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	logger := newLogger(cmd, opts.RootOptions, slog.LevelInfo)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	settings, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeSettings, "invalid settings", err)
	}
	listen := settings.Network.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}

	st, err := openStore(opts.DBPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	if st != nil {
		defer st.Close()
	}

	gameOpts := append(settings.GameOptions(), logic.WithLogger(logger))
	var game *logic.Game
	if st != nil {
		gameOpts = append(gameOpts, logic.WithDesyncHandler(func(d logic.Desync) {
			err := st.WriteDesync(ctx, store.Desync{
				GameID: game.ID(), Time: int32(d.Time), Peer: d.Peer,
				Expected: d.Expected, Got: d.Got, DumpPath: d.DumpPath,
			})
			if err != nil {
				logger.Warn("desync not stored", "error", err)
			}
		}))
	}
	game, err = logic.NewGame(settings.Setup(), gameOpts...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeSettings, "failed to create game", err)
	}
	if err := game.Start(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start game", err)
	}

	hostOpts := []netsession.HostOption{netsession.WithHostLogger(logger)}
	if st != nil {
		rec := store.Game{ID: game.ID(), Seed: settings.Seed, Players: settings.PlayerNames(), StartTime: int32(game.Time())}
		if err := st.WriteGame(ctx, rec); err != nil {
			return f.Fail(ExitCommandError, ErrCodeStore, "failed to store game", err)
		}
		hostOpts = append(hostOpts, netsession.WithReporter(netsession.ReporterFunc(
			func(ctx context.Context, res netsession.SyncResult) error {
				return st.WriteSyncReport(ctx, store.SyncReport{
					GameID: res.GameID, Time: int32(res.Time), Peer: res.Peer,
					Expected: res.Expected, Got: res.Got,
				})
			})))
	}

	var recorder *replay.Writer
	if opts.RecordPath != "" {
		if recorder, err = replay.Create(opts.RecordPath, game); err != nil {
			return f.Fail(ExitCommandError, ErrCodeReplay, "failed to create replay", err)
		}
	}

	host := netsession.NewHost(game, settings.Session(), hostOpts...)
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		if recorder != nil {
			_ = recorder.Close()
		}
		return f.Fail(ExitCommandError, ErrCodeNetwork, "failed to listen", err)
	}
	srv := &http.Server{Handler: host.Handler(), ReadHeaderTimeout: 5 * time.Second}
	logger.Info("hosting game", "game", game.ID(), "addr", ln.Addr().String(), "players", settings.PlayerNames())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := host.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	if opts.Commands {
		// Not part of the group: a blocked stdin read must not hold up
		// shutdown.
		go func() {
			send := func(c logic.PlayerCommand) error { return host.SendPlayerCommand(ctx, c) }
			if err := readCommands(ctx, cmd.InOrStdin(), netsession.HostPlayer, send, logger); err != nil {
				logger.Warn("command input stopped", "error", err)
			}
		}()
	}
	runErr := eg.Wait()

	if recorder != nil {
		if err := recorder.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	status := host.Status()
	logger.Info("host stopped", "time", status.Time, "hash", status.Hash.String(),
		"reports", status.Reports, "desyncs", status.Desyncs)
	if runErr != nil {
		return f.Fail(ExitFailure, ErrCodeNetwork, "session failed", runErr)
	}
	if status.Desyncs > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d desyncs reported", status.Desyncs))
	}
	return nil
}
