package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/logic"
)

// Seed is the RNG seed used by NewGame.
const Seed = 42

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GameID derives a stable game id from name, so that the same test or
// scenario always produces byte-identical savegames and replays.
func GameID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("lockstep:test:"+name))
}

// NewGame creates and starts a game named after the test, with the given
// players (alice and bob by default) and a quiet logger.
func NewGame(t testing.TB, players ...string) *logic.Game {
	t.Helper()
	if len(players) == 0 {
		players = []string{"alice", "bob"}
	}
	g, err := logic.NewGame(logic.Setup{
		ID:      GameID(t.Name()),
		Seed:    Seed,
		Players: players,
	}, logic.WithLogger(Logger()))
	require.NoError(t, err)
	require.NoError(t, g.Start())
	return g
}

// Send enqueues cmd with an explicit cmdserial, bypassing the local serial
// counter the way a network host would.
func Send(g *logic.Game, cmd logic.PlayerCommand, serial uint32) {
	cmd.SetCmdSerial(serial)
	g.Enqueue(cmd)
}
