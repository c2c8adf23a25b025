package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	g := createTestGame(t, s)

	// Same id with different data is ignored.
	require.NoError(t, s.WriteGame(ctx, Game{ID: g.ID, Seed: 7, Players: []string{"mallory"}}))

	got, err := s.ReadGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestWriteGame_LargeSeed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	g := Game{ID: uuid.New(), Seed: 1<<63 + 5, Players: []string{"x"}, StartTime: 1500}
	require.NoError(t, s.WriteGame(ctx, g))

	got, err := s.ReadGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Seed, got.Seed, "seeds above MaxInt64 survive the signed column")
	assert.Equal(t, int32(1500), got.StartTime)
}

func TestWriteSyncReport_MatchOnlyReport(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s)

	rep := SyncReport{GameID: testGameID, Time: 1000, Peer: "bob", Expected: sum("a"), Got: sum("a")}
	require.NoError(t, s.WriteSyncReport(ctx, rep))
	require.NoError(t, s.WriteSyncReport(ctx, rep), "duplicate is ignored")

	reports, err := s.ReadSyncReports(ctx, testGameID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, rep, reports[0])
	assert.True(t, reports[0].OK())

	desyncs, err := s.ReadDesyncs(ctx, testGameID)
	require.NoError(t, err)
	assert.Empty(t, desyncs)
}

func TestWriteSyncReport_MismatchRecordsDesync(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s)

	rep := SyncReport{GameID: testGameID, Time: 2000, Peer: "bob", Expected: sum("a"), Got: sum("b")}
	require.NoError(t, s.WriteSyncReport(ctx, rep))

	desyncs, err := s.ReadDesyncs(ctx, testGameID)
	require.NoError(t, err)
	require.Len(t, desyncs, 1)
	assert.Equal(t, int32(2000), desyncs[0].Time)
	assert.Equal(t, sum("b"), desyncs[0].Got)
	assert.Empty(t, desyncs[0].DumpPath)

	n, err := s.CountFailedReports(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The host's desync handler later supplies the dump path.
	require.NoError(t, s.WriteDesync(ctx, Desync{
		GameID: testGameID, Time: 2000, Peer: "bob",
		Expected: sum("a"), Got: sum("b"), DumpPath: "/tmp/desync-00002000-1.bin.zst",
	}))
	desyncs, err = s.ReadDesyncs(ctx, testGameID)
	require.NoError(t, err)
	require.Len(t, desyncs, 1)
	assert.Equal(t, "/tmp/desync-00002000-1.bin.zst", desyncs[0].DumpPath)

	// An empty path does not erase it.
	require.NoError(t, s.WriteDesync(ctx, Desync{GameID: testGameID, Time: 2000, Peer: "bob"}))
	desyncs, err = s.ReadDesyncs(ctx, testGameID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/desync-00002000-1.bin.zst", desyncs[0].DumpPath)
}

func TestWriteReplayRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestGame(t, s)

	first := ReplayRun{GameID: testGameID, ReplayPath: "a.lsrp", EndTime: 5000, Commands: 3, Checks: 25, FinalHash: sum("x"), Ended: true}
	second := ReplayRun{GameID: testGameID, ReplayPath: "a.lsrp", EndTime: 5000, Commands: 3, Checks: 25, Desyncs: 2, FinalHash: sum("y"), Ended: true}

	id1, err := s.WriteReplayRun(ctx, first)
	require.NoError(t, err)
	id2, err := s.WriteReplayRun(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := s.ReadReplayRuns(ctx, testGameID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	first.ID, second.ID = id1, id2
	assert.Equal(t, []ReplayRun{first, second}, runs)
	assert.True(t, runs[0].OK())
	assert.False(t, runs[1].OK())
}
