package logic

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/syncsum"
)

func TestNewGame_Validation(t *testing.T) {
	_, err := NewGame(Setup{}, WithLogger(testLogger()))
	assert.Error(t, err)

	players := make([]string, MaxPlayers+1)
	for i := range players {
		players[i] = "p"
	}
	_, err = NewGame(Setup{Players: players}, WithLogger(testLogger()))
	assert.Error(t, err)

	_, err = NewGame(Setup{Players: []string{"ok", "   "}}, WithLogger(testLogger()))
	assert.ErrorContains(t, err, "player 2")
}

func TestNewGame_Defaults(t *testing.T) {
	g := newTestGame(t)
	assert.NotEqual(t, [16]byte{}, [16]byte(g.ID()))
	assert.Equal(t, Time(0), g.Time())
	assert.Equal(t, DefaultIntervals(), g.Intervals())

	p, ok := g.Player(1)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Name())
	assert.Equal(t, int32(20), p.Stock(WareLog))

	_, ok = g.Player(0)
	assert.False(t, ok)
	_, ok = g.Player(3)
	assert.False(t, ok)
}

func TestNetCheckSync_PeriodicChain(t *testing.T) {
	g := newTestGame(t)
	g.AttachNetwork()

	var times []Time
	g.Enqueue(NewCmdNetCheckSync(0, 1000, func(at Time, _ syncsum.Checksum) {
		times = append(times, at)
	}))

	require.NoError(t, g.RunUntil(4999))
	assert.Equal(t, []Time{0, 1000, 2000, 3000, 4000}, times)

	require.NoError(t, g.RunUntil(5000))
	assert.Len(t, times, 6)
}

func TestNetCheckSync_StopsWhenDetached(t *testing.T) {
	g := newTestGame(t)
	g.AttachNetwork()

	var times []Time
	g.Enqueue(NewCmdNetCheckSync(0, 1000, func(at Time, _ syncsum.Checksum) {
		times = append(times, at)
	}))
	require.NoError(t, g.RunUntil(1500))
	require.Len(t, times, 2)

	g.DetachNetwork()
	require.NoError(t, g.RunUntil(10000))
	assert.Len(t, times, 2, "detached chain must not report")
	assert.Equal(t, 0, g.Queue().Len(), "detached chain must not reschedule")
}

func TestNetCheckSync_OneShot(t *testing.T) {
	g := newTestGame(t)
	g.AttachNetwork()

	var sums []syncsum.Checksum
	g.Enqueue(NewCmdNetCheckSync(300, 0, func(_ Time, sum syncsum.Checksum) {
		sums = append(sums, sum)
	}))
	require.NoError(t, g.RunUntil(10000))
	require.Len(t, sums, 1)
	assert.Equal(t, g.SyncHash(), sums[0], "no game logic ran, hash unchanged")
}

func TestNetCheckSync_DoesNotChangeHash(t *testing.T) {
	a := newTestGame(t)
	b := newTestGame(t)
	a.AttachNetwork()
	a.Enqueue(NewCmdNetCheckSync(0, 100, func(Time, syncsum.Checksum) {}))

	require.NoError(t, a.Start())
	require.NoError(t, b.Start())
	send(a, NewCmdBuild(50, 1, Coords{1, 1}, BuildingLumberjacksHut), 1)
	send(b, NewCmdBuild(50, 1, Coords{1, 1}, BuildingLumberjacksHut), 1)

	require.NoError(t, a.RunUntil(40000))
	require.NoError(t, b.RunUntil(40000))
	assert.Equal(t, b.SyncHash(), a.SyncHash())
}

// playScript issues a fixed set of commands that touches every subsystem.
func playScript(g *Game) {
	send(g, NewCmdBuild(100, 1, Coords{0, 0}, BuildingLumberjacksHut), 1)
	send(g, NewCmdBuild(100, 2, Coords{5, 5}, BuildingQuarry), 2)
	send(g, NewCmdBuild(250, 1, Coords{2, 0}, BuildingSawmill), 3)
	send(g, NewCmdSetWareTargetQuantity(300, 2, WareGranite, 40), 4)
	send(g, NewCmdBuild(400, 2, Coords{6, 5}, BuildingFishersHouse), 5)
	send(g, NewCmdStopBuilding(9000, 2, 2), 6)
	send(g, NewCmdStopBuilding(15000, 2, 2), 7)
	send(g, NewCmdEnhanceBuilding(20000, 1, 1, true), 8)
}

func TestGame_Deterministic(t *testing.T) {
	run := func(mutate bool) *Game {
		g := newTestGame(t)
		require.NoError(t, g.Start())
		playScript(g)
		if mutate {
			send(g, NewCmdBuild(500, 1, Coords{9, 9}, BuildingQuarry), 9)
		}
		require.NoError(t, g.RunUntil(60000))
		return g
	}

	a := run(false)
	b := run(false)
	c := run(true)

	assert.False(t, a.SyncHash().IsZero())
	assert.Equal(t, a.SyncHash(), b.SyncHash())
	assert.Equal(t, a.SyncFed(), b.SyncFed())
	assert.NotEqual(t, a.SyncHash(), c.SyncHash())

	pa, _ := a.Player(1)
	pb, _ := b.Player(1)
	assert.Equal(t, pa.Statistics(), pb.Statistics())
	assert.Len(t, pa.Statistics(), 2, "samples at 30000 and 60000")
}

func TestGame_SerialOrderDecidesSameTimeCommands(t *testing.T) {
	// Two players build on the same field at the same time: the lower
	// cmdserial wins regardless of enqueue order.
	build := func(first, second uint32) PlayerNumber {
		g := newTestGame(t)
		a := NewCmdBuild(10, 1, Coords{3, 3}, BuildingQuarry)
		b := NewCmdBuild(10, 2, Coords{3, 3}, BuildingQuarry)
		send(g, b, second)
		send(g, a, first)
		require.NoError(t, g.RunUntil(10))
		bld, ok := g.Objects().BuildingAt(Coords{3, 3})
		require.True(t, ok)
		return bld.Owner()
	}
	assert.Equal(t, PlayerNumber(1), build(1, 2))
	assert.Equal(t, PlayerNumber(2), build(2, 1))
}

func TestGame_StaleReferencesAreNoOps(t *testing.T) {
	g := newTestGame(t)
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{0, 0}, BuildingLumberjacksHut))
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{1, 0}, BuildingQuarry))
	require.NoError(t, g.RunUntil(1))
	require.Equal(t, 2, g.Objects().Len())

	g.SendPlayerCommand(NewCmdBulldoze(0, 1, 1))
	require.NoError(t, g.RunUntil(2))
	_, ok := g.Objects().Get(1)
	require.False(t, ok)

	cases := map[string]GameLogicCommand{
		"destroyed serial":   NewCmdStopBuilding(0, 1, 1),
		"never existed":      NewCmdStopBuilding(0, 1, 77),
		"wrong owner":        NewCmdStopBuilding(0, 2, 2),
		"wrong type":         NewCmdShipSink(0, 1, 2),
		"dismantle stale":    NewCmdDismantleBuilding(0, 1, 1, true),
		"act on destroyed":   NewCmdAct(0, 1, 0),
		"destroy destroyed":  NewCmdDestroyMapObject(0, 1),
		"rename non-ship":    NewCmdShipName(0, 1, 2, "x"),
		"max fill non-owner": NewCmdSetInputMaxFill(0, 2, 2, WareLog, 1),
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			before := g.SyncHash()
			fed := g.SyncFed()
			require.NoError(t, cmd.Execute(g))
			assert.Equal(t, before, g.SyncHash())
			assert.Equal(t, fed, g.SyncFed())
		})
	}

	b, ok := g.Objects().Building(2)
	require.True(t, ok)
	assert.False(t, b.Stopped())
	assert.Equal(t, uint32(defaultInputMaxFill), b.InputMaxFill(WareLog))
}

func TestGame_BuildRules(t *testing.T) {
	g := newTestGame(t)
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{4, 4}, BuildingShipyard))
	require.NoError(t, g.RunUntil(1))
	p, _ := g.Player(1)
	assert.Equal(t, int32(16), p.Stock(WareLog))
	assert.Equal(t, int32(8), p.Stock(WareGranite))

	// Occupied field.
	g.SendPlayerCommand(NewCmdBuild(0, 2, Coords{4, 4}, BuildingQuarry))
	require.NoError(t, g.RunUntil(2))
	assert.Equal(t, 1, g.Objects().Len())

	// 8 granite left pays for four sawmills, not five.
	for i := int16(0); i < 5; i++ {
		g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{i, 10}, BuildingSawmill))
	}
	require.NoError(t, g.RunUntil(3))
	assert.Equal(t, 5, g.Objects().Len())
	assert.Equal(t, int32(0), p.Stock(WareGranite))
}

func TestGame_ProductionFollowsEconomy(t *testing.T) {
	g := newTestGame(t)
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{0, 0}, BuildingLumberjacksHut))
	require.NoError(t, g.RunUntil(1))
	b, ok := g.Objects().Building(1)
	require.True(t, ok)

	require.NoError(t, g.RunUntil(100000))
	p, _ := g.Player(1)
	assert.Equal(t, int32(18)+int32(b.Produced()), p.Stock(WareLog))
	assert.Greater(t, b.Produced(), uint32(0))
	assert.LessOrEqual(t, p.Stock(WareLog), int32(p.Target(WareLog)))

	// A target below the stock idles the producer.
	g.SendPlayerCommand(NewCmdSetWareTargetQuantity(0, 1, WareLog, 0))
	require.NoError(t, g.RunUntil(g.Time()+1))
	produced := b.Produced()
	require.NoError(t, g.RunUntil(g.Time()+50000))
	assert.Equal(t, produced, b.Produced())

	g.SendPlayerCommand(NewCmdResetWareTargetQuantity(0, 1, WareLog))
	require.NoError(t, g.RunUntil(g.Time()+1))
	assert.Equal(t, defaultWareTargets[WareLog], p.Target(WareLog))
}

func TestGame_StopBuildingToggles(t *testing.T) {
	g := newTestGame(t)
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{0, 0}, BuildingQuarry))
	g.SendPlayerCommand(NewCmdStopBuilding(0, 1, 1))
	require.NoError(t, g.RunUntil(1))
	b, _ := g.Objects().Building(1)
	assert.True(t, b.Stopped())

	require.NoError(t, g.RunUntil(60000))
	assert.Equal(t, uint32(0), b.Produced())

	g.SendPlayerCommand(NewCmdStopBuilding(0, 1, 1))
	require.NoError(t, g.RunUntil(g.Time()+1))
	assert.False(t, b.Stopped())
}

func TestGame_DismantleRefundsHalf(t *testing.T) {
	for _, keep := range []bool{true, false} {
		g := newTestGame(t)
		g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{0, 0}, BuildingLumberjacksHut))
		require.NoError(t, g.RunUntil(1))
		g.SendPlayerCommand(NewCmdDismantleBuilding(0, 1, 1, keep))
		require.NoError(t, g.RunUntil(2))

		b, ok := g.Objects().Building(1)
		require.True(t, ok)
		assert.True(t, b.Dismantling())

		require.NoError(t, g.RunUntil(2002))
		_, ok = g.Objects().Get(1)
		assert.False(t, ok)

		p, _ := g.Player(1)
		want := int32(18)
		if keep {
			want = 19
		}
		assert.Equal(t, want, p.Stock(WareLog), "keep_wares=%v", keep)
	}
}

func TestGame_Enhance(t *testing.T) {
	g := newTestGame(t)
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{0, 0}, BuildingLumberjacksHut))
	g.SendPlayerCommand(NewCmdBuild(0, 1, Coords{1, 0}, BuildingQuarry))
	require.NoError(t, g.RunUntil(1))

	g.SendPlayerCommand(NewCmdEnhanceBuilding(0, 1, 1, false))
	g.SendPlayerCommand(NewCmdEnhanceBuilding(0, 1, 2, false))
	require.NoError(t, g.RunUntil(2))

	b, _ := g.Objects().Building(1)
	assert.Equal(t, BuildingLumberjacksHouse, b.BuildingType())
	q, _ := g.Objects().Building(2)
	assert.Equal(t, BuildingQuarry, q.BuildingType(), "quarry has no enhancement")
}

func TestGame_ShipCommands(t *testing.T) {
	g := newTestGame(t)
	ship := g.createShip(1, Coords{0, 0}, "  Cafe\u0301  ")
	assert.Equal(t, "Caf\u00e9", ship.Name(), "names are trimmed and NFC normalized")

	g.SendPlayerCommand(NewCmdStartExpedition(0, 1, ship.Serial()))
	g.SendPlayerCommand(NewCmdShipScoutDirection(0, 1, ship.Serial(), DirEast))
	require.NoError(t, g.RunUntil(1))
	assert.True(t, ship.OnExpedition())
	assert.Equal(t, DirEast, ship.ScoutDirection())
	p, _ := g.Player(1)
	assert.Equal(t, int32(3), p.Stock(WareFish))

	require.NoError(t, g.RunUntil(3000))
	assert.Equal(t, Coords{3, 0}, ship.Pos())
	assert.Equal(t, uint32(3), ship.Moves())

	g.SendPlayerCommand(NewCmdShipCancelExpedition(0, 1, ship.Serial()))
	require.NoError(t, g.RunUntil(5000))
	assert.False(t, ship.OnExpedition())
	assert.Equal(t, Coords{3, 0}, ship.Pos())

	g.SendPlayerCommand(NewCmdShipName(0, 1, ship.Serial(), "Mary Rose"))
	require.NoError(t, g.RunUntil(5001))
	assert.Equal(t, "Mary Rose", ship.Name())

	g.SendPlayerCommand(NewCmdShipSink(0, 1, ship.Serial()))
	require.NoError(t, g.RunUntil(5002))
	assert.True(t, ship.Sinking())
	require.NoError(t, g.RunUntil(5003))
	_, ok := g.Objects().Ship(ship.Serial())
	assert.False(t, ok)
}

func TestGame_SaveLoadContinuesInSync(t *testing.T) {
	orig := newTestGame(t)
	require.NoError(t, orig.Start())
	playScript(orig)
	require.NoError(t, orig.RunUntil(12000))

	var buf bytes.Buffer
	require.NoError(t, orig.Save(&buf))

	loaded, err := LoadGame(bytes.NewReader(buf.Bytes()), WithLogger(testLogger()))
	require.NoError(t, err)
	assert.Equal(t, orig.ID(), loaded.ID())
	assert.Equal(t, orig.Time(), loaded.Time())
	assert.Equal(t, orig.SyncHash(), loaded.SyncHash())
	assert.Equal(t, orig.Queue().Len(), loaded.Queue().Len())
	assert.Equal(t, orig.Objects().Serials(), loaded.Objects().Serials())

	require.NoError(t, orig.RunUntil(70000))
	require.NoError(t, loaded.RunUntil(70000))
	assert.Equal(t, orig.SyncHash(), loaded.SyncHash())
	for n := PlayerNumber(1); n <= 2; n++ {
		po, _ := orig.Player(n)
		pl, _ := loaded.Player(n)
		assert.Equal(t, po.Statistics(), pl.Statistics())
		for w := Ware(0); w < NumWares; w++ {
			assert.Equal(t, po.Stock(w), pl.Stock(w), "player %d %s", n, w)
		}
	}
}

func TestGame_SaveSkipsSyncProbes(t *testing.T) {
	g := newTestGame(t)
	g.AttachNetwork()
	g.Enqueue(NewCmdNetCheckSync(100, 100, func(Time, syncsum.Checksum) {}))
	require.NoError(t, g.Start())

	var buf bytes.Buffer
	require.NoError(t, g.Save(&buf))
	loaded, err := LoadGame(&buf, WithLogger(testLogger()))
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Queue().Len())
	cmd, ok := loaded.Queue().Peek()
	require.True(t, ok)
	assert.Equal(t, KindCalculateStatistics, cmd.Kind())
	assert.False(t, loaded.NetworkAttached())
}

func TestLoadGame_Errors(t *testing.T) {
	g := newTestGame(t)
	require.NoError(t, g.Start())
	var buf bytes.Buffer
	require.NoError(t, g.Save(&buf))
	data := buf.Bytes()

	_, err := LoadGame(bytes.NewReader(data[:len(data)-3]))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load game: command queue")

	bad := append([]byte{}, data...)
	bad[0] = 'X'
	_, err = LoadGame(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "not a savegame")

	bad = append([]byte{}, data...)
	bad[4] = 9
	_, err = LoadGame(bytes.NewReader(bad))
	assert.True(t, IsUnhandledVersion(err))
}

func TestReplaySyncWrite_Chain(t *testing.T) {
	g := newTestGame(t)
	rec := &fakeRecorder{}
	require.NoError(t, g.AttachReplay(rec))
	assert.Error(t, g.AttachReplay(rec))

	require.NoError(t, g.RunUntil(1000))
	assert.Equal(t, []Time{200, 400, 600, 800, 1000}, rec.syncs)

	g.DetachReplay()
	require.NoError(t, g.RunUntil(2000))
	assert.Len(t, rec.syncs, 5)
	assert.Equal(t, 0, g.Queue().Len())
}

func TestReplayRecorder_FailureDetaches(t *testing.T) {
	g := newTestGame(t)
	rec := &fakeRecorder{failSyn: true}
	require.NoError(t, g.AttachReplay(rec))
	require.NoError(t, g.RunUntil(1000))
	assert.False(t, g.ReplayAttached())

	rec = &fakeRecorder{failCmd: true}
	require.NoError(t, g.AttachReplay(rec))
	g.SendPlayerCommand(NewCmdBulldoze(0, 1, 5))
	require.NoError(t, g.RunUntil(g.Time()+1))
	assert.False(t, g.ReplayAttached())
}

func TestReplayRecorder_RecordsAtExecution(t *testing.T) {
	g := newTestGame(t)
	rec := &fakeRecorder{}
	require.NoError(t, g.AttachReplay(rec))

	send(g, NewCmdBulldoze(50, 2, 9), 2)
	send(g, NewCmdBulldoze(50, 1, 9), 1)
	send(g, NewCmdBulldoze(10, 1, 9), 3)
	require.NoError(t, g.RunUntil(49))
	require.Len(t, rec.cmds, 1)

	require.NoError(t, g.RunUntil(50))
	require.Len(t, rec.cmds, 3)
	assert.Equal(t, []uint32{3, 1, 2}, []uint32{rec.cmds[0].CmdSerial(), rec.cmds[1].CmdSerial(), rec.cmds[2].CmdSerial()})
}

func TestReplaySyncRead_ReportsDesync(t *testing.T) {
	dir := t.TempDir()
	var desyncs []Desync
	g := newTestGame(t,
		WithSyncDump(dir, 4096),
		WithDesyncHandler(func(d Desync) { desyncs = append(desyncs, d) }),
	)

	var checks []SyncCheck
	onCheck := func(c SyncCheck) { checks = append(checks, c) }
	g.Enqueue(NewCmdReplaySyncRead(100, g.SyncHash(), onCheck))
	g.Enqueue(NewCmdReplaySyncRead(200, syncsum.Sum([]byte("other")), onCheck))
	g.SendPlayerCommand(NewCmdBulldoze(150, 1, 1))

	require.NoError(t, g.RunUntil(300), "desync must not stop the game")
	require.Len(t, checks, 2)
	assert.True(t, checks[0].OK())
	assert.False(t, checks[1].OK())

	require.Len(t, desyncs, 1)
	assert.Equal(t, Time(200), desyncs[0].Time)
	assert.Equal(t, "replay", desyncs[0].Peer)
	assert.Equal(t, 1, g.Desyncs())

	dumps, err := filepath.Glob(filepath.Join(dir, "desync-*.bin.zst"))
	require.NoError(t, err)
	require.Len(t, dumps, 1)
	assert.Equal(t, dumps[0], desyncs[0].DumpPath)
	f, err := os.Open(dumps[0])
	require.NoError(t, err)
	defer f.Close()
	tail, err := syncsum.ReadDump(f)
	require.NoError(t, err)
	assert.NotEmpty(t, tail)
}

func TestReplayEnd_Callback(t *testing.T) {
	g := newTestGame(t)
	var ended Time
	g.Enqueue(NewCmdReplayEnd(700, func(at Time) { ended = at }))
	require.NoError(t, g.RunUntil(700))
	assert.Equal(t, Time(700), ended)
}

func TestGame_SubmitFromOtherGoroutine(t *testing.T) {
	g := newTestGame(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		cmd := NewCmdBuild(20, 2, Coords{1, 1}, BuildingQuarry)
		cmd.SetCmdSerial(g.CmdSerials().Next())
		g.Submit(cmd)
	}()
	<-done
	<-g.Inbox().Wait()

	require.NoError(t, g.RunUntil(20))
	assert.Equal(t, 1, g.Objects().Len())

	g.Inbox().Close()
	assert.False(t, g.Submit(NewCmdBulldoze(30, 2, 1)))
}
