package logic

import (
	"strconv"

	"github.com/roach88/lockstep/internal/syncsum"
	"github.com/roach88/lockstep/internal/wire"
)

// CmdDestroyMapObject removes an object. A serial that no longer resolves is
// ignored.
type CmdDestroyMapObject struct {
	commandBase
	serial Serial
}

func NewCmdDestroyMapObject(due Time, s Serial) *CmdDestroyMapObject {
	return &CmdDestroyMapObject{commandBase: commandBase{duetime: due}, serial: s}
}

func (*CmdDestroyMapObject) Kind() Kind { return KindDestroyMapObject }

func (c *CmdDestroyMapObject) Execute(g *Game) error {
	g.destroyObject(c.serial)
	return nil
}

func (c *CmdDestroyMapObject) writePayload(w *wire.Writer) { w.U32(uint32(c.serial)) }

func decodeDestroyMapObject(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdDestroyMapObject{serial: Serial(r.U32())}
}

func (c *CmdDestroyMapObject) args() map[string]string {
	return map[string]string{"serial": formatSerial(c.serial)}
}

// CmdAct wakes an object up. Objects keep themselves running by scheduling
// their next CmdAct from within act.
type CmdAct struct {
	commandBase
	serial Serial
	data   uint32
}

func NewCmdAct(due Time, s Serial, data uint32) *CmdAct {
	return &CmdAct{commandBase: commandBase{duetime: due}, serial: s, data: data}
}

func (*CmdAct) Kind() Kind { return KindAct }

func (c *CmdAct) Execute(g *Game) error {
	obj, ok := g.objects.Get(c.serial)
	if !ok {
		return nil
	}
	g.sync.Entry(syncsum.EntryObjectAct)
	g.sync.U32(uint32(c.serial))
	g.sync.U32(c.data)
	return obj.act(g, c.data)
}

func (c *CmdAct) writePayload(w *wire.Writer) {
	w.U32(uint32(c.serial))
	w.U32(c.data)
}

func decodeAct(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdAct{serial: Serial(r.U32())}
	c.data = r.U32()
	return c
}

func (c *CmdAct) args() map[string]string {
	return map[string]string{
		"serial": formatSerial(c.serial),
		"data":   strconv.FormatUint(uint64(c.data), 10),
	}
}

// CmdCalculateStatistics samples every player's economy and reschedules
// itself one statistics interval later.
type CmdCalculateStatistics struct {
	commandBase
}

func NewCmdCalculateStatistics(due Time) *CmdCalculateStatistics {
	return &CmdCalculateStatistics{commandBase: commandBase{duetime: due}}
}

func (*CmdCalculateStatistics) Kind() Kind { return KindCalculateStatistics }

func (c *CmdCalculateStatistics) Execute(g *Game) error {
	for _, p := range g.players {
		p.statistics = append(p.statistics, StatSample{
			Time:      c.duetime,
			Stock:     p.stock,
			Buildings: g.objects.Count(p.number, ObjectBuilding),
			Ships:     g.objects.Count(p.number, ObjectShip),
		})
	}
	g.queue.Enqueue(NewCmdCalculateStatistics(c.duetime.Add(g.intervals.Statistics)))
	return nil
}

func (*CmdCalculateStatistics) writePayload(*wire.Writer) {}

func decodeCalculateStatistics(*wire.Reader, uint16) GameLogicCommand {
	return &CmdCalculateStatistics{}
}

func (*CmdCalculateStatistics) args() map[string]string { return map[string]string{} }
