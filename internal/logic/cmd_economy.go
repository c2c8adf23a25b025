package logic

import (
	"strconv"

	"github.com/roach88/lockstep/internal/wire"
)

// CmdSetWareTargetQuantity sets the stock level at which producers of a ware
// go idle.
type CmdSetWareTargetQuantity struct {
	playerBase
	ware     Ware
	quantity uint32
}

func NewCmdSetWareTargetQuantity(due Time, sender PlayerNumber, w Ware, quantity uint32) *CmdSetWareTargetQuantity {
	return &CmdSetWareTargetQuantity{playerBase: newPlayerBase(due, sender), ware: w, quantity: quantity}
}

func (*CmdSetWareTargetQuantity) Kind() Kind { return KindSetWareTargetQuantity }

func (c *CmdSetWareTargetQuantity) Execute(g *Game) error {
	p, ok := g.Player(c.sender)
	if !ok {
		return nil
	}
	g.setTarget(p, c.ware, c.quantity)
	return nil
}

func (c *CmdSetWareTargetQuantity) writePayload(w *wire.Writer) {
	w.U8(uint8(c.ware))
	w.U32(c.quantity)
}

func decodeSetWareTargetQuantity(r *wire.Reader, _ uint16) GameLogicCommand {
	c := &CmdSetWareTargetQuantity{ware: readWare(r)}
	c.quantity = r.U32()
	return c
}

func (c *CmdSetWareTargetQuantity) args() map[string]string {
	return map[string]string{
		"ware":     c.ware.String(),
		"quantity": strconv.FormatUint(uint64(c.quantity), 10),
	}
}

// CmdResetWareTargetQuantity restores the default target of a ware.
type CmdResetWareTargetQuantity struct {
	playerBase
	ware Ware
}

func NewCmdResetWareTargetQuantity(due Time, sender PlayerNumber, w Ware) *CmdResetWareTargetQuantity {
	return &CmdResetWareTargetQuantity{playerBase: newPlayerBase(due, sender), ware: w}
}

func (*CmdResetWareTargetQuantity) Kind() Kind { return KindResetWareTargetQuantity }

func (c *CmdResetWareTargetQuantity) Execute(g *Game) error {
	p, ok := g.Player(c.sender)
	if !ok {
		return nil
	}
	g.setTarget(p, c.ware, defaultWareTargets[c.ware])
	return nil
}

func (c *CmdResetWareTargetQuantity) writePayload(w *wire.Writer) { w.U8(uint8(c.ware)) }

func decodeResetWareTargetQuantity(r *wire.Reader, _ uint16) GameLogicCommand {
	return &CmdResetWareTargetQuantity{ware: readWare(r)}
}

func (c *CmdResetWareTargetQuantity) args() map[string]string {
	return map[string]string{"ware": c.ware.String()}
}
