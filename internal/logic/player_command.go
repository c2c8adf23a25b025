package logic

// PlayerCommand is a GameLogicCommand issued by a player. It is the only kind
// of command that travels over the network and into replay files.
type PlayerCommand interface {
	GameLogicCommand

	// Sender is the issuing player.
	Sender() PlayerNumber

	// CmdSerial is the network-wide ordering key assigned by the host (or
	// the local controller in single player). 0 means unassigned.
	CmdSerial() uint32
	SetCmdSerial(s uint32)

	setSender(p PlayerNumber)
}

// playerBase is embedded by every player command.
type playerBase struct {
	commandBase
	sender    PlayerNumber
	cmdserial uint32
}

func (p *playerBase) Sender() PlayerNumber { return p.sender }

func (p *playerBase) CmdSerial() uint32 { return p.cmdserial }

func (p *playerBase) SetCmdSerial(s uint32) {
	if p.cookie.InQueue() {
		invariant("cmdserial of queued command changed from %d to %d", p.cmdserial, s)
	}
	p.cmdserial = s
}

func (p *playerBase) setSender(n PlayerNumber) { p.sender = n }

func newPlayerBase(due Time, sender PlayerNumber) playerBase {
	return playerBase{commandBase: commandBase{duetime: due}, sender: sender}
}
