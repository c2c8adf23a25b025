package logic

import "sync"

// Inbox is a thread-safe FIFO through which other goroutines hand commands
// to the game goroutine.
//
// Network receive paths call Submit; Game.RunUntil drains the inbox into the
// queue before executing anything. Arrival order in the inbox has no effect
// on execution order, which the queue key alone decides.
type Inbox struct {
	mu     sync.Mutex
	cmds   []Command
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{
		cmds:   make([]Command, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Submit appends cmd. Returns false if the inbox is closed.
// Safe to call from any goroutine.
func (in *Inbox) Submit(cmd Command) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return false
	}
	in.cmds = append(in.cmds, cmd)

	// Coalesce wakeups.
	select {
	case in.signal <- struct{}{}:
	default:
	}
	return true
}

// drain removes and returns everything submitted so far.
func (in *Inbox) drain() []Command {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.cmds) == 0 {
		return nil
	}
	out := in.cmds
	in.cmds = make([]Command, 0, cap(out))
	return out
}

// Wait returns a channel that signals when commands may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-inbox.Wait():
//	    game.RunUntil(...)
//	}
func (in *Inbox) Wait() <-chan struct{} {
	return in.signal
}

// Len returns the number of commands waiting.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.cmds)
}

// Close rejects further submissions and wakes waiters.
func (in *Inbox) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return
	}
	in.closed = true
	close(in.signal)
}
