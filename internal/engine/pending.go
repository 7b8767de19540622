package engine

import "sync"

// Outcome is the terminal result of a command execution. Text holds the
// JSON payload when OK and the error message otherwise.
type Outcome struct {
	OK   bool
	Text string
}

// Pending is the one-shot bridge between a submitting caller and the
// worker that executes the command. The outcome transitions at most once
// from unresolved to terminal; after that it is stable and may be read any
// number of times. The Done channel closes exactly at the transition.
type Pending struct {
	cmd Command

	mu       sync.Mutex
	done     chan struct{}
	outcome  Outcome
	resolved bool
}

func newPending(cmd Command) *Pending {
	return &Pending{cmd: cmd, done: make(chan struct{})}
}

// resolvedPending returns a Pending born terminal, used when a session
// cannot accept the command at all.
func resolvedPending(cmd Command, out Outcome) *Pending {
	p := newPending(cmd)
	p.resolve(out)
	return p
}

// Command returns the command this execution was created for.
func (p *Pending) Command() Command { return p.cmd }

// Done returns a channel closed when the outcome becomes terminal.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Outcome reports the terminal outcome. The second return is false while
// the execution is still in flight. Safe to call repeatedly after
// resolution.
func (p *Pending) Outcome() (Outcome, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, p.resolved
}

// resolve stores the terminal outcome and wakes the waiter, reporting
// whether this call won the transition. The first writer wins; later calls
// are dropped so a slow worker cannot overwrite a timeout resolution, and
// vice versa.
func (p *Pending) resolve(out Outcome) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return false
	}
	p.outcome = out
	p.resolved = true
	close(p.done)
	return true
}
