package source

import "sync/atomic"

// Control is the narrow handle through which an external collaborator
// repositions a rewindable source. The pending flag and target frame are
// the only state shared across the thread boundary, both atomic; the
// source consumes a request at the start of its next production cycle.
type Control struct {
	pending atomic.Bool
	target  atomic.Int64
}

// RequestSeek asks the source to continue from the given frame index.
// A later request overwrites an unconsumed earlier one.
func (c *Control) RequestSeek(frame int) {
	c.target.Store(int64(frame))
	c.pending.Store(true)
}

// Pending reports whether a seek request has not been consumed yet.
func (c *Control) Pending() bool { return c.pending.Load() }

func (c *Control) take() (int, bool) {
	if !c.pending.Load() {
		return 0, false
	}
	target := int(c.target.Load())
	c.pending.Store(false)
	return target, true
}
