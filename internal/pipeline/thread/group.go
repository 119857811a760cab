package thread

import (
	"errors"
	"time"

	"github.com/drostifrosti/openpose/internal/monitoring"
	"github.com/drostifrosti/openpose/internal/pipeline/queue"
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
)

// Group is an ordered chain of workers bound to at most one input and one
// output queue. A group fed by a producer has no input queue; a terminal
// sink group has no output queue.
//
// Exactly one goroutine steps a group at a time, so groups need no
// internal locking. Items are owned by the stepping goroutine from pop to
// push.
type Group[T any] struct {
	threadID int
	producer worker.Producer[T]
	workers  []worker.Worker[T]
	in       *queue.Queue[T]
	out      *queue.Queue[T]
	metrics  *monitoring.Metrics
}

// ThreadID returns the id of the thread this group is scheduled on.
func (g *Group[T]) ThreadID() int { return g.threadID }

// step moves one item through the group: pop (or produce), process the
// worker chain, push every resulting item. It reports done=true when the
// group can make no further progress: producer end-of-stream, input
// closed and drained, or output closed underneath a push. A non-nil
// error is a fatal stage failure, except worker.ErrStop which is a
// cooperative stop request.
func (g *Group[T]) step() (done bool, err error) {
	var item T
	switch {
	case g.producer != nil:
		next, ok, perr := g.producer.Next()
		if perr != nil {
			g.metrics.RecordStageError(g.producer.Name())
			return true, &StageError{Stage: g.producer.Name(), Err: perr}
		}
		if !ok {
			return true, nil
		}
		item = next
	default:
		next, ok := g.in.WaitAndPop()
		if !ok {
			return true, nil
		}
		g.metrics.SetQueueDepth(g.in.ID(), g.in.Len())
		item = next
	}

	outs := []T{item}
	for _, w := range g.workers {
		var next []T
		for _, it := range outs {
			start := time.Now()
			res, werr := w.Process(it)
			if werr != nil {
				if errors.Is(werr, worker.ErrStop) {
					return true, worker.ErrStop
				}
				g.metrics.RecordStageError(w.Name())
				return true, &StageError{Stage: w.Name(), Err: werr}
			}
			g.metrics.RecordProcessed(w.Name(), time.Since(start))
			next = append(next, res...)
		}
		outs = next
	}

	if g.out != nil {
		for _, it := range outs {
			if !g.out.WaitAndPush(it) {
				return true, nil
			}
			g.metrics.SetQueueDepth(g.out.ID(), g.out.Len())
		}
	}
	return false, nil
}

// detach releases the group's writer slot on its output queue so that
// end-of-stream propagates once every replica feeding the queue is done.
func (g *Group[T]) detach() {
	if g.out != nil {
		g.out.DetachWriter()
	}
}
