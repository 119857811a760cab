package topology

import (
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
)

// Assemble validates the spec and computes the plan: the ordered stage
// sequence, grouped into thread groups, with thread and queue ids
// assigned by a single monotonically increasing counter. Stage sets
// merged into one group share one id pair.
//
// Grouping policy: consecutive internal stages merge into one group by
// default; a user list requesting its own thread becomes its own group;
// each compute replica is its own group sharing the fan-out and fan-in
// queue ids with its siblings; the display sink runs on its own thread
// so a closing display stays responsive while upstream stages block.
func Assemble[T worker.Sequenced](spec Spec[T]) (*Plan[T], error) {
	if err := validate(spec); err != nil {
		return nil, err
	}
	if !spec.MultiThread {
		return collapse(spec), nil
	}

	b := newBuilder[T](spec)
	b.inject(spec.UserInput, spec.UserInputOwnThread)
	b.merge(worker.NewSequencer[T]())
	b.merge(spec.PreWorkers...)
	if n := len(spec.ComputeChains); n > 0 {
		b.replicate(spec.ComputeChains)
		if n > 1 {
			b.merge(worker.NewOrderer[T]())
		}
	}
	b.merge(spec.PostWorkers...)
	b.inject(spec.UserPost, spec.UserPostOwnThread)
	b.merge(spec.OutputWorkers...)
	b.inject(spec.UserOutput, spec.UserOutputOwnThread)
	if spec.Display != nil {
		b.cut()
		b.merge(spec.Display)
	}
	return b.finish(spec.ExternalOutput), nil
}

func validate[T worker.Sequenced](spec Spec[T]) error {
	if spec.Producer != nil && spec.ExternalInput {
		return configErrorf("both an internal producer and an external input boundary are bound")
	}
	if spec.Producer == nil && !spec.ExternalInput {
		return configErrorf("no producer bound and the input boundary is not externally driven")
	}
	if !spec.ExternalOutput && spec.Display == nil &&
		len(spec.OutputWorkers) == 0 && len(spec.UserOutput) == 0 {
		return configErrorf("no output sink, external output boundary, or display bound")
	}
	for i, chain := range spec.ComputeChains {
		if len(chain) == 0 {
			return configErrorf("compute replica %d has no workers", i)
		}
	}
	lists := [][]worker.Worker[T]{
		spec.PreWorkers, spec.PostWorkers, spec.OutputWorkers,
		spec.UserInput, spec.UserPost, spec.UserOutput,
	}
	for _, chain := range spec.ComputeChains {
		lists = append(lists, chain)
	}
	for _, ws := range lists {
		for _, w := range ws {
			if w == nil {
				return configErrorf("nil worker in stage list")
			}
		}
	}
	return nil
}

// collapse builds the single-group debug topology: the whole stage
// sequence in one thread, first compute replica only, no orderer.
func collapse[T worker.Sequenced](spec Spec[T]) *Plan[T] {
	var ws []worker.Worker[T]
	ws = append(ws, spec.UserInput...)
	ws = append(ws, worker.NewSequencer[T]())
	ws = append(ws, spec.PreWorkers...)
	if len(spec.ComputeChains) > 0 {
		ws = append(ws, spec.ComputeChains[0]...)
	}
	ws = append(ws, spec.PostWorkers...)
	ws = append(ws, spec.UserPost...)
	ws = append(ws, spec.OutputWorkers...)
	ws = append(ws, spec.UserOutput...)
	if spec.Display != nil {
		ws = append(ws, spec.Display)
	}

	g := GroupSpec[T]{
		Producer: spec.Producer,
		Workers:  ws,
		QueueIn:  NoQueue,
		QueueOut: NoQueue,
	}
	queues := 0
	if spec.ExternalInput {
		g.QueueIn = 0
		queues = 1
	}
	if spec.ExternalOutput {
		g.QueueOut = queues
		queues++
	}
	return &Plan[T]{Groups: []GroupSpec[T]{g}, Threads: 1, Queues: queues}
}

// builder accumulates the group currently being merged into and emits
// it whenever a thread boundary is forced.
type builder[T worker.Sequenced] struct {
	groups     []GroupSpec[T]
	nextThread int
	nextQueue  int
	pending    GroupSpec[T]
}

func newBuilder[T worker.Sequenced](spec Spec[T]) *builder[T] {
	b := &builder[T]{}
	if spec.ExternalInput {
		b.pending = GroupSpec[T]{QueueIn: 0, QueueOut: NoQueue}
		b.nextQueue = 1
	} else {
		b.pending = GroupSpec[T]{Producer: spec.Producer, QueueIn: NoQueue, QueueOut: NoQueue}
	}
	return b
}

func (b *builder[T]) pendingEmpty() bool {
	return b.pending.Producer == nil && len(b.pending.Workers) == 0
}

func (b *builder[T]) merge(ws ...worker.Worker[T]) {
	b.pending.Workers = append(b.pending.Workers, ws...)
}

// cut emits the pending group with a freshly numbered output queue and
// starts a new pending group reading from it. A pending group with no
// producer and no workers is reused instead of emitted.
func (b *builder[T]) cut() {
	if b.pendingEmpty() {
		return
	}
	out := b.nextQueue
	b.nextQueue++
	b.pending.QueueOut = out
	b.pending.ThreadID = b.nextThread
	b.nextThread++
	b.groups = append(b.groups, b.pending)
	b.pending = GroupSpec[T]{QueueIn: out, QueueOut: NoQueue}
}

// inject places an externally supplied stage list: its own group when
// the list requests a thread, merged into the adjacent group otherwise.
func (b *builder[T]) inject(ws []worker.Worker[T], ownThread bool) {
	if len(ws) == 0 {
		return
	}
	if ownThread {
		b.cut()
	}
	b.merge(ws...)
	if ownThread {
		b.cut()
	}
}

// replicate emits one group per compute chain, all sharing the fan-out
// queue written by the preceding group and one fan-in output queue.
func (b *builder[T]) replicate(chains [][]worker.Worker[T]) {
	b.cut()
	in := b.pending.QueueIn
	out := b.nextQueue
	b.nextQueue++
	for _, chain := range chains {
		b.groups = append(b.groups, GroupSpec[T]{
			ThreadID: b.nextThread,
			Workers:  chain,
			QueueIn:  in,
			QueueOut: out,
		})
		b.nextThread++
	}
	b.pending = GroupSpec[T]{QueueIn: out, QueueOut: NoQueue}
}

// finish terminates the plan. With an external output boundary the last
// group writes one final queue that no group reads; otherwise the last
// group is a terminal sink and any queue cut just before the end is
// retracted so no group pushes into a queue nobody drains.
func (b *builder[T]) finish(externalOutput bool) *Plan[T] {
	switch {
	case !b.pendingEmpty():
		b.pending.ThreadID = b.nextThread
		b.nextThread++
		if externalOutput {
			b.pending.QueueOut = b.nextQueue
			b.nextQueue++
		}
		b.groups = append(b.groups, b.pending)
	case !externalOutput:
		dangling := b.pending.QueueIn
		for i := range b.groups {
			if b.groups[i].QueueOut == dangling {
				b.groups[i].QueueOut = NoQueue
			}
		}
		b.nextQueue--
	}
	return &Plan[T]{Groups: b.groups, Threads: b.nextThread, Queues: b.nextQueue}
}
