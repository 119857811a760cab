// Package topology turns a declarative pipeline specification into an
// ordered list of thread group descriptors with thread and queue ids
// assigned, validated before any goroutine or queue exists.
package topology

import (
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
)

// NoQueue marks a group side with no queue bound.
const NoQueue = -1

// Spec is the declarative description of one pipeline. The stage
// sequence it describes is fixed:
//
//	entry -> user input -> sequencer -> pre -> compute replicas ->
//	orderer -> post -> user post -> output -> user output -> display
//
// where entry is either an internal Producer or the externally driven
// input boundary queue, the orderer only exists when more than one
// compute replica is configured, and the user lists are externally
// injected stage lists that may request their own thread.
type Spec[T worker.Sequenced] struct {
	// Entry: exactly one of Producer / ExternalInput must be set.
	Producer      worker.Producer[T]
	ExternalInput bool

	// ExternalOutput exposes the final queue to an external consumer.
	ExternalOutput bool

	PreWorkers    []worker.Worker[T]
	ComputeChains [][]worker.Worker[T]
	PostWorkers   []worker.Worker[T]
	OutputWorkers []worker.Worker[T]
	Display       worker.Worker[T]

	UserInput          []worker.Worker[T]
	UserInputOwnThread bool

	UserPost          []worker.Worker[T]
	UserPostOwnThread bool

	UserOutput          []worker.Worker[T]
	UserOutputOwnThread bool

	// MultiThread false collapses the whole sequence into a single
	// group: first compute replica only, no orderer.
	MultiThread bool
}

// GroupSpec describes one thread group of an assembled plan.
type GroupSpec[T worker.Sequenced] struct {
	ThreadID int
	Producer worker.Producer[T]
	Workers  []worker.Worker[T]
	QueueIn  int
	QueueOut int
}

// Plan is a validated, fully numbered topology ready to hand to the
// thread manager.
type Plan[T worker.Sequenced] struct {
	Groups  []GroupSpec[T]
	Threads int
	Queues  int
}

// InputBoundary reports whether queue 0 is externally driven.
func (p *Plan[T]) InputBoundary() bool {
	if len(p.Groups) == 0 {
		return false
	}
	for _, g := range p.Groups {
		if g.QueueOut == 0 {
			return false
		}
	}
	for _, g := range p.Groups {
		if g.QueueIn == 0 {
			return true
		}
	}
	return false
}

// OutputBoundary reports whether the highest queue feeds an external
// consumer.
func (p *Plan[T]) OutputBoundary() bool {
	last := p.Queues - 1
	if last < 0 {
		return false
	}
	for _, g := range p.Groups {
		if g.QueueIn == last {
			return false
		}
	}
	for _, g := range p.Groups {
		if g.QueueOut == last {
			return true
		}
	}
	return false
}
