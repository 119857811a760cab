package worker

import "sync/atomic"

// Sequencer tags every item that enters the pipeline with the next
// sequence id, starting at 0, strictly increasing, never reused. It sits
// immediately after the producer or input boundary so that a downstream
// Orderer can restore arrival order after a replicated region.
type Sequencer[T Sequenced] struct {
	next atomic.Uint64
}

// NewSequencer creates a sequencer whose first assigned id is 0.
func NewSequencer[T Sequenced]() *Sequencer[T] {
	return &Sequencer[T]{}
}

func (s *Sequencer[T]) Name() string { return "sequencer" }

// Process assigns the next id and forwards the item unchanged otherwise.
func (s *Sequencer[T]) Process(item T) ([]T, error) {
	item.SetSeqID(s.next.Add(1) - 1)
	return []T{item}, nil
}

// Assigned returns how many ids have been handed out so far.
func (s *Sequencer[T]) Assigned() uint64 {
	return s.next.Load()
}
