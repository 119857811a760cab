package worker

import "errors"

// ErrStop is returned by a worker that wants the whole pipeline to shut
// down without reporting a failure, e.g. a display sink whose window was
// closed. The owning thread group translates it into a stop request
// instead of a stage error.
var ErrStop = errors.New("worker requested pipeline stop")

// Worker is a single processing stage. Process transforms one item and
// returns the items to forward to the next stage, usually the input item
// itself. An empty slice withholds the item; a non-nil error is fatal and
// terminates the pipeline run.
type Worker[T any] interface {
	Name() string
	Process(item T) ([]T, error)
}

// Producer generates the items that enter a pipeline. Next returns the
// next item, ok=false on end-of-stream, or an error on fatal failure.
type Producer[T any] interface {
	Name() string
	Next() (T, bool, error)
}

// Sequenced is the constraint every pipeline item type must satisfy: a
// mutable, monotonically assigned sequence id used to restore ordering
// after a replicated region.
type Sequenced interface {
	SeqID() uint64
	SetSeqID(uint64)
}

type transform[T any] struct {
	name string
	fn   func(T) error
}

// Transform adapts an in-place 1-to-1 transform function into a Worker.
func Transform[T any](name string, fn func(T) error) Worker[T] {
	return &transform[T]{name: name, fn: fn}
}

func (t *transform[T]) Name() string { return t.name }

func (t *transform[T]) Process(item T) ([]T, error) {
	if err := t.fn(item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}
