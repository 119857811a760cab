package worker

import "fmt"

// Orderer restores strict ascending sequence-id order after a replicated
// region. Items arrive in arbitrary relative order but with unique ids;
// the orderer buffers them keyed by id and emits the contiguous run
// starting at the next expected id on every insert.
//
// This is a pure re-sequencing filter, not a blocking wait: an item with
// a smaller id is guaranteed to arrive eventually because every replica
// processes its items in the order it popped them and the fan-out region
// never drops an id. Buffer growth is bounded by the fan-out queue
// capacity multiplied by the replica count.
//
// An Orderer runs inside a single thread group and therefore needs no
// locking.
type Orderer[T Sequenced] struct {
	next uint64
	buf  map[uint64]T
}

// NewOrderer creates an orderer expecting id 0 first.
func NewOrderer[T Sequenced]() *Orderer[T] {
	return &Orderer[T]{buf: make(map[uint64]T)}
}

func (o *Orderer[T]) Name() string { return "orderer" }

// Process inserts the item and emits every consecutively available item
// starting at the next expected id.
func (o *Orderer[T]) Process(item T) ([]T, error) {
	id := item.SeqID()
	if id < o.next {
		return nil, fmt.Errorf("orderer: duplicate sequence id %d (next expected %d)", id, o.next)
	}
	if _, dup := o.buf[id]; dup {
		return nil, fmt.Errorf("orderer: sequence id %d already buffered", id)
	}
	o.buf[id] = item

	var out []T
	for {
		next, ok := o.buf[o.next]
		if !ok {
			break
		}
		delete(o.buf, o.next)
		o.next++
		out = append(out, next)
	}
	return out, nil
}

// Pending returns how many items are buffered waiting for a gap to fill.
func (o *Orderer[T]) Pending() int {
	return len(o.buf)
}
