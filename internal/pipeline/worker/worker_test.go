package worker

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	seq   uint64
	value int
}

func (i *testItem) SeqID() uint64      { return i.seq }
func (i *testItem) SetSeqID(id uint64) { i.seq = id }

func TestTransformForwardsItem(t *testing.T) {
	w := Transform[*testItem]("double", func(i *testItem) error {
		i.value *= 2
		return nil
	})

	item := &testItem{value: 21}
	out, err := w.Process(item)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, item, out[0])
	assert.Equal(t, 42, item.value)
	assert.Equal(t, "double", w.Name())
}

func TestTransformError(t *testing.T) {
	boom := errors.New("boom")
	w := Transform[*testItem]("failing", func(*testItem) error { return boom })

	out, err := w.Process(&testItem{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestSequencerAssignsMonotonicIDs(t *testing.T) {
	s := NewSequencer[*testItem]()

	for want := uint64(0); want < 100; want++ {
		item := &testItem{seq: 999}
		out, err := s.Process(item)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, want, item.SeqID())
	}
	assert.Equal(t, uint64(100), s.Assigned())
}

func TestSequencerConcurrentUniqueness(t *testing.T) {
	const (
		goroutines = 8
		perWorker  = 500
	)
	s := NewSequencer[*testItem]()

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				item := &testItem{}
				_, err := s.Process(item)
				require.NoError(t, err)
				mu.Lock()
				assert.False(t, seen[item.SeqID()], "id %d assigned twice", item.SeqID())
				seen[item.SeqID()] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perWorker)
	assert.Equal(t, uint64(goroutines*perWorker), s.Assigned())
}

func TestOrdererRestoresOrder(t *testing.T) {
	const items = 10000
	rng := rand.New(rand.NewSource(1))

	perm := rng.Perm(items)
	o := NewOrderer[*testItem]()

	var emitted []uint64
	for _, id := range perm {
		out, err := o.Process(&testItem{seq: uint64(id)})
		require.NoError(t, err)
		for _, item := range out {
			emitted = append(emitted, item.SeqID())
		}
	}

	require.Len(t, emitted, items, "orderer lost or withheld items")
	for i, id := range emitted {
		require.Equal(t, uint64(i), id, "out of order at position %d", i)
	}
	assert.Zero(t, o.Pending())
}

func TestOrdererInterleavedReplicaStreams(t *testing.T) {
	// N replicas each emit an ascending subsequence; any interleaving of
	// those streams must come out in global ascending order.
	const (
		replicas = 8
		items    = 10000
	)
	rng := rand.New(rand.NewSource(7))

	streams := make([][]uint64, replicas)
	for id := uint64(0); id < items; id++ {
		r := rng.Intn(replicas)
		streams[r] = append(streams[r], id)
	}

	o := NewOrderer[*testItem]()
	var emitted []uint64
	for {
		live := make([]int, 0, replicas)
		for r := range streams {
			if len(streams[r]) > 0 {
				live = append(live, r)
			}
		}
		if len(live) == 0 {
			break
		}
		r := live[rng.Intn(len(live))]
		id := streams[r][0]
		streams[r] = streams[r][1:]

		out, err := o.Process(&testItem{seq: id})
		require.NoError(t, err)
		for _, item := range out {
			emitted = append(emitted, item.SeqID())
		}
	}

	require.Len(t, emitted, items)
	for i, id := range emitted {
		require.Equal(t, uint64(i), id)
	}
}

func TestOrdererRejectsDuplicates(t *testing.T) {
	o := NewOrderer[*testItem]()

	// Duplicate of a buffered id.
	_, err := o.Process(&testItem{seq: 5})
	require.NoError(t, err)
	_, err = o.Process(&testItem{seq: 5})
	assert.Error(t, err)

	// Duplicate of an already emitted id.
	o = NewOrderer[*testItem]()
	_, err = o.Process(&testItem{seq: 0})
	require.NoError(t, err)
	_, err = o.Process(&testItem{seq: 0})
	assert.Error(t, err)
}
