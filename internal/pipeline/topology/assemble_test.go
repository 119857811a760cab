package topology

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drostifrosti/openpose/internal/pipeline/worker"
)

type item struct{ id uint64 }

func (i *item) SeqID() uint64     { return i.id }
func (i *item) SetSeqID(v uint64) { i.id = v }

type namedStage struct{ name string }

func (s *namedStage) Name() string { return s.name }

func (s *namedStage) Process(it *item) ([]*item, error) { return []*item{it}, nil }

func stage(name string) worker.Worker[*item] { return &namedStage{name: name} }

type nullProducer struct{}

func (nullProducer) Name() string { return "null-producer" }

func (nullProducer) Next() (*item, bool, error) { return nil, false, nil }

func names(g GroupSpec[*item]) []string {
	out := make([]string, len(g.Workers))
	for i, w := range g.Workers {
		out[i] = w.Name()
	}
	return out
}

// groupOf returns the group whose worker chain contains the named stage.
func groupOf(t *testing.T, p *Plan[*item], name string) GroupSpec[*item] {
	t.Helper()
	for _, g := range p.Groups {
		for _, w := range g.Workers {
			if w.Name() == name {
				return g
			}
		}
	}
	t.Fatalf("no group contains stage %q", name)
	return GroupSpec[*item]{}
}

func TestAssembleValidation(t *testing.T) {
	tests := []struct {
		name string
		spec Spec[*item]
	}{
		{
			name: "producer and external input both bound",
			spec: Spec[*item]{
				Producer:      nullProducer{},
				ExternalInput: true,
				OutputWorkers: []worker.Worker[*item]{stage("out")},
				MultiThread:   true,
			},
		},
		{
			name: "no input bound",
			spec: Spec[*item]{
				OutputWorkers: []worker.Worker[*item]{stage("out")},
				MultiThread:   true,
			},
		},
		{
			name: "no output bound",
			spec: Spec[*item]{
				Producer:    nullProducer{},
				MultiThread: true,
			},
		},
		{
			name: "empty compute replica",
			spec: Spec[*item]{
				Producer:      nullProducer{},
				ComputeChains: [][]worker.Worker[*item]{{}},
				OutputWorkers: []worker.Worker[*item]{stage("out")},
				MultiThread:   true,
			},
		},
		{
			name: "nil worker",
			spec: Spec[*item]{
				Producer:      nullProducer{},
				OutputWorkers: []worker.Worker[*item]{nil},
				MultiThread:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Assemble(tt.spec)
			require.Error(t, err)
			assert.Nil(t, plan)

			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestAssembleSynchronousTwoReplicas(t *testing.T) {
	spec := Spec[*item]{
		Producer:   nullProducer{},
		PreWorkers: []worker.Worker[*item]{stage("pre")},
		ComputeChains: [][]worker.Worker[*item]{
			{stage("compute-a")},
			{stage("compute-b")},
		},
		PostWorkers:   []worker.Worker[*item]{stage("post")},
		OutputWorkers: []worker.Worker[*item]{stage("out")},
		MultiThread:   true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 4)
	assert.Equal(t, 4, plan.Threads)
	assert.Equal(t, 2, plan.Queues)

	entry := plan.Groups[0]
	assert.NotNil(t, entry.Producer)
	assert.Equal(t, []string{"sequencer", "pre"}, names(entry))
	assert.Equal(t, NoQueue, entry.QueueIn)
	assert.Equal(t, 0, entry.QueueOut)

	// Replicas share the fan-out and fan-in queue pair, each on its own
	// thread.
	for i, name := range []string{"compute-a", "compute-b"} {
		g := plan.Groups[1+i]
		assert.Equal(t, []string{name}, names(g))
		assert.Equal(t, 0, g.QueueIn)
		assert.Equal(t, 1, g.QueueOut)
		assert.Equal(t, 1+i, g.ThreadID)
	}

	tail := plan.Groups[3]
	assert.Equal(t, []string{"orderer", "post", "out"}, names(tail))
	assert.Equal(t, 1, tail.QueueIn)
	assert.Equal(t, NoQueue, tail.QueueOut)

	assert.False(t, plan.InputBoundary())
	assert.False(t, plan.OutputBoundary())
}

func TestAssembleSingleReplicaOmitsOrderer(t *testing.T) {
	spec := Spec[*item]{
		Producer:      nullProducer{},
		ComputeChains: [][]worker.Worker[*item]{{stage("compute")}},
		OutputWorkers: []worker.Worker[*item]{stage("out")},
		MultiThread:   true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 3)
	assert.Equal(t, []string{"out"}, names(plan.Groups[2]))
}

func TestAssembleCollapse(t *testing.T) {
	spec := Spec[*item]{
		Producer: nullProducer{},
		ComputeChains: [][]worker.Worker[*item]{
			{stage("compute-a")},
			{stage("compute-b")},
		},
		PostWorkers:   []worker.Worker[*item]{stage("post")},
		OutputWorkers: []worker.Worker[*item]{stage("out")},
		Display:       stage("display"),
		MultiThread:   false,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 1, plan.Threads)
	assert.Equal(t, 0, plan.Queues)

	g := plan.Groups[0]
	assert.NotNil(t, g.Producer)
	assert.Equal(t, NoQueue, g.QueueIn)
	assert.Equal(t, NoQueue, g.QueueOut)
	// First replica only, no orderer.
	assert.Equal(t, []string{"sequencer", "compute-a", "post", "out", "display"}, names(g))
}

func TestAssembleCollapseKeepsBoundaries(t *testing.T) {
	spec := Spec[*item]{
		ExternalInput:  true,
		ExternalOutput: true,
		PostWorkers:    []worker.Worker[*item]{stage("post")},
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 0, plan.Groups[0].QueueIn)
	assert.Equal(t, 1, plan.Groups[0].QueueOut)
	assert.Equal(t, 2, plan.Queues)
	assert.True(t, plan.InputBoundary())
	assert.True(t, plan.OutputBoundary())
}

func TestAssembleExternalInput(t *testing.T) {
	spec := Spec[*item]{
		ExternalInput: true,
		OutputWorkers: []worker.Worker[*item]{stage("out")},
		MultiThread:   true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 0, plan.Groups[0].QueueIn)
	assert.Equal(t, NoQueue, plan.Groups[0].QueueOut)
	assert.True(t, plan.InputBoundary())
	assert.False(t, plan.OutputBoundary())
}

func TestAssembleExternalOutput(t *testing.T) {
	spec := Spec[*item]{
		Producer:       nullProducer{},
		PostWorkers:    []worker.Worker[*item]{stage("post")},
		ExternalOutput: true,
		MultiThread:    true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Equal(t, 0, plan.Groups[0].QueueOut)
	assert.Equal(t, 1, plan.Queues)
	assert.True(t, plan.OutputBoundary())
}

func TestAssembleExternalOutputAfterReplicas(t *testing.T) {
	spec := Spec[*item]{
		Producer: nullProducer{},
		ComputeChains: [][]worker.Worker[*item]{
			{stage("compute-a")},
			{stage("compute-b")},
		},
		ExternalOutput: true,
		MultiThread:    true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 4)

	// The orderer group writes the boundary queue.
	tail := plan.Groups[3]
	assert.Equal(t, []string{"orderer"}, names(tail))
	assert.Equal(t, 2, tail.QueueOut)
	assert.Equal(t, 3, plan.Queues)
	assert.True(t, plan.OutputBoundary())
}

func TestAssembleDisplayOwnThread(t *testing.T) {
	spec := Spec[*item]{
		Producer:      nullProducer{},
		OutputWorkers: []worker.Worker[*item]{stage("out")},
		Display:       stage("display"),
		MultiThread:   true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 2)
	assert.Equal(t, []string{"display"}, names(plan.Groups[1]))
	assert.Equal(t, NoQueue, plan.Groups[1].QueueOut)
}

func TestAssembleTrailingOwnThreadSinkIsTerminal(t *testing.T) {
	spec := Spec[*item]{
		Producer:            nullProducer{},
		UserOutput:          []worker.Worker[*item]{stage("user-out")},
		UserOutputOwnThread: true,
		MultiThread:         true,
	}

	plan, err := Assemble(spec)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 2)

	sink := plan.Groups[1]
	assert.Equal(t, []string{"user-out"}, names(sink))
	assert.Equal(t, NoQueue, sink.QueueOut)
	assert.Equal(t, 1, plan.Queues)
	assert.False(t, plan.OutputBoundary())
}

// Every combination of own-thread flags across the three injectable
// positions must yield the same stage order, with own-thread lists
// isolated in their own groups and merged lists sharing a group with
// their adjacent internal stage.
func TestAssembleUserListGrouping(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		inOwn, postOwn, outOwn := mask&1 != 0, mask&2 != 0, mask&4 != 0
		name := fmt.Sprintf("in=%v_post=%v_out=%v", inOwn, postOwn, outOwn)
		t.Run(name, func(t *testing.T) {
			spec := Spec[*item]{
				Producer:            nullProducer{},
				PreWorkers:          []worker.Worker[*item]{stage("pre")},
				PostWorkers:         []worker.Worker[*item]{stage("post")},
				OutputWorkers:       []worker.Worker[*item]{stage("out")},
				UserInput:           []worker.Worker[*item]{stage("user-in")},
				UserInputOwnThread:  inOwn,
				UserPost:            []worker.Worker[*item]{stage("user-post")},
				UserPostOwnThread:   postOwn,
				UserOutput:          []worker.Worker[*item]{stage("user-out")},
				UserOutputOwnThread: outOwn,
				MultiThread:         true,
			}

			plan, err := Assemble(spec)
			require.NoError(t, err)

			// Stage order is invariant across groupings.
			var all []string
			for _, g := range plan.Groups {
				all = append(all, names(g)...)
			}
			assert.Equal(t,
				[]string{"user-in", "sequencer", "pre", "post", "user-post", "out", "user-out"},
				all)

			if inOwn {
				assert.Equal(t, []string{"user-in"}, names(groupOf(t, plan, "user-in")))
			} else {
				assert.Equal(t, groupOf(t, plan, "sequencer").ThreadID,
					groupOf(t, plan, "user-in").ThreadID)
			}
			if postOwn {
				assert.Equal(t, []string{"user-post"}, names(groupOf(t, plan, "user-post")))
			} else {
				assert.Equal(t, groupOf(t, plan, "post").ThreadID,
					groupOf(t, plan, "user-post").ThreadID)
			}
			if outOwn {
				assert.Equal(t, []string{"user-out"}, names(groupOf(t, plan, "user-out")))
			} else {
				assert.Equal(t, groupOf(t, plan, "out").ThreadID,
					groupOf(t, plan, "user-out").ThreadID)
			}

			// Thread and queue ids are dense and monotonic.
			for i, g := range plan.Groups {
				assert.Equal(t, i, g.ThreadID)
			}
			assert.Equal(t, len(plan.Groups), plan.Threads)

			// Last group is always the terminal sink.
			last := plan.Groups[len(plan.Groups)-1]
			assert.Equal(t, NoQueue, last.QueueOut)
		})
	}
}
