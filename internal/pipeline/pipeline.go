// Package pipeline is the public surface of the execution engine: a
// declarative configuration is assembled into thread groups connected by
// bounded queues, started, driven to completion or stopped, and
// optionally fed and drained through an asynchronous boundary API.
package pipeline

import (
	"sync"

	"github.com/drostifrosti/openpose/internal/logging"
	"github.com/drostifrosti/openpose/internal/monitoring"
	"github.com/drostifrosti/openpose/internal/pipeline/thread"
	"github.com/drostifrosti/openpose/internal/pipeline/topology"
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
)

// Mode selects how the pipeline's input and output boundaries are driven.
type Mode int

const (
	// ModeSynchronous runs fully internally: a bound producer feeds the
	// pipeline and internal sinks consume it.
	ModeSynchronous Mode = iota
	// ModeAsynchronous drives both boundaries externally via the
	// emplace and pop APIs.
	ModeAsynchronous
	// ModeAsynchronousIn drives only the input externally.
	ModeAsynchronousIn
	// ModeAsynchronousOut drives only the output externally.
	ModeAsynchronousOut
)

func (m Mode) String() string {
	switch m {
	case ModeSynchronous:
		return "synchronous"
	case ModeAsynchronous:
		return "asynchronous"
	case ModeAsynchronousIn:
		return "asynchronous-in"
	case ModeAsynchronousOut:
		return "asynchronous-out"
	default:
		return "unknown"
	}
}

func (m Mode) externalInput() bool {
	return m == ModeAsynchronous || m == ModeAsynchronousIn
}

func (m Mode) externalOutput() bool {
	return m == ModeAsynchronous || m == ModeAsynchronousOut
}

// Config declares one pipeline. The producer must be nil when the input
// boundary is external, and set otherwise. ComputeChains holds one
// worker chain per parallel replica of the heavy compute region.
type Config[T worker.Sequenced] struct {
	Mode          Mode
	Producer      worker.Producer[T]
	PreWorkers    []worker.Worker[T]
	ComputeChains [][]worker.Worker[T]
	PostWorkers   []worker.Worker[T]
	OutputWorkers []worker.Worker[T]
	Display       worker.Worker[T]
	QueueCapacity int
}

// Pipeline assembles and runs one pipeline topology. The zero value is
// not usable; create instances with New.
type Pipeline[T worker.Sequenced] struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu            sync.Mutex
	cfg           Config[T]
	configured    bool
	multiThread   bool
	userInput     []worker.Worker[T]
	userInputOwn  bool
	userPost      []worker.Worker[T]
	userPostOwn   bool
	userOutput    []worker.Worker[T]
	userOutputOwn bool
	plan          *topology.Plan[T]
	manager       *thread.Manager[T]
}

// Option configures a Pipeline.
type Option[T worker.Sequenced] func(*Pipeline[T])

// WithLogger sets the pipeline logger.
func WithLogger[T worker.Sequenced](log *logging.Logger) Option[T] {
	return func(p *Pipeline[T]) { p.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics[T worker.Sequenced](metrics *monitoring.Metrics) Option[T] {
	return func(p *Pipeline[T]) { p.metrics = metrics }
}

// New creates an unconfigured pipeline.
func New[T worker.Sequenced](opts ...Option[T]) *Pipeline[T] {
	p := &Pipeline[T]{
		log:         logging.NewNop(),
		multiThread: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetInputWorkers registers an externally supplied stage list for the
// input position, replacing any previous list. ownThread gives the list
// its own thread group instead of merging it into the adjacent one.
func (p *Pipeline[T]) SetInputWorkers(ws []worker.Worker[T], ownThread bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInput = ws
	p.userInputOwn = ownThread
}

// SetPostWorkers registers an externally supplied stage list for the
// post-processing position, replacing any previous list.
func (p *Pipeline[T]) SetPostWorkers(ws []worker.Worker[T], ownThread bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userPost = ws
	p.userPostOwn = ownThread
}

// SetOutputWorkers registers an externally supplied stage list for the
// output position, replacing any previous list.
func (p *Pipeline[T]) SetOutputWorkers(ws []worker.Worker[T], ownThread bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userOutput = ws
	p.userOutputOwn = ownThread
}

// DisableMultiThreading collapses the next Configure into a single
// thread group running the whole stage sequence, keeping only the first
// compute replica and no reorder buffer. Debug aid.
func (p *Pipeline[T]) DisableMultiThreading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.multiThread = false
}

// Configure validates the declaration, assembles the topology and
// builds the thread manager. No goroutine or queue outlives a failed
// Configure. Calling it again after Reset assembles a fresh topology.
func (p *Pipeline[T]) Configure(cfg Config[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manager != nil && p.manager.IsRunning() {
		return ErrAlreadyRunning
	}

	spec := topology.Spec[T]{
		Producer:            cfg.Producer,
		ExternalInput:       cfg.Mode.externalInput(),
		ExternalOutput:      cfg.Mode.externalOutput(),
		PreWorkers:          cfg.PreWorkers,
		ComputeChains:       cfg.ComputeChains,
		PostWorkers:         cfg.PostWorkers,
		OutputWorkers:       cfg.OutputWorkers,
		Display:             cfg.Display,
		UserInput:           p.userInput,
		UserInputOwnThread:  p.userInputOwn,
		UserPost:            p.userPost,
		UserPostOwnThread:   p.userPostOwn,
		UserOutput:          p.userOutput,
		UserOutputOwnThread: p.userOutputOwn,
		MultiThread:         p.multiThread,
	}
	plan, err := topology.Assemble(spec)
	if err != nil {
		return err
	}

	capacity := cfg.QueueCapacity
	if capacity < 1 {
		capacity = thread.DefaultQueueCapacity
	}
	manager := thread.NewManager[T](
		thread.WithLogger[T](p.log),
		thread.WithMetrics[T](p.metrics),
		thread.WithQueueCapacity[T](capacity),
	)
	for _, g := range plan.Groups {
		if g.Producer != nil {
			err = manager.AddProducer(g.ThreadID, g.Producer, g.Workers, g.QueueOut)
		} else {
			err = manager.Add(g.ThreadID, g.Workers, g.QueueIn, g.QueueOut)
		}
		if err != nil {
			return err
		}
	}

	p.cfg = cfg
	p.plan = plan
	p.manager = manager
	p.configured = true
	return nil
}

// Start launches the pipeline without blocking.
func (p *Pipeline[T]) Start() error {
	m, err := p.runnable()
	if err != nil {
		return err
	}
	return m.Start()
}

// Exec launches the pipeline and blocks until it reaches Stopped,
// whether by natural drain, Stop, or a stage failure, which it returns.
func (p *Pipeline[T]) Exec() error {
	m, err := p.runnable()
	if err != nil {
		return err
	}
	return m.Exec()
}

// Stop halts the run and joins every thread group. Idempotent; a no-op
// before Start.
func (p *Pipeline[T]) Stop() {
	if m := p.currentManager(); m != nil {
		m.Stop()
	}
}

// RequestStop signals shutdown without waiting for the threads to join,
// safe to call from an external collaborator such as a display handle.
func (p *Pipeline[T]) RequestStop() {
	if m := p.currentManager(); m != nil {
		m.RequestStop()
	}
}

// IsRunning reports whether a run is in flight.
func (p *Pipeline[T]) IsRunning() bool {
	m := p.currentManager()
	return m != nil && m.IsRunning()
}

// Err returns the stage failure that terminated the last run, or nil.
func (p *Pipeline[T]) Err() error {
	if m := p.currentManager(); m != nil {
		return m.Err()
	}
	return nil
}

// Reset tears down the assembled topology and injected stage lists,
// returning the pipeline to a fresh unconfigured state. Only valid when
// no run is in flight.
func (p *Pipeline[T]) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manager != nil {
		if err := p.manager.Reset(); err != nil {
			return err
		}
	}
	p.cfg = Config[T]{}
	p.configured = false
	p.plan = nil
	p.manager = nil
	p.userInput, p.userInputOwn = nil, false
	p.userPost, p.userPostOwn = nil, false
	p.userOutput, p.userOutputOwn = nil, false
	return nil
}

// TryEmplace moves an item into the pipeline's input boundary without
// blocking. ok=false means the queue is full or the pipeline stopped.
func (p *Pipeline[T]) TryEmplace(item T) (bool, error) {
	m, err := p.inputManager()
	if err != nil {
		return false, err
	}
	return m.TryEmplace(item), nil
}

// WaitAndEmplace moves an item into the input boundary, blocking until
// there is capacity or the pipeline stops.
func (p *Pipeline[T]) WaitAndEmplace(item T) (bool, error) {
	m, err := p.inputManager()
	if err != nil {
		return false, err
	}
	return m.WaitAndEmplace(item), nil
}

// TryPush is TryEmplace for callers that retain their reference; with
// pointer item types the two are identical hand-offs.
func (p *Pipeline[T]) TryPush(item T) (bool, error) {
	return p.TryEmplace(item)
}

// WaitAndPush is the blocking variant of TryPush.
func (p *Pipeline[T]) WaitAndPush(item T) (bool, error) {
	return p.WaitAndEmplace(item)
}

// TryPop retrieves a processed item from the output boundary without
// blocking.
func (p *Pipeline[T]) TryPop() (T, bool, error) {
	m, err := p.outputManager()
	if err != nil {
		var zero T
		return zero, false, err
	}
	item, ok := m.TryPop()
	return item, ok, nil
}

// WaitAndPop retrieves a processed item from the output boundary,
// blocking until one is available or the pipeline stops.
func (p *Pipeline[T]) WaitAndPop() (T, bool, error) {
	m, err := p.outputManager()
	if err != nil {
		var zero T
		return zero, false, err
	}
	item, ok := m.WaitAndPop()
	return item, ok, nil
}

func (p *Pipeline[T]) currentManager() *thread.Manager[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.manager
}

func (p *Pipeline[T]) runnable() (*thread.Manager[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return nil, ErrNotConfigured
	}
	return p.manager, nil
}

// inputManager guards the emplace/push family: calling it with an
// internal producer bound is a configuration misuse, detected at call
// time.
func (p *Pipeline[T]) inputManager() (*thread.Manager[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return nil, ErrNotConfigured
	}
	if !p.cfg.Mode.externalInput() {
		return nil, ErrInputBound
	}
	return p.manager, nil
}

func (p *Pipeline[T]) outputManager() (*thread.Manager[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return nil, ErrNotConfigured
	}
	if !p.cfg.Mode.externalOutput() {
		return nil, ErrOutputBound
	}
	return p.manager, nil
}
