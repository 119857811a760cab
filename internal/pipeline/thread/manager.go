package thread

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/drostifrosti/openpose/internal/logging"
	"github.com/drostifrosti/openpose/internal/monitoring"
	"github.com/drostifrosti/openpose/internal/pipeline/queue"
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
	"github.com/drostifrosti/openpose/internal/shared/id"
)

// NoQueue marks a group side with no queue bound: a producer-fed group
// has no input queue, a terminal sink group has no output queue.
const NoQueue = -1

// DefaultQueueCapacity bounds in-flight items between adjacent groups
// unless overridden.
const DefaultQueueCapacity = 4

// State is the manager lifecycle state.
type State int

const (
	// Idle means no run is in flight; groups may be added.
	Idle State = iota
	// Running means thread goroutines are live.
	Running
	// Stopped means the last run finished; Reset returns to Idle.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type groupSpec[T any] struct {
	threadID int
	producer worker.Producer[T]
	workers  []worker.Worker[T]
	queueIn  int
	queueOut int
}

// Manager owns every thread group and queue of one assembled topology and
// drives the run lifecycle. All control methods are safe for concurrent
// use and none of them blocks on pipeline data flow.
type Manager[T any] struct {
	log           *logging.Logger
	metrics       *monitoring.Metrics
	queueCapacity int

	running atomic.Bool

	mu       sync.Mutex
	state    State
	specs    []groupSpec[T]
	queues   []*queue.Queue[T]
	groups   []*Group[T]
	inBound  *queue.Queue[T]
	outBound *queue.Queue[T]
	runID    id.RunID
	runErr   error
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option[T any] func(*Manager[T])

// WithLogger sets the manager logger.
func WithLogger[T any](log *logging.Logger) Option[T] {
	return func(m *Manager[T]) { m.log = log }
}

// WithMetrics sets the metrics sink. A nil sink disables metrics.
func WithMetrics[T any](metrics *monitoring.Metrics) Option[T] {
	return func(m *Manager[T]) { m.metrics = metrics }
}

// WithQueueCapacity sets the capacity of every queue built by the manager.
func WithQueueCapacity[T any](capacity int) Option[T] {
	return func(m *Manager[T]) { m.queueCapacity = capacity }
}

// NewManager creates an idle manager with no groups.
func NewManager[T any](opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{
		log:           logging.NewNop(),
		queueCapacity: DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a queue-fed thread group. Groups sharing a threadID are
// stepped round-robin by one goroutine, in the order they were added.
func (m *Manager[T]) Add(threadID int, workers []worker.Worker[T], queueIn, queueOut int) error {
	if queueIn < 0 {
		return errors.New("queue-fed group needs an input queue id")
	}
	return m.add(groupSpec[T]{threadID: threadID, workers: workers, queueIn: queueIn, queueOut: queueOut})
}

// AddProducer appends a producer-fed thread group, the entry point of a
// topology whose input is not externally driven.
func (m *Manager[T]) AddProducer(threadID int, producer worker.Producer[T], workers []worker.Worker[T], queueOut int) error {
	if producer == nil {
		return errors.New("producer must not be nil")
	}
	return m.add(groupSpec[T]{threadID: threadID, producer: producer, workers: workers, queueIn: NoQueue, queueOut: queueOut})
}

func (m *Manager[T]) add(spec groupSpec[T]) error {
	for _, w := range spec.workers {
		if w == nil {
			return errors.New("worker must not be nil")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return ErrAlreadyRunning
	}
	m.specs = append(m.specs, spec)
	return nil
}

// Start launches one goroutine per thread id and returns without
// blocking. The pipeline transitions to Stopped on its own when every
// group drains, or when Stop is called, or on the first stage failure.
func (m *Manager[T]) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case Running:
		return ErrAlreadyRunning
	case Stopped:
		return ErrNotStopped
	}
	if len(m.specs) == 0 {
		return ErrNoGroups
	}

	m.buildLocked()
	m.runID = id.NewRunID()
	m.runErr = nil
	m.done = make(chan struct{})
	m.state = Running
	m.running.Store(true)
	m.metrics.RunStarted()

	buckets, order := m.bucketsLocked()
	m.log.Info("pipeline starting",
		zap.String("run_id", m.runID.String()),
		zap.Int("threads", len(order)),
		zap.Int("queues", len(m.queues)),
		zap.Int("groups", len(m.groups)))

	for _, threadID := range order {
		groups := buckets[threadID]
		m.wg.Add(1)
		go m.runThread(threadID, groups)
	}
	go m.supervise(m.done)
	return nil
}

// Exec starts the pipeline and blocks the calling goroutine until the
// run reaches Stopped, returning the failure reason if any.
func (m *Manager[T]) Exec() error {
	if err := m.Start(); err != nil {
		return err
	}
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	<-done
	return m.Err()
}

// Stop clears the running flag, closes every queue (unblocking every
// waiter in bounded time) and joins all thread goroutines. It is
// idempotent and safe from any goroutine outside the pipeline's own
// threads; a stage that wants to end the run returns worker.ErrStop or
// calls RequestStop instead.
func (m *Manager[T]) Stop() {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return
	}
	m.signalStopLocked()
	done := m.done
	m.mu.Unlock()
	<-done
}

// RequestStop signals shutdown without joining, safe from inside a stage
// or any external collaborator holding a control handle.
func (m *Manager[T]) RequestStop() {
	m.mu.Lock()
	if m.state == Running {
		m.signalStopLocked()
	}
	m.mu.Unlock()
}

// IsRunning reports whether the running flag is set. Safe to call
// concurrently with Start and Stop.
func (m *Manager[T]) IsRunning() bool {
	return m.running.Load()
}

// State returns the current lifecycle state.
func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the failure that terminated the last run, or nil after a
// clean drain or an explicit stop.
func (m *Manager[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runErr
}

// RunID returns the id of the current or most recent run.
func (m *Manager[T]) RunID() id.RunID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runID
}

// Reset tears down groups and queues and returns to a fresh Idle state.
// Only valid once Stopped (or never started).
func (m *Manager[T]) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Running {
		return ErrNotStopped
	}
	m.specs = nil
	m.queues = nil
	m.groups = nil
	m.inBound = nil
	m.outBound = nil
	m.runErr = nil
	m.done = nil
	m.runID = ""
	m.state = Idle
	return nil
}

// TryEmplace pushes an item onto the pipeline's input boundary queue
// without blocking. It reports false when no input boundary exists, the
// queue is full, or the pipeline stopped.
func (m *Manager[T]) TryEmplace(item T) bool {
	if q := m.inputBoundary(); q != nil {
		return q.TryPush(item)
	}
	return false
}

// WaitAndEmplace blocks until the input boundary queue has capacity or
// the pipeline stops.
func (m *Manager[T]) WaitAndEmplace(item T) bool {
	if q := m.inputBoundary(); q != nil {
		return q.WaitAndPush(item)
	}
	return false
}

// TryPop retrieves a processed item from the output boundary queue
// without blocking.
func (m *Manager[T]) TryPop() (T, bool) {
	if q := m.outputBoundary(); q != nil {
		return q.TryPop()
	}
	var zero T
	return zero, false
}

// WaitAndPop blocks until a processed item is available on the output
// boundary queue or the pipeline stops.
func (m *Manager[T]) WaitAndPop() (T, bool) {
	if q := m.outputBoundary(); q != nil {
		return q.WaitAndPop()
	}
	var zero T
	return zero, false
}

// HasInputBoundary reports whether the current topology exposes its first
// queue to an external producer.
func (m *Manager[T]) HasInputBoundary() bool { return m.inputBoundary() != nil }

// HasOutputBoundary reports whether the current topology exposes its last
// queue to an external consumer.
func (m *Manager[T]) HasOutputBoundary() bool { return m.outputBoundary() != nil }

func (m *Manager[T]) inputBoundary() *queue.Queue[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inBound
}

func (m *Manager[T]) outputBoundary() *queue.Queue[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outBound
}

// buildLocked instantiates queues and groups from the recorded specs and
// computes the boundary ports: queue 0 is the input boundary when no
// group writes it, the highest queue is the output boundary when no
// group reads it.
func (m *Manager[T]) buildLocked() {
	maxQueue := -1
	for _, spec := range m.specs {
		if spec.queueIn > maxQueue {
			maxQueue = spec.queueIn
		}
		if spec.queueOut > maxQueue {
			maxQueue = spec.queueOut
		}
	}

	m.queues = make([]*queue.Queue[T], maxQueue+1)
	for i := range m.queues {
		m.queues[i] = queue.New[T](i, m.queueCapacity)
	}

	read := make(map[int]bool)
	written := make(map[int]bool)
	m.groups = make([]*Group[T], len(m.specs))
	for i, spec := range m.specs {
		g := &Group[T]{
			threadID: spec.threadID,
			producer: spec.producer,
			workers:  spec.workers,
			metrics:  m.metrics,
		}
		if spec.queueIn != NoQueue {
			g.in = m.queues[spec.queueIn]
			read[spec.queueIn] = true
		}
		if spec.queueOut != NoQueue {
			g.out = m.queues[spec.queueOut]
			g.out.AddWriter()
			written[spec.queueOut] = true
		}
		m.groups[i] = g
	}

	m.inBound = nil
	if len(m.queues) > 0 && read[0] && !written[0] {
		m.inBound = m.queues[0]
	}
	m.outBound = nil
	if maxQueue >= 0 && written[maxQueue] && !read[maxQueue] {
		m.outBound = m.queues[maxQueue]
	}
}

// bucketsLocked partitions groups by thread id, preserving the order in
// which thread ids first appeared.
func (m *Manager[T]) bucketsLocked() (map[int][]*Group[T], []int) {
	buckets := make(map[int][]*Group[T])
	var order []int
	for _, g := range m.groups {
		if _, seen := buckets[g.threadID]; !seen {
			order = append(order, g.threadID)
		}
		buckets[g.threadID] = append(buckets[g.threadID], g)
	}
	return buckets, order
}

func (m *Manager[T]) runThread(threadID int, groups []*Group[T]) {
	defer m.wg.Done()
	log := m.log.WithRun(m.runID.String()).WithThread(threadID)
	log.Debug("thread group started", zap.Int("groups", len(groups)))
	defer func() {
		for _, g := range groups {
			g.detach()
		}
		log.Debug("thread group exited")
	}()

	for m.running.Load() {
		for _, g := range groups {
			done, err := g.step()
			if errors.Is(err, worker.ErrStop) {
				log.Info("stage requested pipeline stop")
				m.RequestStop()
				return
			}
			if err != nil {
				m.fail(err)
				return
			}
			if done {
				return
			}
		}
	}
}

// supervise waits for every thread goroutine and performs the single
// Running -> Stopped transition, whether the run drained naturally,
// failed, or was stopped.
func (m *Manager[T]) supervise(done chan struct{}) {
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.running.Store(false)
	for _, q := range m.queues {
		q.Close()
	}
	m.state = Stopped
	m.metrics.RunStopped()
	if m.runErr != nil {
		m.log.Error("pipeline stopped on failure",
			zap.String("run_id", m.runID.String()), zap.Error(m.runErr))
	} else {
		m.log.Info("pipeline stopped", zap.String("run_id", m.runID.String()))
	}
	close(done)
}

// fail records the first fatal stage error and initiates shutdown.
func (m *Manager[T]) fail(err error) {
	m.mu.Lock()
	if m.runErr == nil {
		m.runErr = err
	}
	if m.state == Running {
		m.signalStopLocked()
	}
	m.mu.Unlock()
	m.log.Error("stage failure, stopping pipeline", zap.Error(err))
}

// signalStopLocked clears the running flag and closes every queue so all
// blocked pushes and pops observe failure in bounded time.
func (m *Manager[T]) signalStopLocked() {
	m.running.Store(false)
	for _, q := range m.queues {
		q.Close()
	}
}
