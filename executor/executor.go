package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/gavinzl/framepipe/frame"
	"github.com/gavinzl/framepipe/graph"
	"github.com/gavinzl/framepipe/internal/parallel"
)

// ExecutionMode selects how the executor schedules a frame's nodes.
type ExecutionMode int

const (
	// DependencyDriven submits each node the instant every one of its
	// predecessors has completed, without waiting for the rest of that
	// node's layer — the finer-grained schedule, matching the
	// original's submitEntityTask/submitDownstreamTasks chain.
	DependencyDriven ExecutionMode = iota
	// Layered submits every node in a layer together and waits for the
	// whole layer before advancing — coarser-grained but simpler to
	// reason about, useful when a graph's layers are narrow and the
	// dependency-driven schedule's bookkeeping isn't worth it.
	Layered
)

// String renders the mode for logs and diagnostics.
func (m ExecutionMode) String() string {
	switch m {
	case DependencyDriven:
		return "DependencyDriven"
	case Layered:
		return "Layered"
	default:
		return "Unknown"
	}
}

// Config configures an Executor.
type Config struct {
	// CPUWorkers sizes the CPU queue's worker pool; 0 selects
	// GOMAXPROCS.
	CPUWorkers int
	// IOWorkers sizes the I/O queue's worker pool.
	IOWorkers int
	// MaxPendingFrames bounds how many frames may be in flight at
	// once when EnableFrameSkipping is set; ProcessFrame drops a frame
	// that arrives once this many are pending. 0 disables the check.
	MaxPendingFrames int
	// EnableFrameSkipping, when true, makes ProcessFrame drop a frame
	// that would exceed MaxPendingFrames. When false, the pending count
	// rejects nothing and never blocks the caller; admission then
	// depends only on the frame pool wired with SetFramePool, if any.
	EnableFrameSkipping bool
	// Mode selects the scheduling strategy.
	Mode ExecutionMode
}

// DefaultConfig mirrors the reference ExecutorConfig defaults.
func DefaultConfig() Config {
	return Config{
		MaxPendingFrames:    5,
		EnableFrameSkipping: true,
		Mode:                DependencyDriven,
	}
}

// resettable is implemented by graph.BaseNode-embedding nodes; the
// executor uses it to clear per-frame port/state bookkeeping between
// frames without requiring every Node to expose it through the core
// interface.
type resettable interface {
	ResetForNextFrame()
}

// errorSetter is implemented by graph.BaseNode-embedding nodes; the
// executor uses it to transition a node into StateError on a Process
// failure without requiring every Node to expose it through the core
// interface.
type errorSetter interface {
	SetError(message string)
}

// Executor dispatches a graph's nodes onto per-QueueKind worker pools
// and drives frames through it in topological order, grounded on the
// original's PipelineExecutor (processFrame, submitEntityTask,
// submitDownstreamTasks, areAllDependenciesReady, onEntityComplete,
// onFrameComplete, shouldSkipFrame).
type Executor struct {
	g      *graph.Graph
	config Config

	queues map[graph.QueueKind]*parallel.WorkerPool

	mu      sync.Mutex
	running bool

	pendingMu sync.Mutex
	pending   int

	framePool framePacketPool

	stats statsTracker

	onFrameComplete func(*frame.Packet)
	onFrameDropped  func(*frame.Packet)
	onError         func(graph.NodeID, error)
}

// framePacketPool is the subset of pool.FramePacketPool admission
// needs; declared locally so executor does not import the pool
// package (which in turn depends on frame, not executor — a plain
// field of the concrete type would work too, but the narrower
// interface keeps this package's admission logic testable without
// constructing a real pool).
type framePacketPool interface {
	Acquire() *frame.Packet
	Release(pkt *frame.Packet)
}

// SetFramePool wires the frame-packet pool ProcessFrame acquires an
// admission ticket from. Called before Start; a nil pool (the
// default) falls back to the pending-frame counter alone.
func (e *Executor) SetFramePool(p framePacketPool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.framePool = p
}

// New creates an Executor over g. Start must be called before
// ProcessFrame.
func New(g *graph.Graph, config Config) *Executor {
	return &Executor{g: g, config: config}
}

// Start initializes the executor's worker queues. Calling Start twice
// without an intervening Close is a no-op.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.queues = newQueueSet(e.config.CPUWorkers, e.config.IOWorkers)
	e.running = true
}

// Close shuts down the executor's worker queues, waiting for any
// in-flight work to drain first.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	closeQueueSet(e.queues)
	e.running = false
}

// IsRunning reports whether Start has been called without a matching
// Close.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetFrameCompleteCallback registers the function called once every
// node in the graph has finished processing a frame.
func (e *Executor) SetFrameCompleteCallback(fn func(*frame.Packet)) { e.onFrameComplete = fn }

// SetFrameDroppedCallback registers the function called when
// ProcessFrame drops a frame under back-pressure.
func (e *Executor) SetFrameDroppedCallback(fn func(*frame.Packet)) { e.onFrameDropped = fn }

// SetErrorCallback registers the function called when a node's
// Process returns an error.
func (e *Executor) SetErrorCallback(fn func(graph.NodeID, error)) { e.onError = fn }

// PendingFrameCount returns the number of frames currently in flight.
func (e *Executor) PendingFrameCount() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.pending
}

// shouldSkipFrame reports whether admission should reject a new frame
// because MaxPendingFrames has been reached.
func (e *Executor) shouldSkipFrame() bool {
	if !e.config.EnableFrameSkipping {
		return false
	}
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return e.config.MaxPendingFrames > 0 && e.pending >= e.config.MaxPendingFrames
}

// ProcessFrame drives one frame through every node in the graph,
// starting from src's output already staged as the source nodes'
// emitted packets (the caller is expected to have already called
// Process on any SourceNode and set its output ports, or to rely on a
// SourceNode embedded in the graph — ProcessFrame itself only
// dispatches Process for nodes already wired into the graph).
// ProcessFrame blocks until the frame completes (or, in either mode,
// returns false without running any node if admission rejects it).
//
// Admission first checks the pending count: with EnableFrameSkipping
// set and MaxPendingFrames > 0, a frame arriving once PendingFrames
// has reached MaxPendingFrames is dropped without blocking. Then, if a
// frame pool is wired (SetFramePool), a ticket is acquired from it;
// Acquire may block up to the pool's own timeout, and a nil result
// drops the frame whatever EnableFrameSkipping says.
func (e *Executor) ProcessFrame(ctx *frame.Context) bool {
	if e.shouldSkipFrame() {
		e.stats.recordDropped()
		if e.onFrameDropped != nil {
			e.onFrameDropped(nil)
		}
		return false
	}

	var admission *frame.Packet
	if e.framePool != nil {
		admission = e.framePool.Acquire()
		if admission == nil {
			e.stats.recordDropped()
			if e.onFrameDropped != nil {
				e.onFrameDropped(nil)
			}
			return false
		}
	}

	e.pendingMu.Lock()
	e.pending++
	e.pendingMu.Unlock()
	defer func() {
		e.pendingMu.Lock()
		e.pending--
		e.pendingMu.Unlock()
		if e.framePool != nil {
			e.framePool.Release(admission)
		}
	}()

	start := time.Now()
	e.resetNodesForFrame()

	var err error
	switch e.config.Mode {
	case Layered:
		err = e.runLayered(ctx)
	default:
		err = e.runDependencyDriven(ctx)
	}

	e.stats.recordFrame(time.Since(start).Microseconds())
	if err != nil {
		return false
	}
	if e.onFrameComplete != nil {
		e.onFrameComplete(nil)
	}
	return true
}

func (e *Executor) resetNodesForFrame() {
	for _, n := range e.g.Nodes() {
		if r, ok := n.(resettable); ok {
			r.ResetForNextFrame()
		}
	}
}

// submitNode runs n's Prepare/Process/Finalize on the queue matching
// its QueueKind, then forwards its outputs to every connected input.
// A panic inside the node is recovered and reported as an error, the
// same way a returned error is.
func (e *Executor) submitNode(ctx *frame.Context, n graph.Node, onDone func(error)) {
	queue := e.queues[n.QueueKind()]
	queueLabel := n.QueueKind().String()

	queue.Submit(func() {
		start := time.Now()
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("executor: node %d (%s) panicked: %v", n.ID(), n.Name(), r)
				}
			}()
			return e.runNode(ctx, n)
		}()
		e.stats.addQueueTime(queueLabel, time.Since(start).Microseconds())

		if err != nil && e.onError != nil {
			e.onError(n.ID(), err)
		}
		onDone(err)
	})
}

func (e *Executor) runNode(ctx *frame.Context, n graph.Node) error {
	if n.Cancelled() {
		return nil
	}

	inputs, outputs := n.Ports()
	inPackets := make([]*frame.Packet, len(inputs))
	for i, port := range inputs {
		inPackets[i] = port.Packet()
	}
	outPackets := make([]*frame.Packet, len(outputs))

	if err := n.Prepare(ctx); err != nil {
		return fmt.Errorf("executor: node %d (%s) Prepare: %w", n.ID(), n.Name(), err)
	}
	if err := n.Process(ctx, inPackets, outPackets); err != nil {
		_ = n.Finalize(ctx)
		if es, ok := n.(errorSetter); ok {
			es.SetError(err.Error())
		}
		return fmt.Errorf("executor: node %d (%s) Process: %w", n.ID(), n.Name(), err)
	}
	for i, port := range outputs {
		port.SetPacket(outPackets[i])
		port.Send()
	}
	return n.Finalize(ctx)
}

// runLayered submits each of the graph's layers in turn, waiting for
// every node in a layer to complete before submitting the next layer.
func (e *Executor) runLayered(ctx *frame.Context) error {
	layers, err := e.g.Layers()
	if err != nil {
		return fmt.Errorf("executor: %w", err)
	}

	var firstErr error
	var mu sync.Mutex
	failed := make(map[graph.NodeID]bool)

	for _, layer := range layers {
		var wg sync.WaitGroup
		wg.Add(len(layer))
		for _, id := range layer {
			id := id
			n, ok := e.g.Node(id)
			if !ok {
				wg.Done()
				continue
			}

			mu.Lock()
			skip := false
			for _, pred := range e.g.Predecessors(id) {
				if failed[pred] {
					skip = true
					break
				}
			}
			if skip {
				failed[id] = true
			}
			mu.Unlock()
			if skip {
				n.Cancel()
				wg.Done()
				continue
			}

			e.submitNode(ctx, n, func(err error) {
				if err != nil {
					mu.Lock()
					failed[id] = true
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
				wg.Done()
			})
		}
		wg.Wait()
	}
	return firstErr
}

// frameState tracks, for one in-flight frame, how many of each node's
// predecessors have completed and which nodes have already run. It is
// the Go analog of the original's FrameExecutionState.
type frameState struct {
	mu        sync.Mutex
	remaining map[graph.NodeID]int
	completed map[graph.NodeID]bool
	failed    map[graph.NodeID]bool
	total     int
	done      int
	doneCh    chan struct{}
	firstErr  error
}

// runDependencyDriven submits a node as soon as every one of its
// predecessors has completed, rather than waiting for its whole layer,
// matching the original's submitEntityTask/submitDownstreamTasks chain
// reaction.
func (e *Executor) runDependencyDriven(ctx *frame.Context) error {
	nodes := e.g.Nodes()
	state := &frameState{
		remaining: make(map[graph.NodeID]int, len(nodes)),
		completed: make(map[graph.NodeID]bool, len(nodes)),
		failed:    make(map[graph.NodeID]bool, len(nodes)),
		total:     len(nodes),
		doneCh:    make(chan struct{}),
	}
	if len(nodes) == 0 {
		close(state.doneCh)
		return nil
	}

	var ready []graph.NodeID
	for _, n := range nodes {
		deg := e.g.InDegree(n.ID())
		state.remaining[n.ID()] = deg
		if deg == 0 {
			ready = append(ready, n.ID())
		}
	}

	for _, id := range ready {
		e.dispatchDependencyNode(ctx, state, id)
	}

	<-state.doneCh
	return state.firstErr
}

func (e *Executor) dispatchDependencyNode(ctx *frame.Context, state *frameState, id graph.NodeID) {
	n, ok := e.g.Node(id)
	if !ok {
		e.onNodeComplete(ctx, state, id, nil, false)
		return
	}
	e.submitNode(ctx, n, func(err error) {
		e.onNodeComplete(ctx, state, id, err, false)
	})
}

// skipDependencyNode marks id cancelled for this frame and folds it
// into the completion bookkeeping without running Process — used for
// nodes downstream of a failed predecessor, per the "no subsequent
// nodes in that frame are dispatched" failure contract.
func (e *Executor) skipDependencyNode(ctx *frame.Context, state *frameState, id graph.NodeID) {
	if n, ok := e.g.Node(id); ok {
		n.Cancel()
	}
	e.onNodeComplete(ctx, state, id, nil, true)
}

func (e *Executor) onNodeComplete(ctx *frame.Context, state *frameState, id graph.NodeID, err error, skipped bool) {
	state.mu.Lock()
	if state.completed[id] {
		state.mu.Unlock()
		return
	}
	state.completed[id] = true
	state.done++
	if err != nil {
		state.failed[id] = true
		if state.firstErr == nil {
			state.firstErr = err
		}
	}
	if skipped {
		state.failed[id] = true
	}
	finished := state.done == state.total
	var toDispatch, toSkip []graph.NodeID
	for _, succ := range e.g.Successors(id) {
		state.remaining[succ]--
		if state.remaining[succ] == 0 {
			if nodeHasFailedPredecessor(e.g, state, succ) {
				toSkip = append(toSkip, succ)
			} else {
				toDispatch = append(toDispatch, succ)
			}
		}
	}
	state.mu.Unlock()

	for _, succID := range toDispatch {
		e.dispatchDependencyNode(ctx, state, succID)
	}
	for _, succID := range toSkip {
		e.skipDependencyNode(ctx, state, succID)
	}
	if finished {
		close(state.doneCh)
	}
}

// nodeHasFailedPredecessor reports whether any of id's predecessors
// failed or was itself skipped. Caller must hold state.mu.
func nodeHasFailedPredecessor(g *graph.Graph, state *frameState, id graph.NodeID) bool {
	for _, pred := range g.Predecessors(id) {
		if state.failed[pred] {
			return true
		}
	}
	return false
}

// CancelAll requests cooperative cancellation on every node in the
// graph.
func (e *Executor) CancelAll() {
	for _, n := range e.g.Nodes() {
		n.Cancel()
	}
}

// Stats returns a snapshot of the executor's cumulative performance
// counters.
func (e *Executor) Stats() ExecutionStats {
	return e.stats.snapshot()
}

// ResetStats zeroes the executor's cumulative performance counters.
func (e *Executor) ResetStats() {
	e.stats.reset()
}
