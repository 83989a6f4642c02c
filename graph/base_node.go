package graph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavinzl/framepipe/frame"
	"github.com/gavinzl/framepipe/internal/idgen"
)

// NodeState is a node's lifecycle state for the current frame.
type NodeState int32

const (
	// StateIdle is the state before Prepare has been called for the
	// current frame.
	StateIdle NodeState = iota
	StatePreparing
	StateProcessing
	StateFinalizing
	StateCompleted
	StateCancelled
	StateError
)

// String renders the node state for logs and DOT/JSON exports.
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateProcessing:
		return "processing"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// BaseNode provides the id, name, port, parameter, state, and
// statistics bookkeeping every concrete node kind shares. Embed it (or
// one of GPUNodeBase/CPUNodeBase/IONodeBase/CompositeNodeBase, which
// embed it in turn) and implement Process.
type BaseNode struct {
	id   NodeID
	name string

	inputs  []*InputPort
	outputs []*OutputPort

	paramsMu sync.Mutex
	params   map[string]frame.Value

	state     atomic.Int32
	cancelled atomic.Bool
	errMu     sync.Mutex
	errMsg    string

	lastProcessDuration  atomic.Int64
	totalProcessDuration atomic.Int64
	processCount         atomic.Uint32
}

// NewBaseNode creates a BaseNode with a freshly allocated id and the
// given name.
func NewBaseNode(name string) BaseNode {
	return BaseNode{id: NodeID(idgen.NextNodeID()), name: name}
}

// ID returns the node's id.
func (b *BaseNode) ID() NodeID { return b.id }

// Name returns the node's name.
func (b *BaseNode) Name() string { return b.name }

// AddInputPort appends and returns a new input port named name.
func (b *BaseNode) AddInputPort(name string) *InputPort {
	p := NewInputPort(name, b.id)
	b.inputs = append(b.inputs, p)
	return p
}

// AddOutputPort appends and returns a new output port named name.
func (b *BaseNode) AddOutputPort(name string) *OutputPort {
	p := NewOutputPort(name, b.id)
	b.outputs = append(b.outputs, p)
	return p
}

// Ports returns the node's input and output ports in declaration
// order.
func (b *BaseNode) Ports() (inputs []*InputPort, outputs []*OutputPort) {
	return b.inputs, b.outputs
}

// State returns the node's current lifecycle state.
func (b *BaseNode) State() NodeState {
	return NodeState(b.state.Load())
}

// setState transitions the node's lifecycle state.
func (b *BaseNode) setState(s NodeState) {
	b.state.Store(int32(s))
}

// SetError records an error message and transitions to StateError.
func (b *BaseNode) SetError(message string) {
	b.errMu.Lock()
	b.errMsg = message
	b.errMu.Unlock()
	b.setState(StateError)
}

// ErrorMessage returns the last recorded error message, if any.
func (b *BaseNode) ErrorMessage() string {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.errMsg
}

// Cancel marks the node cancelled. Safe to call concurrently with
// Process; concrete nodes should check Cancelled() at long-running
// steps of their own Process implementation.
func (b *BaseNode) Cancel() {
	b.cancelled.Store(true)
	b.setState(StateCancelled)
}

// Cancelled reports whether Cancel has been called for this node.
func (b *BaseNode) Cancelled() bool {
	return b.cancelled.Load()
}

// ResetForNextFrame clears per-frame state (ports, cancellation,
// lifecycle state) in preparation for the next frame's execution.
func (b *BaseNode) ResetForNextFrame() {
	for _, in := range b.inputs {
		in.Reset()
	}
	for _, out := range b.outputs {
		out.Reset()
	}
	b.cancelled.Store(false)
	b.setState(StateIdle)
}

// SetParameter stores value under key. If the embedding node type also
// implements ParameterObserver, notify must be called by the embedder
// after SetParameter (BaseNode itself cannot call a method on the
// type that embeds it).
func (b *BaseNode) SetParameter(key string, value frame.Value) {
	b.paramsMu.Lock()
	defer b.paramsMu.Unlock()
	if b.params == nil {
		b.params = make(map[string]frame.Value)
	}
	b.params[key] = value
}

// Parameter returns the value stored under key.
func (b *BaseNode) Parameter(key string) (frame.Value, bool) {
	b.paramsMu.Lock()
	defer b.paramsMu.Unlock()
	v, ok := b.params[key]
	return v, ok
}

// recordProcessDuration updates the node's performance statistics
// after a Process call. Nothing in this module calls it: the executor
// does not record per-node durations, so the duration statistics stay
// zero.
func (b *BaseNode) recordProcessDuration(d time.Duration) {
	us := d.Microseconds()
	b.lastProcessDuration.Store(us)
	b.totalProcessDuration.Add(us)
	b.processCount.Add(1)
}

// LastProcessDuration returns the duration (in microseconds) of the
// most recent Process call.
func (b *BaseNode) LastProcessDuration() int64 {
	return b.lastProcessDuration.Load()
}

// AverageProcessDuration returns the mean duration (in microseconds)
// across every recorded Process call, or 0 if none have run yet.
func (b *BaseNode) AverageProcessDuration() int64 {
	count := b.processCount.Load()
	if count == 0 {
		return 0
	}
	return b.totalProcessDuration.Load() / int64(count)
}

// ResetStatistics clears accumulated performance counters.
func (b *BaseNode) ResetStatistics() {
	b.lastProcessDuration.Store(0)
	b.totalProcessDuration.Store(0)
	b.processCount.Store(0)
}
