package graph

import (
	"github.com/gavinzl/framepipe/frame"
)

// NodeID identifies a node uniquely within a process.
type NodeID uint64

// QueueKind classifies which of the executor's three task queues a
// node's work is dispatched to.
type QueueKind int

const (
	// GPUQueue work executes on the single-worker, FIFO-preserving
	// GPU queue. Reordering GPU submissions would break fence/texture
	// sequencing, so this queue never parallelizes or steals work.
	GPUQueue QueueKind = iota
	// CPUQueue work executes on the parallel CPU worker pool; ordering
	// across nodes on this queue is not guaranteed.
	CPUQueue
	// IOQueue work executes on the I/O queue, a small worker pool;
	// ordering is not kept per sink target.
	IOQueue
)

// String renders the queue kind for logs and DOT/JSON graph exports.
func (k QueueKind) String() string {
	switch k {
	case GPUQueue:
		return "gpu"
	case CPUQueue:
		return "cpu"
	case IOQueue:
		return "io"
	default:
		return "unknown"
	}
}

// Node is one unit of work in the pipeline graph. Concrete node kinds
// embed one of GPUNodeBase, CPUNodeBase, IONodeBase, or
// CompositeNodeBase for their id/name/port/parameter/state bookkeeping
// and override Process with their own pixel algorithm.
type Node interface {
	ID() NodeID
	Name() string
	QueueKind() QueueKind
	Ports() (inputs []*InputPort, outputs []*OutputPort)

	// Prepare runs once before Process for a given frame, acquiring
	// any resources the node needs (e.g. a pooled output packet).
	Prepare(ctx *frame.Context) error

	// Process is the node's core algorithm. inputs holds one packet
	// per input port in port-declaration order; outputs must be
	// populated one packet per output port, in the same order. A
	// read-only node may set outputs[i] = inputs[j] directly (the
	// pass-through rule): the same packet instance, ref-counted, flows
	// unchanged to every downstream consumer.
	Process(ctx *frame.Context, inputs []*frame.Packet, outputs []*frame.Packet) error

	// Finalize runs once after Process (or after a Process failure)
	// to release any resources Prepare acquired and that Process did
	// not already hand off via outputs.
	Finalize(ctx *frame.Context) error

	// Cancel requests cooperative cancellation of any in-flight work.
	// It must be safe to call from a goroutine other than the one
	// running Process, and must not block.
	Cancel()
}

// ParameterObserver is an optional interface a Node implements to be
// notified when one of its parameters changes via BaseNode.SetParameter,
// following the same optional-interface pattern as SubSurface,
// ResizableSurface, and DeviceProviderAware elsewhere in this codebase.
type ParameterObserver interface {
	OnParameterChanged(key string)
}

// SourceNode is an optional interface a Node implements when it has no
// input ports and instead originates frames from outside the graph
// (a camera capture feed, a test frame generator).
type SourceNode interface {
	Node
	// IsSource always returns true; the method exists only so callers
	// can detect the capability via a type assertion without
	// relying on Ports() returning zero inputs (a degenerate but valid
	// CompositeNodeBase could also have zero inputs).
	IsSource() bool
}

// SinkNode is an optional interface a Node implements when it has no
// output ports and instead delivers frames outside the graph (a
// display surface, an encoder, a callback).
type SinkNode interface {
	Node
	IsSink() bool
}
