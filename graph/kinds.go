package graph

import "github.com/gavinzl/framepipe/frame"

// GPUNodeBase is an embeddable base for nodes whose work runs on the
// executor's GPU-serial queue. Embedders must implement Process; the
// default Prepare/Finalize are no-ops suitable for nodes with nothing
// extra to acquire or release.
type GPUNodeBase struct {
	BaseNode
}

// NewGPUNodeBase creates a GPUNodeBase named name.
func NewGPUNodeBase(name string) GPUNodeBase {
	return GPUNodeBase{BaseNode: NewBaseNode(name)}
}

// QueueKind reports GPUQueue.
func (n *GPUNodeBase) QueueKind() QueueKind { return GPUQueue }

// Prepare is a no-op by default.
func (n *GPUNodeBase) Prepare(ctx *frame.Context) error { return nil }

// Finalize is a no-op by default.
func (n *GPUNodeBase) Finalize(ctx *frame.Context) error { return nil }

// CPUNodeBase is an embeddable base for nodes whose work runs on the
// executor's parallel CPU queue.
type CPUNodeBase struct {
	BaseNode
}

// NewCPUNodeBase creates a CPUNodeBase named name.
func NewCPUNodeBase(name string) CPUNodeBase {
	return CPUNodeBase{BaseNode: NewBaseNode(name)}
}

// QueueKind reports CPUQueue.
func (n *CPUNodeBase) QueueKind() QueueKind { return CPUQueue }

// Prepare is a no-op by default.
func (n *CPUNodeBase) Prepare(ctx *frame.Context) error { return nil }

// Finalize is a no-op by default.
func (n *CPUNodeBase) Finalize(ctx *frame.Context) error { return nil }

// IONodeBase is an embeddable base for nodes whose work runs on the
// executor's I/O queue (a small worker pool with no per-target
// ordering): sources that originate
// frames, and sinks that deliver them outside the graph.
type IONodeBase struct {
	BaseNode
	source bool
	sink   bool
}

// NewIONodeBase creates an IONodeBase named name. Pass source=true for
// a node with no input ports (a capture feed); pass sink=true for a
// node with no output ports (a display/encoder/callback/file target).
// A node may be neither (a pass-through I/O adapter) but not both.
func NewIONodeBase(name string, source, sink bool) IONodeBase {
	return IONodeBase{BaseNode: NewBaseNode(name), source: source, sink: sink}
}

// QueueKind reports IOQueue.
func (n *IONodeBase) QueueKind() QueueKind { return IOQueue }

// Prepare is a no-op by default.
func (n *IONodeBase) Prepare(ctx *frame.Context) error { return nil }

// Finalize is a no-op by default.
func (n *IONodeBase) Finalize(ctx *frame.Context) error { return nil }

// IsSource reports whether this node originates frames rather than
// consuming them from an input port.
func (n *IONodeBase) IsSource() bool { return n.source }

// IsSink reports whether this node delivers frames outside the graph
// rather than producing an output for a downstream node.
func (n *IONodeBase) IsSink() bool { return n.sink }

// CompositeNodeBase is an embeddable base for nodes that merge 2-8
// inputs into one output (picture-in-picture, cross-fade, overlay
// compositing). It runs on the CPU queue by default since compositing
// is typically a CPU-side blend; a GPU compositor can override
// QueueKind by not embedding CompositeNodeBase and instead composing
// GPUNodeBase with its own port setup.
type CompositeNodeBase struct {
	BaseNode
	// RequireAllInputs, when true, means Process should not run until
	// every input port is ready; when false, the node may run with a
	// partial input set (e.g. treating a missing input as "no change"
	// for that layer).
	RequireAllInputs bool
	// BlendMode is an opaque string naming the blend algorithm a
	// concrete composite node's Process implementation interprets;
	// framepipe does not define blend semantics itself (concrete image
	// algorithms are out of scope).
	BlendMode string
}

// NewCompositeNodeBase creates a CompositeNodeBase named name with the
// given number of input ports (2-8) feeding a single output port.
func NewCompositeNodeBase(name string, inputCount int, requireAllInputs bool, blendMode string) CompositeNodeBase {
	if inputCount < 2 {
		inputCount = 2
	}
	if inputCount > 8 {
		inputCount = 8
	}
	n := CompositeNodeBase{
		BaseNode:         NewBaseNode(name),
		RequireAllInputs: requireAllInputs,
		BlendMode:        blendMode,
	}
	for i := 0; i < inputCount; i++ {
		n.AddInputPort(inputPortName(i))
	}
	n.AddOutputPort("out")
	return n
}

func inputPortName(i int) string {
	names := [...]string{"in0", "in1", "in2", "in3", "in4", "in5", "in6", "in7"}
	if i < len(names) {
		return names[i]
	}
	return "in"
}

// QueueKind reports CPUQueue.
func (n *CompositeNodeBase) QueueKind() QueueKind { return CPUQueue }

// Prepare is a no-op by default.
func (n *CompositeNodeBase) Prepare(ctx *frame.Context) error { return nil }

// Finalize is a no-op by default.
func (n *CompositeNodeBase) Finalize(ctx *frame.Context) error { return nil }
