package graph

import "github.com/gavinzl/framepipe/frame"

// PassThroughNode forwards its single input packet instance to its
// single output unchanged, per the pass-through rule documented on
// Node.Process; it does not Retain the packet itself. It is useful for tests and as a template for simple
// single-input/single-output filter nodes.
type PassThroughNode struct {
	CPUNodeBase
}

// NewPassThroughNode creates a PassThroughNode named name with ports
// "in" and "out".
func NewPassThroughNode(name string) *PassThroughNode {
	n := &PassThroughNode{CPUNodeBase: NewCPUNodeBase(name)}
	n.AddInputPort("in")
	n.AddOutputPort("out")
	return n
}

// Process copies inputs[0] to outputs[0].
func (n *PassThroughNode) Process(ctx *frame.Context, inputs []*frame.Packet, outputs []*frame.Packet) error {
	outputs[0] = inputs[0]
	return nil
}

// SourceFeedNode originates frames from an injected function rather
// than consuming an input port, for tests and demos that need a
// driving source without a real camera capture backend.
type SourceFeedNode struct {
	IONodeBase
	next func(seq uint64) *frame.Packet
	seq  uint64
}

// NewSourceFeedNode creates a SourceFeedNode named name. next is
// called once per frame to produce the packet Process emits; it may
// return nil to signal no frame is currently available.
func NewSourceFeedNode(name string, next func(seq uint64) *frame.Packet) *SourceFeedNode {
	n := &SourceFeedNode{IONodeBase: NewIONodeBase(name, true, false), next: next}
	n.AddOutputPort("out")
	return n
}

// Process calls next and publishes its result as outputs[0].
func (n *SourceFeedNode) Process(ctx *frame.Context, inputs []*frame.Packet, outputs []*frame.Packet) error {
	n.seq++
	outputs[0] = n.next(n.seq)
	return nil
}

// CallbackSinkNode delivers its single input packet to an injected
// function rather than producing an output port, for tests and demos
// that want to observe delivered frames without a real display/encoder
// backend.
type CallbackSinkNode struct {
	IONodeBase
	deliver func(pkt *frame.Packet)
}

// NewCallbackSinkNode creates a CallbackSinkNode named name with a
// single "in" port. deliver is called once per frame with the
// delivered packet.
func NewCallbackSinkNode(name string, deliver func(pkt *frame.Packet)) *CallbackSinkNode {
	n := &CallbackSinkNode{IONodeBase: NewIONodeBase(name, false, true), deliver: deliver}
	n.AddInputPort("in")
	return n
}

// Process hands inputs[0] to deliver.
func (n *CallbackSinkNode) Process(ctx *frame.Context, inputs []*frame.Packet, outputs []*frame.Packet) error {
	n.deliver(inputs[0])
	return nil
}
