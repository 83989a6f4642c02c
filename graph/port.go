package graph

import (
	"sync"
	"time"

	"github.com/gavinzl/framepipe/frame"
)

// portBase holds the fields shared by InputPort and OutputPort: name
// and owning node id.
type portBase struct {
	name    string
	ownerID NodeID
}

// Name returns the port's name, unique among its owning node's ports
// of the same direction.
func (b *portBase) Name() string { return b.name }

// OwnerID returns the id of the node this port belongs to.
func (b *portBase) OwnerID() NodeID { return b.ownerID }

// InputPort receives a packet from exactly one upstream OutputPort and
// exposes a wait-for-ready primitive so a node (or the executor) can
// block until its input has arrived.
type InputPort struct {
	portBase

	mu     sync.Mutex
	cond   *sync.Cond
	packet *frame.Packet
	ready  bool

	sourceNodeID NodeID
	sourcePort   string
}

// NewInputPort creates an input port named name, owned by ownerID.
func NewInputPort(name string, ownerID NodeID) *InputPort {
	p := &InputPort{portBase: portBase{name: name, ownerID: ownerID}}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetSource records the upstream node/port this input is connected
// from. The graph calls this when wiring an edge; it does not by
// itself deliver any data.
func (p *InputPort) SetSource(nodeID NodeID, portName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sourceNodeID = nodeID
	p.sourcePort = portName
}

// Source returns the upstream node id and port name this input is
// connected from, and whether it is connected at all.
func (p *InputPort) Source() (nodeID NodeID, portName string, connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sourceNodeID, p.sourcePort, p.sourcePort != "" || p.sourceNodeID != 0
}

// Disconnect clears the recorded upstream source.
func (p *InputPort) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sourceNodeID = 0
	p.sourcePort = ""
}

// SetPacket delivers pkt to the port and marks it ready, waking any
// goroutine blocked in WaitReady.
func (p *InputPort) SetPacket(pkt *frame.Packet) {
	p.mu.Lock()
	p.packet = pkt
	p.ready = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Packet returns the currently delivered packet, or nil if none.
func (p *InputPort) Packet() *frame.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.packet
}

// Ready reports whether a packet has been delivered for the current
// frame without blocking.
func (p *InputPort) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// WaitReady blocks until a packet is delivered or timeout elapses (a
// negative timeout waits forever). It returns false on timeout.
func (p *InputPort) WaitReady(timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return true
	}
	if timeout < 0 {
		for !p.ready {
			p.cond.Wait()
		}
		return true
	}

	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		timedOut = true
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	for !p.ready && !timedOut {
		p.cond.Wait()
	}
	return p.ready
}

// Reset clears the delivered packet and readiness flag, preparing the
// port for the next frame.
func (p *InputPort) Reset() {
	p.mu.Lock()
	p.packet = nil
	p.ready = false
	p.mu.Unlock()
}

// OutputPort fans data out to every connected InputPort. A single
// output can feed more than one downstream input (fan-out).
type OutputPort struct {
	portBase

	mu          sync.Mutex
	connections []*InputPort
	packet      *frame.Packet
	sent        bool
}

// NewOutputPort creates an output port named name, owned by ownerID.
func NewOutputPort(name string, ownerID NodeID) *OutputPort {
	return &OutputPort{portBase: portBase{name: name, ownerID: ownerID}}
}

// Connect adds input as a destination of this output's Send calls.
func (p *OutputPort) Connect(input *InputPort) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.connections {
		if existing == input {
			return
		}
	}
	p.connections = append(p.connections, input)
}

// Disconnect removes input as a destination, if connected.
func (p *OutputPort) Disconnect(input *InputPort) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.connections {
		if existing == input {
			p.connections = append(p.connections[:i], p.connections[i+1:]...)
			return
		}
	}
}

// DisconnectAll clears every connection.
func (p *OutputPort) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connections = nil
}

// Connections returns a snapshot of the currently connected input
// ports.
func (p *OutputPort) Connections() []*InputPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*InputPort, len(p.connections))
	copy(out, p.connections)
	return out
}

// ConnectionCount returns the number of connected inputs.
func (p *OutputPort) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.connections)
}

// SetPacket stages pkt to be delivered by the next Send call.
func (p *OutputPort) SetPacket(pkt *frame.Packet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packet = pkt
}

// Packet returns the currently staged packet.
func (p *OutputPort) Packet() *frame.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.packet
}

// Send delivers the staged packet to every connected input, retaining
// it once per extra destination so a fan-out to N inputs leaves the
// packet's ref count incremented by N-1 over what a single
// destination would need.
func (p *OutputPort) Send() {
	p.mu.Lock()
	pkt := p.packet
	conns := make([]*InputPort, len(p.connections))
	copy(conns, p.connections)
	p.sent = true
	p.mu.Unlock()

	if pkt == nil || len(conns) == 0 {
		return
	}
	for i, input := range conns {
		if i > 0 {
			pkt.Retain()
		}
		input.SetPacket(pkt)
	}
}

// Sent reports whether Send has been called since the last Reset.
func (p *OutputPort) Sent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Reset clears the staged packet and sent flag for the next frame.
func (p *OutputPort) Reset() {
	p.mu.Lock()
	p.packet = nil
	p.sent = false
	p.mu.Unlock()
}
