// Package graph implements the pipeline's DAG model: nodes, ports,
// and the Graph that wires them together with cycle detection,
// topological ordering, and a layered execution plan.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Edge is a directed connection from one node's output port to
// another node's input port.
type Edge struct {
	FromNode NodeID
	FromPort string
	ToNode   NodeID
	ToPort   string
}

// ValidationResult reports the outcome of Graph.Validate.
type ValidationResult struct {
	Valid        bool
	ErrorMessage string
	// ProblematicNodes names the nodes responsible for a failed
	// validation (e.g. every node on a detected cycle).
	ProblematicNodes []NodeID
}

// Graph holds the pipeline's nodes and the edges between their ports.
// Graph is safe for concurrent use; every mutating method increments
// Version so the executor and any cached topological/layered plan can
// detect staleness.
type Graph struct {
	mu    sync.Mutex
	nodes map[NodeID]Node
	out   map[NodeID][]Edge
	in    map[NodeID][]Edge

	version atomic.Uint64

	cacheMu       sync.Mutex
	cacheVersion  uint64
	cacheOrder    []NodeID
	cacheLayers   [][]NodeID
	cacheOrderOK  bool
	cacheLayersOK bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]Node),
		out:   make(map[NodeID][]Edge),
		in:    make(map[NodeID][]Edge),
	}
}

// Version returns the graph's current version. It increments on every
// structural mutation (AddNode, RemoveNode, Connect, Disconnect,
// Clear).
func (g *Graph) Version() uint64 {
	return g.version.Load()
}

func (g *Graph) bumpVersion() {
	g.version.Add(1)
}

// AddNode registers node in the graph.
func (g *Graph) AddNode(node Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[node.ID()] = node
	g.bumpVersion()
}

// RemoveNode removes node and every edge touching it. It returns false
// if no node with that id was registered.
func (g *Graph) RemoveNode(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)

	for _, e := range g.out[id] {
		g.removeInEdgeLocked(e)
	}
	delete(g.out, id)

	for _, e := range g.in[id] {
		g.removeOutEdgeLocked(e)
	}
	delete(g.in, id)

	g.bumpVersion()
	return true
}

// Node returns the node registered under id, if any.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every registered node, in no particular order.
func (g *Graph) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Connect wires fromNode's fromPort output to toNode's toPort input.
// It returns an error if either node or port does not exist, if the
// destination input is already connected to a different source, or if
// the edge would introduce a cycle. A rejected edge leaves the graph
// unchanged.
func (g *Graph) Connect(fromNode NodeID, fromPort string, toNode NodeID, toPort string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.nodes[fromNode]
	if !ok {
		return fmt.Errorf("graph: Connect: unknown source node %d", fromNode)
	}
	dst, ok := g.nodes[toNode]
	if !ok {
		return fmt.Errorf("graph: Connect: unknown destination node %d", toNode)
	}

	outPort := findOutputPort(src, fromPort)
	if outPort == nil {
		return fmt.Errorf("graph: Connect: node %d has no output port %q", fromNode, fromPort)
	}
	inPort := findInputPort(dst, toPort)
	if inPort == nil {
		return fmt.Errorf("graph: Connect: node %d has no input port %q", toNode, toPort)
	}
	if _, _, connected := inPort.Source(); connected {
		return fmt.Errorf("graph: Connect: node %d input %q is already connected", toNode, toPort)
	}

	edge := Edge{FromNode: fromNode, FromPort: fromPort, ToNode: toNode, ToPort: toPort}
	g.out[fromNode] = append(g.out[fromNode], edge)
	g.in[toNode] = append(g.in[toNode], edge)

	if g.hasCycleLocked() {
		g.out[fromNode] = g.out[fromNode][:len(g.out[fromNode])-1]
		g.in[toNode] = g.in[toNode][:len(g.in[toNode])-1]
		return fmt.Errorf("graph: Connect: edge %d:%s -> %d:%s would introduce a cycle", fromNode, fromPort, toNode, toPort)
	}

	outPort.Connect(inPort)
	inPort.SetSource(fromNode, fromPort)

	g.bumpVersion()
	return nil
}

// Disconnect removes the edge between the named ports, if present.
func (g *Graph) Disconnect(fromNode NodeID, fromPort string, toNode NodeID, toPort string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	edge := Edge{FromNode: fromNode, FromPort: fromPort, ToNode: toNode, ToPort: toPort}

	src, ok := g.nodes[fromNode]
	if !ok {
		return fmt.Errorf("graph: Disconnect: unknown source node %d", fromNode)
	}
	dst, ok := g.nodes[toNode]
	if !ok {
		return fmt.Errorf("graph: Disconnect: unknown destination node %d", toNode)
	}
	if outPort := findOutputPort(src, fromPort); outPort != nil {
		if inPort := findInputPort(dst, toPort); inPort != nil {
			outPort.Disconnect(inPort)
			inPort.Disconnect()
		}
	}

	g.removeOutEdgeLocked(edge)
	g.removeInEdgeLocked(edge)
	g.bumpVersion()
	return nil
}

func (g *Graph) removeOutEdgeLocked(e Edge) {
	edges := g.out[e.FromNode]
	for i, existing := range edges {
		if existing == e {
			g.out[e.FromNode] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

func (g *Graph) removeInEdgeLocked(e Edge) {
	edges := g.in[e.ToNode]
	for i, existing := range edges {
		if existing == e {
			g.in[e.ToNode] = append(edges[:i], edges[i+1:]...)
			return
		}
	}
}

// Clear removes every node and edge.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[NodeID]Node)
	g.out = make(map[NodeID][]Edge)
	g.in = make(map[NodeID][]Edge)
	g.bumpVersion()
}

// Predecessors returns the ids of nodes with an edge into id.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, e := range g.in[id] {
		if !seen[e.FromNode] {
			seen[e.FromNode] = true
			out = append(out, e.FromNode)
		}
	}
	return out
}

// Successors returns the ids of nodes with an edge out of id.
func (g *Graph) Successors(id NodeID) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, e := range g.out[id] {
		if !seen[e.ToNode] {
			seen[e.ToNode] = true
			out = append(out, e.ToNode)
		}
	}
	return out
}

// InDegree returns the number of distinct predecessor nodes for id.
func (g *Graph) InDegree(id NodeID) int {
	return len(g.Predecessors(id))
}

// OutDegree returns the number of distinct successor nodes for id.
func (g *Graph) OutDegree(id NodeID) int {
	return len(g.Successors(id))
}

// Sources returns every node with no incoming edges.
func (g *Graph) Sources() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []NodeID
	for id := range g.nodes {
		if len(g.in[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Sinks returns every node with no outgoing edges.
func (g *Graph) Sinks() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []NodeID
	for id := range g.nodes {
		if len(g.out[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasCycle reports whether the graph currently contains a cycle, via
// DFS with a recursion stack.
func (g *Graph) HasCycle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasCycleLocked()
}

func (g *Graph) hasCycleLocked() bool {
	visited := make(map[NodeID]bool)
	onStack := make(map[NodeID]bool)

	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var visit func(NodeID) bool
	visit = func(id NodeID) bool {
		visited[id] = true
		onStack[id] = true
		for _, e := range g.out[id] {
			if !visited[e.ToNode] {
				if visit(e.ToNode) {
					return true
				}
			} else if onStack[e.ToNode] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range ids {
		if !visited[id] {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Validate checks that the graph is a DAG. Invalid port wiring is
// already prevented at Connect time, so the only structural failure
// mode left to check here is a cycle.
func (g *Graph) Validate() ValidationResult {
	g.mu.Lock()
	cyclic := g.hasCycleLocked()
	g.mu.Unlock()

	if !cyclic {
		return ValidationResult{Valid: true}
	}
	return ValidationResult{
		Valid:            false,
		ErrorMessage:     "graph contains a cycle",
		ProblematicNodes: g.cycleNodes(),
	}
}

// cycleNodes returns one complete cycle's node ids, if any, for
// diagnostics. It is not called on the hot path, only when Validate
// has already determined a cycle exists.
func (g *Graph) cycleNodes() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	visited := make(map[NodeID]bool)
	onStack := make(map[NodeID]bool)
	var stack []NodeID

	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var found []NodeID
	var visit func(NodeID) bool
	visit = func(id NodeID) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)
		for _, e := range g.out[id] {
			if !visited[e.ToNode] {
				if visit(e.ToNode) {
					return true
				}
			} else if onStack[e.ToNode] {
				for i := len(stack) - 1; i >= 0; i-- {
					found = append(found, stack[i])
					if stack[i] == e.ToNode {
						break
					}
				}
				return true
			}
		}
		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range ids {
		if !visited[id] {
			if visit(id) {
				return found
			}
		}
	}
	return nil
}

// TopologicalOrder returns a Kahn's-algorithm topological ordering of
// the graph's nodes, ties broken by ascending NodeID for a
// deterministic result independent of map iteration order. It returns
// an error if the graph contains a cycle. The result is cached against
// the graph's version.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	g.refreshCacheLocked()
	if !g.cacheOrderOK {
		return nil, fmt.Errorf("graph: TopologicalOrder: graph contains a cycle")
	}
	out := make([]NodeID, len(g.cacheOrder))
	copy(out, g.cacheOrder)
	return out, nil
}

// Layers returns the graph's layered execution plan: layer 0 holds
// every node with no predecessors, layer k+1 holds every node whose
// predecessors are all in layers 0..k. Nodes within a layer have no
// dependency on one another and may run concurrently. It returns an
// error if the graph contains a cycle. The result is cached against
// the graph's version.
func (g *Graph) Layers() ([][]NodeID, error) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	g.refreshCacheLocked()
	if !g.cacheLayersOK {
		return nil, fmt.Errorf("graph: Layers: graph contains a cycle")
	}
	out := make([][]NodeID, len(g.cacheLayers))
	for i, layer := range g.cacheLayers {
		out[i] = append([]NodeID(nil), layer...)
	}
	return out, nil
}

// refreshCacheLocked recomputes the topological order and layered plan
// if the graph's version has advanced since the last computation.
// Caller must hold g.cacheMu.
func (g *Graph) refreshCacheLocked() {
	current := g.Version()
	if current == g.cacheVersion && (g.cacheOrderOK || g.cacheLayersOK || len(g.cacheOrder) > 0) {
		return
	}

	g.mu.Lock()
	order, layers, ok := kahn(g.nodes, g.in, g.out)
	g.mu.Unlock()

	g.cacheVersion = current
	g.cacheOrderOK = ok
	g.cacheLayersOK = ok
	if ok {
		g.cacheOrder = order
		g.cacheLayers = layers
	} else {
		g.cacheOrder = nil
		g.cacheLayers = nil
	}
}

// kahn computes both a flat topological order and a layered plan in
// one pass of Kahn's algorithm: each "layer" is one round of removing
// every currently-zero-in-degree node.
func kahn(nodes map[NodeID]Node, in, out map[NodeID][]Edge) (order []NodeID, layers [][]NodeID, ok bool) {
	inDegree := make(map[NodeID]int, len(nodes))
	for id := range nodes {
		inDegree[id] = len(dedupeFrom(in[id]))
	}

	remaining := len(nodes)
	for remaining > 0 {
		var layer []NodeID
		for id, deg := range inDegree {
			if deg == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			return nil, nil, false // cycle: no zero-in-degree node left
		}
		sort.Slice(layer, func(i, j int) bool { return layer[i] < layer[j] })

		for _, id := range layer {
			delete(inDegree, id)
			remaining--
			for _, to := range dedupeTo(out[id]) {
				if _, stillPresent := inDegree[to]; stillPresent {
					inDegree[to]--
				}
			}
		}

		order = append(order, layer...)
		layers = append(layers, layer)
	}
	return order, layers, true
}

func dedupeFrom(edges []Edge) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, e := range edges {
		if !seen[e.FromNode] {
			seen[e.FromNode] = true
			out = append(out, e.FromNode)
		}
	}
	return out
}

func dedupeTo(edges []Edge) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, e := range edges {
		if !seen[e.ToNode] {
			seen[e.ToNode] = true
			out = append(out, e.ToNode)
		}
	}
	return out
}

// Clone returns a structural copy of the graph: nodes are shared by
// reference (not deep-copied) and edges are copied, matching the
// original's "克隆图结构...Entity共享引用". A caller can use it to
// take a snapshot that later Connect/Disconnect calls on the live graph
// do not change; the executor itself reads the live graph and does not
// call Clone.
func (g *Graph) Clone() *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	clone := New()
	for id, n := range g.nodes {
		clone.nodes[id] = n
	}
	for id, edges := range g.out {
		clone.out[id] = append([]Edge(nil), edges...)
	}
	for id, edges := range g.in {
		clone.in[id] = append([]Edge(nil), edges...)
	}
	clone.version.Store(g.version.Load())
	return clone
}

// ExportDOT renders the graph in Graphviz DOT format for visualization.
func (g *Graph) ExportDOT() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.WriteString("digraph pipeline {\n")

	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := g.nodes[id]
		fmt.Fprintf(&b, "  n%d [label=%q];\n", id, fmt.Sprintf("%s (%s)", n.Name(), n.QueueKind()))
	}
	for _, id := range ids {
		for _, e := range g.out[id] {
			fmt.Fprintf(&b, "  n%d -> n%d [label=%q];\n", e.FromNode, e.ToNode, e.FromPort+"->"+e.ToPort)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// ExportJSON renders the graph's nodes and edges as a JSON object.
// Hand-rolled rather than encoding/json-marshaled, since Node is an
// interface with no exported field layout to reflect over — each
// entry is built from the accessor methods the interface already
// exposes.
func (g *Graph) ExportJSON() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString("{\"nodes\":[")
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		n := g.nodes[id]
		fmt.Fprintf(&b, "{\"id\":%d,\"name\":%q,\"queue\":%q}", id, n.Name(), n.QueueKind())
	}
	b.WriteString("],\"edges\":[")
	first := true
	for _, id := range ids {
		for _, e := range g.out[id] {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, "{\"from\":%d,\"fromPort\":%q,\"to\":%d,\"toPort\":%q}",
				e.FromNode, e.FromPort, e.ToNode, e.ToPort)
		}
	}
	b.WriteString("]}")
	return b.String()
}

func findOutputPort(n Node, name string) *OutputPort {
	_, outputs := n.Ports()
	for _, p := range outputs {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func findInputPort(n Node, name string) *InputPort {
	inputs, _ := n.Ports()
	for _, p := range inputs {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
