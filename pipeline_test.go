package framepipe

import (
	"context"
	"testing"

	"github.com/gavinzl/framepipe/frame"
	"github.com/gavinzl/framepipe/graph"
)

func buildTestGraph(t *testing.T) (*graph.Graph, *int) {
	t.Helper()
	g := graph.New()

	src := graph.NewSourceFeedNode("src", func(uint64) *frame.Packet {
		pkt := frame.NewPacket()
		pkt.SetSize(2, 2, frame.RGBA8)
		return pkt
	})
	pass := graph.NewPassThroughNode("pass")

	delivered := 0
	sink := graph.NewCallbackSinkNode("sink", func(*frame.Packet) { delivered++ })

	g.AddNode(src)
	g.AddNode(pass)
	g.AddNode(sink)
	if err := g.Connect(src.ID(), "out", pass.ID(), "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := g.Connect(pass.ID(), "out", sink.ID(), "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return g, &delivered
}

func TestPipeline_StartProcessFrameClose(t *testing.T) {
	g, delivered := buildTestGraph(t)
	p := New(g, WithName("test"))

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	if !p.ProcessFrame(1000) {
		t.Fatal("ProcessFrame() = false, want true")
	}
	if *delivered != 1 {
		t.Fatalf("delivered = %d, want 1", *delivered)
	}
}

func TestPipeline_StartIsIdempotent(t *testing.T) {
	g, _ := buildTestGraph(t)
	p := New(g)
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	p.Close()
}

func TestPipeline_CloseIsIdempotent(t *testing.T) {
	g, _ := buildTestGraph(t)
	p := New(g)
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestPipeline_RejectsCyclicGraph(t *testing.T) {
	g := graph.New()
	a := graph.NewPassThroughNode("a")
	b := graph.NewPassThroughNode("b")
	g.AddNode(a)
	g.AddNode(b)
	if err := g.Connect(a.ID(), "out", b.ID(), "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// The cycle is rejected where it would be created: Connect refuses
	// the closing edge, so the pipeline only ever sees the acyclic graph.
	if err := g.Connect(b.ID(), "out", a.ID(), "in"); err == nil {
		t.Fatal("expected Connect to reject the edge that closes a cycle")
	}

	p := New(g)
	if err := p.Start(); err != nil {
		t.Fatalf("Start() on the graph left acyclic: %v", err)
	}
	p.Close()
}

func TestPipeline_RunLoopReArmsSourceUntilExhausted(t *testing.T) {
	g, delivered := buildTestGraph(t)
	p := New(g, WithName("test"))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	const wantFrames = 5
	i := 0
	err := p.RunLoop(context.Background(), func() (int64, bool) {
		if i >= wantFrames {
			return 0, false
		}
		i++
		return int64(i) * 1000, true
	})
	if err != nil {
		t.Fatalf("RunLoop() error = %v", err)
	}
	if *delivered != wantFrames {
		t.Fatalf("delivered = %d, want %d", *delivered, wantFrames)
	}
}

func TestPipeline_RunLoopStopsOnContextCancel(t *testing.T) {
	g, _ := buildTestGraph(t)
	p := New(g, WithName("test"))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.RunLoop(ctx, func() (int64, bool) { return 1000, true }); err == nil {
		t.Fatal("RunLoop() error = nil, want context.Canceled")
	}
}

func TestSelectExecutionMode_SmallGraphIsLayered(t *testing.T) {
	mode := SelectExecutionMode(GraphStats{NodeCount: 3, LayerCount: 3})
	if mode.String() != "Layered" {
		t.Fatalf("SelectExecutionMode() = %v, want Layered", mode)
	}
}
