// Command framepipedemo wires a minimal graph (a fixed-pattern source,
// a pass-through node, and a callback sink), runs a handful of frames
// through it, and prints the executor's stats.
package main

import (
	"flag"
	"log"

	_ "github.com/gavinzl/framepipe/backend/softbackend"
	"github.com/gavinzl/framepipe/frame"
	"github.com/gavinzl/framepipe/graph"

	"github.com/gavinzl/framepipe"
)

func main() {
	var (
		frames = flag.Int("frames", 30, "number of frames to process")
		width  = flag.Int("width", 320, "frame width")
		height = flag.Int("height", 240, "frame height")
	)
	flag.Parse()

	g := graph.New()

	var seq uint64
	src := graph.NewSourceFeedNode("camera", func(_ uint64) *frame.Packet {
		pkt := frame.NewPacket()
		pkt.SetSize(*width, *height, frame.RGBA8)
		pkt.SetSequence(seq)
		seq++
		return pkt
	})
	pass := graph.NewPassThroughNode("preview-filter")

	var delivered int
	sink := graph.NewCallbackSinkNode("preview", func(pkt *frame.Packet) {
		delivered++
		log.Printf("delivered frame seq=%d %dx%d", pkt.Sequence(), pkt.Width(), pkt.Height())
	})

	g.AddNode(src)
	g.AddNode(pass)
	g.AddNode(sink)

	mustConnect(g, src.ID(), "out", pass.ID(), "in")
	mustConnect(g, pass.ID(), "out", sink.ID(), "in")

	p := framepipe.New(g,
		framepipe.WithName("framepipedemo"),
		framepipe.WithExecutorLimits(5, true),
	)
	if err := p.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	defer p.Close()

	for i := 0; i < *frames; i++ {
		if !p.ProcessFrame(int64(i) * 33000) {
			log.Printf("frame %d dropped", i)
		}
	}

	stats := p.Stats()
	log.Printf("processed=%d dropped=%d delivered=%d avgFrameUS=%d peakFrameUS=%d",
		stats.TotalFrames, stats.DroppedFrames, delivered, stats.AverageFrameUS, stats.PeakFrameUS)
}

func mustConnect(g *graph.Graph, fromNode graph.NodeID, fromPort string, toNode graph.NodeID, toPort string) {
	if err := g.Connect(fromNode, fromPort, toNode, toPort); err != nil {
		log.Fatalf("connect: %v", err)
	}
}
