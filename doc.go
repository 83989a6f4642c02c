// Package framepipe is a real-time, DAG-structured image processing
// pipeline for mobile camera preview and video: a graph of GPU and CPU
// nodes connected by typed ports, executed frame by frame with pooled
// buffers, back-pressure, and dual-path GPU/CPU frame synchronization.
//
// # Overview
//
// A Pipeline wraps a graph.Graph, an executor.Executor, frame/texture
// pools, and (for dual-path pipelines) a framesync.Synchronizer. Nodes
// are connected once at configure time; ProcessFrame then drives one
// frame through the whole graph per call, reusing the same topology
// and pooled resources across every frame.
//
//	g := graph.New()
//	src := graph.NewSourceFeedNode("camera", nextFrame)
//	blur := mynodes.NewGaussianBlur("blur")
//	sink := graph.NewCallbackSinkNode("preview", deliverFrame)
//	g.AddNode(src)
//	g.AddNode(blur)
//	g.AddNode(sink)
//	g.Connect(src.ID(), "out", blur.ID(), "in")
//	g.Connect(blur.ID(), "out", sink.ID(), "in")
//
//	p := framepipe.New(g, framepipe.WithExecutorLimits(5, true))
//	p.Start()
//	defer p.Close()
//	p.ProcessFrame(timestampUS)
//
// # Architecture
//
// The module is organized into:
//   - frame: the packet and metadata types carried between nodes
//   - graph: node/port/edge types and topological scheduling
//   - pool: frame packet, GPU texture, and CPU buffer pooling
//   - executor: per-frame dispatch onto GPU/CPU/IO worker queues
//   - framesync: dual-path (GPU result + CPU result) frame pairing
//   - backend: the graphics backend contract and its registry
//   - ioext: frame source/sink contracts at the graph's edges
//   - platform: the shared GPU device handle and backend selection
//
// # Concurrency
//
// A Pipeline's ProcessFrame is safe to call from a single driving
// goroutine per pipeline instance (the executor internally fans work
// out across GPU/CPU/IO worker pools and fans back in before
// returning). Configuration methods (graph edits, logger, callbacks)
// are safe for concurrent use with ProcessFrame unless documented
// otherwise.
package framepipe
