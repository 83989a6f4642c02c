package framepipe

import (
	gocontext "context"
	"sync"
	"sync/atomic"

	"github.com/gavinzl/framepipe/backend"
	"github.com/gavinzl/framepipe/executor"
	"github.com/gavinzl/framepipe/frame"
	"github.com/gavinzl/framepipe/framesync"
	"github.com/gavinzl/framepipe/graph"
	"github.com/gavinzl/framepipe/platform"
	"github.com/gavinzl/framepipe/pool"
)

// Pipeline is the top-level facade tying together a graph, its
// executor, pooled resources, and (for dual-path graphs) a frame
// synchronizer. Grounded on the original's PipelineManager/
// PipelineFacade lifecycle (configure -> start -> processFrame* ->
// stop); backend registration lives at the backend-selection layer
// via backend.Register/NewBackend rather than duplicated here.
type Pipeline struct {
	config Config

	g         *graph.Graph
	exec      *executor.Executor
	ctx       *platform.Context
	framePool *pool.FramePacketPool
	texPool   *pool.TexturePool
	bufPool   *pool.BufferPool
	syncer    *framesync.Synchronizer

	mu      sync.Mutex
	started bool

	nextFrameID atomic.Uint64
}

// New creates a Pipeline over g. The graph must already have its
// nodes added and connected; New does not mutate it. Call Start
// before ProcessFrame.
func New(g *graph.Graph, opts ...Option) *Pipeline {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		config:  cfg,
		g:       g,
		ctx:     platform.New(nil),
		bufPool: pool.NewBufferPool(cfg.BufferPoolMaxBuffers),
		framePool: pool.NewFramePacketPool(pool.FramePacketPoolConfig{
			Capacity:     cfg.FramePoolCapacity,
			BlockOnEmpty: true,
			BlockTimeout: pool.DefaultFramePacketPoolConfig().BlockTimeout,
		}),
	}
	return p
}

// Start validates the graph (if EnableValidation), selects a backend,
// wires the texture pool to it, and starts the executor's worker
// queues. Start is idempotent.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	if p.config.EnableValidation {
		if result := p.g.Validate(); !result.Valid {
			return NewError(GraphInvalid, result.ErrorMessage)
		}
	}

	be, err := p.selectBackendLocked()
	if err != nil {
		return WrapError(InvalidConfig, "backend selection", err)
	}
	if be != nil {
		p.texPool = pool.NewTexturePool(be, pool.TexturePoolConfig{
			MaxTexturesPerBucket: 4,
			MaxBuckets:           p.config.TextureBucketLimit,
			IdleTimeout:          pool.DefaultTexturePoolConfig().IdleTimeout,
		})
	}

	if p.config.EnableSync {
		p.syncer = framesync.New(p.config.SyncConfig)
	}

	p.exec = executor.New(p.g, p.config.ExecutorConfig)
	p.exec.SetFramePool(p.framePool)
	p.exec.Start()
	p.started = true

	Logger().Info("pipeline started", "name", p.config.Name, "nodes", p.g.NodeCount())
	return nil
}

// selectBackendLocked resolves the configured backend preference, or
// the highest-priority available one. No backend being registered or
// available is not an error: a CPU-only graph is still valid.
func (p *Pipeline) selectBackendLocked() (backend.GraphicsBackend, error) {
	if p.config.PreferredBackend != "" {
		return p.ctx.SelectBackendByName(p.config.PreferredBackend)
	}
	be, err := p.ctx.SelectBackend()
	if err != nil {
		return nil, nil
	}
	return be, nil
}

// Close stops the executor's worker queues and releases the selected
// backend. Close is idempotent.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.exec.Close()
	if p.syncer != nil {
		p.syncer.Close()
	}
	err := p.ctx.Close()
	p.started = false
	return err
}

// ProcessFrame drives one frame through the graph using an
// auto-incrementing frame id and the given capture timestamp. It
// returns false if the frame was dropped under back-pressure or a
// node failed.
func (p *Pipeline) ProcessFrame(timestampUS int64) bool {
	id := p.nextFrameID.Add(1)
	ctx := frame.NewContext(gocontext.Background(), p.ctx.Backend(), id, timestampUS)
	return p.exec.ProcessFrame(ctx)
}

// ProcessFrameContext is ProcessFrame for callers that need to supply
// their own cancellation/deadline context (e.g. a per-frame budget).
func (p *Pipeline) ProcessFrameContext(parent gocontext.Context, timestampUS int64) bool {
	id := p.nextFrameID.Add(1)
	ctx := frame.NewContext(parent, p.ctx.Backend(), id, timestampUS)
	return p.exec.ProcessFrame(ctx)
}

// RunLoop implements the source-driven capture loop: once a frame
// fully completes, the source is immediately re-armed to ingest the
// next capture by calling nextTimestamp again and driving another
// frame, without the caller re-invoking ProcessFrame itself. It
// returns when ctx is cancelled or nextTimestamp reports no further
// capture is available (ok == false).
func (p *Pipeline) RunLoop(ctx gocontext.Context, nextTimestamp func() (timestampUS int64, ok bool)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ts, ok := nextTimestamp()
		if !ok {
			return nil
		}
		p.ProcessFrameContext(ctx, ts)
	}
}

// Graph returns the pipeline's underlying graph for live topology
// edits between frames.
func (p *Pipeline) Graph() *graph.Graph { return p.g }

// Executor returns the pipeline's executor for direct access to its
// callbacks and stats.
func (p *Pipeline) Executor() *executor.Executor { return p.exec }

// FramePool returns the pipeline's frame packet pool.
func (p *Pipeline) FramePool() *pool.FramePacketPool { return p.framePool }

// TexturePool returns the pipeline's GPU texture pool, or nil if no
// backend was available at Start.
func (p *Pipeline) TexturePool() *pool.TexturePool { return p.texPool }

// BufferPool returns the pipeline's CPU buffer pool.
func (p *Pipeline) BufferPool() *pool.BufferPool { return p.bufPool }

// Synchronizer returns the pipeline's dual-path frame synchronizer,
// or nil if the pipeline was not configured with WithSyncPolicy.
func (p *Pipeline) Synchronizer() *framesync.Synchronizer { return p.syncer }

// Stats returns the executor's cumulative performance counters.
func (p *Pipeline) Stats() executor.ExecutionStats { return p.exec.Stats() }
