package framepipe

import (
	"time"

	"github.com/gavinzl/framepipe/executor"
	"github.com/gavinzl/framepipe/framesync"
	"github.com/gavinzl/framepipe/pool"
)

// Config holds a Pipeline's full configuration, built via functional
// Options the same way Context is configured via
// ContextOption/contextOptions elsewhere in this codebase, generalized
// from a single renderer choice to the fuller PipelineConfig field set
// the original header exposes (name, backend preference, pool
// capacities, concurrency limits, feature toggles).
type Config struct {
	Name string

	// PreferredBackend names a registered backend.GraphicsBackend to
	// select first; empty selects the highest-priority available one.
	PreferredBackend string

	FramePoolCapacity    uint32
	TextureBucketLimit   int
	BufferPoolMaxBuffers int

	ExecutorConfig executor.Config
	SyncConfig     framesync.Config
	// EnableSync starts a framesync.Synchronizer alongside the
	// executor, for pipelines with separate GPU and CPU branches that
	// need their per-frame results paired back together. Single-path
	// graphs should leave this false to avoid the idle sweep
	// goroutine a Synchronizer always runs.
	EnableSync bool

	EnableParallelExecution bool
	EnableFrameSkipping     bool
	EnableProfiling         bool
	EnableValidation        bool
	EnableLogging           bool
}

// Option configures a Config during Pipeline creation.
type Option func(*Config)

// defaultConfig mirrors the original PipelineConfig's defaults.
func defaultConfig() Config {
	return Config{
		Name:                 "pipeline",
		FramePoolCapacity:    pool.DefaultFramePacketPoolConfig().Capacity,
		TextureBucketLimit:   32,
		BufferPoolMaxBuffers: 64,

		ExecutorConfig: executor.DefaultConfig(),
		SyncConfig:     framesync.DefaultConfig(),

		EnableParallelExecution: true,
		EnableFrameSkipping:     true,
		EnableValidation:        true,
	}
}

// WithName sets the pipeline's diagnostic name, surfaced in logs.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithBackend sets the preferred backend name to select at Start.
func WithBackend(name string) Option {
	return func(c *Config) { c.PreferredBackend = name }
}

// WithPoolCapacities sets the frame packet pool's capacity, the
// texture pool's per-spec bucket limit, and the CPU buffer pool's
// maximum tracked buffer count.
func WithPoolCapacities(framePool uint32, textureBuckets, bufferPoolMax int) Option {
	return func(c *Config) {
		c.FramePoolCapacity = framePool
		c.TextureBucketLimit = textureBuckets
		c.BufferPoolMaxBuffers = bufferPoolMax
	}
}

// WithExecutorLimits sets the maximum number of frames in flight and
// whether frames beyond that limit are dropped (true). With false the
// limit is not enforced; admission then waits only on the frame pool,
// whose Acquire blocks up to its timeout once the pool is exhausted.
func WithExecutorLimits(maxPendingFrames int, enableFrameSkipping bool) Option {
	return func(c *Config) {
		c.ExecutorConfig.MaxPendingFrames = maxPendingFrames
		c.ExecutorConfig.EnableFrameSkipping = enableFrameSkipping
		c.EnableFrameSkipping = enableFrameSkipping
	}
}

// WithExecutionMode selects dependency-driven or layered scheduling.
func WithExecutionMode(mode executor.ExecutionMode) Option {
	return func(c *Config) { c.ExecutorConfig.Mode = mode }
}

// WithWorkerCounts sets the CPU and I/O queue worker pool sizes.
func WithWorkerCounts(cpuWorkers, ioWorkers int) Option {
	return func(c *Config) {
		c.ExecutorConfig.CPUWorkers = cpuWorkers
		c.ExecutorConfig.IOWorkers = ioWorkers
	}
}

// WithSyncPolicy configures the dual-path frame synchronizer for
// pipelines that run both a GPU and a CPU branch per frame.
func WithSyncPolicy(policy framesync.SyncPolicy, maxWait time.Duration) Option {
	return func(c *Config) {
		c.EnableSync = true
		c.SyncConfig.Policy = policy
		c.SyncConfig.MaxWait = maxWait
	}
}

// WithDebugToggles enables profiling, graph validation, and verbose
// logging, matching the original's EnableProfiling/EnableValidation/
// EnableLogging flags.
func WithDebugToggles(profiling, validation, logging bool) Option {
	return func(c *Config) {
		c.EnableProfiling = profiling
		c.EnableValidation = validation
		c.EnableLogging = logging
	}
}
