package frame

import (
	"context"
	"time"

	"github.com/gavinzl/framepipe/backend"
)

// Context carries the per-frame execution environment a node's
// Prepare/Process/Finalize methods need beyond the packets themselves:
// cancellation, the active graphics backend, and frame identity. It is
// the Go rendering of the original PipelineContext passed alongside a
// FramePacket through each entity.
type Context struct {
	// Context carries cancellation and deadlines for this frame's
	// execution; nodes should check Err() at long-running steps.
	context.Context

	// Backend is the graphics backend GPU-queue nodes issue texture
	// and shader work against. It is nil for a pipeline configured
	// with no backend (CPU-only graphs).
	Backend backend.GraphicsBackend

	// FrameID is the identity of the frame currently being processed.
	FrameID uint64

	// TimestampUS is the frame's capture timestamp in microseconds.
	TimestampUS int64
}

// NewContext wraps parent with the given backend and frame identity.
// A nil parent is treated as context.Background().
func NewContext(parent context.Context, backend backend.GraphicsBackend, frameID uint64, timestampUS int64) *Context {
	if parent == nil {
		parent = context.Background()
	}
	return &Context{Context: parent, Backend: backend, FrameID: frameID, TimestampUS: timestampUS}
}

// WaitTimeout resolves a millisecond timeout against the context's own
// deadline, per spec.md's "all blocking waits accept context.Context
// in addition to a millisecond timeout" rule: a negative timeout means
// unbounded (bounded only by the context's deadline, if any); a
// non-negative timeout is capped to whichever is sooner.
func (c *Context) WaitTimeout(timeoutMS int64) time.Duration {
	if timeoutMS < 0 {
		if dl, ok := c.Deadline(); ok {
			return time.Until(dl)
		}
		return -1
	}
	requested := time.Duration(timeoutMS) * time.Millisecond
	if dl, ok := c.Deadline(); ok {
		if remaining := time.Until(dl); remaining < requested {
			return remaining
		}
	}
	return requested
}
