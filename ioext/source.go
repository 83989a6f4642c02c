// Package ioext defines the boundary contracts between a pipeline
// graph and the outside world: where frames originate and where they
// are delivered once processing completes. Grounded on the original
// InputEntity.h/OutputEntity.h/OutputEntityExt.h contracts.
package ioext

import (
	"context"

	"github.com/gavinzl/framepipe/frame"
)

// FrameSource produces packets to feed into a graph's source nodes.
// Next blocks until a frame is available, ctx is cancelled, or the
// source is exhausted (io.EOF-style callers should check ctx.Err()
// after a nil, err return).
type FrameSource interface {
	Next(ctx context.Context) (*frame.Packet, error)
}

// FuncSource adapts a plain function to FrameSource.
type FuncSource func(ctx context.Context) (*frame.Packet, error)

// Next calls f.
func (f FuncSource) Next(ctx context.Context) (*frame.Packet, error) { return f(ctx) }
