package frame

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavinzl/framepipe/backend"
	"github.com/gavinzl/framepipe/internal/idgen"
)

// Releaser is implemented by a packet's owning pool. frame depends
// only on this narrow interface so pool.FramePacketPool can own
// packets without frame importing pool, which would create an import
// cycle (pool already imports frame).
type Releaser interface {
	ReleasePacket(*Packet)
}

// Packet is the data carried between graph nodes: a GPU texture, a
// CPU byte buffer, or both, plus metadata and a ref count governing
// when the packet is eligible to return to its owning pool.
//
// Width, height, and format never change after the packet is first
// sized (I-FP-3): resizing a packet means acquiring a different one
// from the pool, not mutating this one in place.
type Packet struct {
	id       uint64
	sequence uint64

	// timestampUS is the capture instant in microseconds, shared by
	// both branches of a dual-path fan-out for synchronizer matching.
	timestampUS int64

	mu      sync.Mutex
	texture backend.Texture
	buffer  []byte
	stride  int
	fence   backend.Fence

	width  int
	height int
	format PixelFormat

	Metadata Metadata

	refCount atomic.Int32
	owner    Releaser
}

// NewPacket creates a standalone packet not owned by any pool. Pools
// use newPooledPacket internally; application code that needs a
// packet outside the pool/executor machinery (tests, demos) can use
// this constructor directly.
func NewPacket() *Packet {
	p := &Packet{id: idgen.NextFrameID()}
	p.refCount.Store(1)
	return p
}

// NewPooledPacket creates a packet whose Release, once the ref count
// reaches zero, returns it to owner instead of discarding it.
func NewPooledPacket(owner Releaser) *Packet {
	p := NewPacket()
	p.owner = owner
	return p
}

// ID returns the packet's identity, stable for its lifetime including
// across pool reuse (Reset does not change it — a fresh id is
// assigned only when the pool actually allocates a new packet).
func (p *Packet) ID() uint64 { return p.id }

// Sequence returns the packet's sequence number.
func (p *Packet) Sequence() uint64 { return p.sequence }

// SetSequence sets the packet's sequence number.
func (p *Packet) SetSequence(seq uint64) { p.sequence = seq }

// TimestampUS returns the capture timestamp in microseconds.
func (p *Packet) TimestampUS() int64 { return p.timestampUS }

// SetTimestampUS sets the capture timestamp in microseconds.
func (p *Packet) SetTimestampUS(us int64) { p.timestampUS = us }

// Width returns the frame width in pixels.
func (p *Packet) Width() int { return p.width }

// Height returns the frame height in pixels.
func (p *Packet) Height() int { return p.height }

// Format returns the frame's pixel format.
func (p *Packet) Format() PixelFormat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// SetSize sets width, height, and format together, per I-FP-3 ("never
// change after first set" is a contract on the pool, which must hand
// out a differently-sized packet rather than resize one in place —
// Packet itself does not enforce immutability, since the pool is the
// only caller expected to size a freshly-allocated packet).
func (p *Packet) SetSize(width, height int, format PixelFormat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
	p.height = height
	p.format = format
}

// Texture returns the packet's GPU texture, or nil if it only carries
// CPU data.
func (p *Packet) Texture() backend.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.texture
}

// SetTexture attaches a GPU texture to the packet.
func (p *Packet) SetTexture(tex backend.Texture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texture = tex
}

// CPUBufferNoWait returns the CPU buffer and its row stride without
// attempting a GPU readback, even if a texture is present and the CPU
// buffer is empty.
func (p *Packet) CPUBufferNoWait() (buf []byte, stride int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer, p.stride
}

// CPUBuffer returns the CPU buffer, lazily downloading it from the
// GPU texture first if the buffer is empty and a texture is present,
// after waiting up to timeout on the fence if one is set. download is
// supplied by the caller (the executor or
// backend knows how to read a texture back; frame does not depend on
// backend readback machinery itself). If no texture is present,
// download is never called and the existing (possibly nil) buffer is
// returned as-is.
func (p *Packet) CPUBuffer(timeout time.Duration, download func(backend.Texture) ([]byte, int, error)) ([]byte, int, error) {
	p.mu.Lock()
	buf, stride, tex, fence := p.buffer, p.stride, p.texture, p.fence
	p.mu.Unlock()

	if buf != nil || tex == nil {
		return buf, stride, nil
	}
	if fence != nil && !fence.Wait(timeout) {
		return nil, 0, errTimeout("CPUBuffer: timed out waiting for GPU fence")
	}

	downloaded, downloadedStride, err := download(tex)
	if err != nil {
		return nil, 0, err
	}

	p.mu.Lock()
	p.buffer = downloaded
	p.stride = downloadedStride
	p.mu.Unlock()
	return downloaded, downloadedStride, nil
}

// SetCPUBuffer attaches a CPU byte buffer and its row stride.
func (p *Packet) SetCPUBuffer(buf []byte, stride int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer = buf
	p.stride = stride
}

// Fence returns the packet's GPU fence, if any.
func (p *Packet) Fence() backend.Fence {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fence
}

// SetFence attaches a GPU fence a consumer must wait on before the
// packet's pixel data is valid to read from the CPU side.
func (p *Packet) SetFence(f backend.Fence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fence = f
}

// WaitGPU blocks until the packet's fence is signaled or timeout
// elapses. With no fence set, it returns immediately (true): there is
// nothing to wait for.
func (p *Packet) WaitGPU(timeout time.Duration) bool {
	f := p.Fence()
	if f == nil {
		return true
	}
	return f.Wait(timeout)
}

// Retain increments the packet's reference count. Call before handing
// the packet to a second consumer (e.g. a fan-out edge) that will
// Release it independently.
func (p *Packet) Retain() {
	p.refCount.Add(1)
}

// Release decrements the reference count. When it reaches zero, the
// packet returns to its owning pool (if any); a standalone packet
// created with NewPacket is simply left for the garbage collector.
// Release returns the post-decrement count.
func (p *Packet) Release() int32 {
	n := p.refCount.Add(-1)
	if n == 0 && p.owner != nil {
		p.owner.ReleasePacket(p)
	}
	return n
}

// RefCount returns the current reference count.
func (p *Packet) RefCount() int32 {
	return p.refCount.Load()
}

// Reset clears a packet's contents for reuse by a pool. It does not
// change the packet's id. Callers must hold the only reference (ref
// count back at the pool's baseline) before calling Reset; the pool
// enforces this by only resetting packets it gets back via Release.
func (p *Packet) Reset() {
	p.mu.Lock()
	p.texture = nil
	p.buffer = nil
	p.stride = 0
	p.fence = nil
	p.width = 0
	p.height = 0
	p.format = Unknown
	p.mu.Unlock()

	p.sequence = 0
	p.timestampUS = 0
	p.Metadata.Clear()
	p.refCount.Store(1)
}

// Clone returns a new packet sharing this packet's texture (GPU
// resources are not duplicated) and a copy of its metadata, but not
// its CPU buffer — a clone that wants CPU pixels must download them
// itself, since the source packet's buffer is not a shared resource
// safe to alias across independent lifetimes.
func (p *Packet) Clone() *Packet {
	p.mu.Lock()
	tex, fence := p.texture, p.fence
	width, height, format := p.width, p.height, p.format
	p.mu.Unlock()

	clone := NewPacket()
	clone.width, clone.height, clone.format = width, height, format
	clone.texture = tex
	clone.fence = fence
	clone.timestampUS = p.timestampUS
	clone.sequence = p.sequence
	clone.Metadata.CopyFrom(&p.Metadata)
	return clone
}

type timeoutError string

func (e timeoutError) Error() string { return string(e) }

func errTimeout(msg string) error { return timeoutError(msg) }
