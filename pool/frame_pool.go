// Package pool provides fixed-capacity object pools for the types
// that would otherwise churn the allocator once per frame: frame
// packets, GPU-backed textures, and CPU byte buffers.
package pool

import (
	"sync"
	"time"

	"github.com/gavinzl/framepipe/frame"
)

// FramePacketPoolConfig configures a FramePacketPool.
type FramePacketPoolConfig struct {
	// Capacity bounds the number of live packets the pool will create.
	Capacity uint32
	// BlockOnEmpty, when true, makes Acquire wait for a packet to be
	// released rather than failing immediately once Capacity is
	// reached.
	BlockOnEmpty bool
	// BlockTimeout bounds how long Acquire waits when BlockOnEmpty is
	// set.
	BlockTimeout time.Duration
}

// DefaultFramePacketPoolConfig mirrors the reference defaults: a
// shallow pool sized for a few frames of pipeline depth, blocking
// briefly under pressure rather than failing outright.
func DefaultFramePacketPoolConfig() FramePacketPoolConfig {
	return FramePacketPoolConfig{
		Capacity:     5,
		BlockOnEmpty: true,
		BlockTimeout: 100 * time.Millisecond,
	}
}

// FramePacketPool hands out frame.Packet instances up to a fixed
// capacity, blocking (with a timeout) when the pool is exhausted
// rather than growing without bound — the pipeline's back-pressure
// mechanism for frame producers.
type FramePacketPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	available []*frame.Packet
	inUse     uint32
	created   uint32
	capacity  uint32
	config    FramePacketPoolConfig

	totalAllocations uint64
	totalReleases    uint64
	blockCount       uint64
	timeoutCount     uint64
}

// NewFramePacketPool creates a pool with the given configuration.
func NewFramePacketPool(config FramePacketPoolConfig) *FramePacketPool {
	p := &FramePacketPool{capacity: config.Capacity, config: config}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire returns a packet from the pool, creating one if capacity
// allows, blocking up to config.BlockTimeout if the pool is exhausted
// and config.BlockOnEmpty is set, or returning nil on timeout or if
// blocking is disabled and none is available.
func (p *FramePacketPool) Acquire() *frame.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pkt := p.takeLocked(); pkt != nil {
		return pkt
	}
	if !p.config.BlockOnEmpty {
		return nil
	}

	p.blockCount++
	timedOut := false
	timer := time.AfterFunc(p.config.BlockTimeout, func() {
		p.mu.Lock()
		timedOut = true
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	for {
		if pkt := p.takeLocked(); pkt != nil {
			return pkt
		}
		if timedOut {
			p.timeoutCount++
			return nil
		}
		p.cond.Wait()
	}
}

// TryAcquire returns a packet without blocking, or nil if the pool is
// exhausted.
func (p *FramePacketPool) TryAcquire() *frame.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.takeLocked()
}

// takeLocked returns an available packet, creating one if under
// capacity. Caller must hold p.mu.
func (p *FramePacketPool) takeLocked() *frame.Packet {
	if n := len(p.available); n > 0 {
		pkt := p.available[n-1]
		p.available = p.available[:n-1]
		p.inUse++
		p.totalAllocations++
		return pkt
	}
	if p.created < p.capacity {
		pkt := newPooledPacket(p)
		p.created++
		p.inUse++
		p.totalAllocations++
		return pkt
	}
	return nil
}

// Release returns pkt to the pool, resetting its state but keeping
// its identity and any pooled backing storage (texture, buffer) for
// reuse by the next Acquire.
func (p *FramePacketPool) Release(pkt *frame.Packet) {
	if pkt == nil {
		return
	}
	pkt.Reset()

	p.mu.Lock()
	p.inUse--
	p.totalReleases++
	if uint32(len(p.available)) < p.capacity {
		p.available = append(p.available, pkt)
	} else {
		p.created--
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// ReleasePacket implements frame.Releaser, so a packet created via
// AcquireAutoRelease returns itself to this pool the moment its
// reference count drops to zero.
func (p *FramePacketPool) ReleasePacket(pkt *frame.Packet) {
	p.Release(pkt)
}

// AcquireAutoRelease is like Acquire, but the returned packet is
// pooled: Release need not be called explicitly, since the packet
// returns to the pool on its own once every Retain has a matching
// Release (frame.Packet.Release, not this pool's Release).
func (p *FramePacketPool) AcquireAutoRelease() *frame.Packet {
	return p.Acquire()
}

// Preallocate creates up to count packets ahead of demand (clamped to
// the pool's remaining capacity). A count of 0 fills the pool to
// capacity.
func (p *FramePacketPool) Preallocate(count uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if count == 0 || count > p.capacity {
		count = p.capacity
	}
	for p.created < count {
		p.available = append(p.available, newPooledPacket(p))
		p.created++
	}
}

// Clear discards every packet currently available in the pool. A
// packet currently in use is not affected: when it is released it
// returns to the available set like any other.
func (p *FramePacketPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created -= uint32(len(p.available))
	p.available = nil
}

// WaitAllReleased blocks until every outstanding packet has been
// released, or timeout elapses (a negative timeout waits forever). It
// returns false on timeout.
func (p *FramePacketPool) WaitAllReleased(timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse == 0 {
		return true
	}
	if timeout < 0 {
		for p.inUse != 0 {
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

	for p.inUse != 0 && !timedOut {
		p.cond.Wait()
	}
	return p.inUse == 0
}

// AvailableCount returns the number of packets currently ready to be
// acquired without creating a new one.
func (p *FramePacketPool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// InUseCount returns the number of packets currently checked out.
func (p *FramePacketPool) InUseCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Capacity returns the pool's configured capacity.
func (p *FramePacketPool) Capacity() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// SetCapacity changes the pool's capacity. If lowered below the
// current created count, excess packets are dropped as they are next
// released rather than evicted immediately.
func (p *FramePacketPool) SetCapacity(capacity uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capacity = capacity
}

// Stats reports cumulative pool activity counters.
type Stats struct {
	TotalAllocations uint64
	TotalReleases    uint64
	BlockCount       uint64
	TimeoutCount     uint64
}

// Stats returns a snapshot of the pool's cumulative counters.
func (p *FramePacketPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		TotalAllocations: p.totalAllocations,
		TotalReleases:    p.totalReleases,
		BlockCount:       p.blockCount,
		TimeoutCount:     p.timeoutCount,
	}
}

// ResetStats zeroes the pool's cumulative counters.
func (p *FramePacketPool) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalAllocations = 0
	p.totalReleases = 0
	p.blockCount = 0
	p.timeoutCount = 0
}

func newPooledPacket(owner *FramePacketPool) *frame.Packet {
	return frame.NewPooledPacket(owner)
}
