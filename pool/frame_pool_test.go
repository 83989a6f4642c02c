package pool

import (
	"testing"
	"time"
)

func TestFramePacketPool_AcquireUpToCapacity(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{Capacity: 2, BlockOnEmpty: false})

	a := p.Acquire()
	b := p.Acquire()
	if a == nil || b == nil {
		t.Fatal("Acquire() returned nil within capacity")
	}
	if c := p.Acquire(); c != nil {
		t.Fatal("Acquire() beyond capacity with BlockOnEmpty=false should return nil")
	}
}

func TestFramePacketPool_ReleaseReturnsToPool(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{Capacity: 1, BlockOnEmpty: false})

	pkt := p.Acquire()
	if pkt == nil {
		t.Fatal("Acquire() = nil")
	}
	if p.AvailableCount() != 0 {
		t.Fatalf("AvailableCount() = %d, want 0 while checked out", p.AvailableCount())
	}

	p.Release(pkt)
	if p.AvailableCount() != 1 {
		t.Fatalf("AvailableCount() = %d after Release, want 1", p.AvailableCount())
	}
	if p.InUseCount() != 0 {
		t.Fatalf("InUseCount() = %d after Release, want 0", p.InUseCount())
	}
}

func TestFramePacketPool_RefCountZeroAutoReleases(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{Capacity: 1, BlockOnEmpty: false})

	pkt := p.AcquireAutoRelease()
	if pkt == nil {
		t.Fatal("AcquireAutoRelease() = nil")
	}
	pkt.Retain()
	pkt.Release()
	if p.AvailableCount() != 0 {
		t.Fatal("packet returned to pool before every reference was released")
	}
	pkt.Release()
	if p.AvailableCount() != 1 {
		t.Fatal("packet did not return to pool once its reference count reached zero")
	}
}

func TestFramePacketPool_AcquireBlocksThenTimesOut(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{
		Capacity:     1,
		BlockOnEmpty: true,
		BlockTimeout: 30 * time.Millisecond,
	})
	_ = p.Acquire()

	start := time.Now()
	got := p.Acquire()
	elapsed := time.Since(start)

	if got != nil {
		t.Fatal("Acquire() beyond capacity should time out to nil")
	}
	if elapsed < 25*time.Millisecond {
		t.Fatalf("Acquire() returned after %v, want at least ~30ms of blocking", elapsed)
	}
}

func TestFramePacketPool_WaitAllReleased(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{Capacity: 2, BlockOnEmpty: false})
	a := p.Acquire()
	b := p.Acquire()

	done := make(chan struct{})
	go func() {
		p.Release(a)
		p.Release(b)
		close(done)
	}()

	if !p.WaitAllReleased(time.Second) {
		t.Fatal("WaitAllReleased() timed out waiting for both releases")
	}
	<-done
}

func TestFramePacketPool_Preallocate(t *testing.T) {
	p := NewFramePacketPool(FramePacketPoolConfig{Capacity: 3, BlockOnEmpty: false})
	p.Preallocate(0)
	if p.AvailableCount() != 3 {
		t.Fatalf("AvailableCount() after Preallocate(0) = %d, want 3 (fills to capacity)", p.AvailableCount())
	}
}
