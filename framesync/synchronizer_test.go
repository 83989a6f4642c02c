package framesync

import (
	"testing"
	"time"

	"github.com/gavinzl/framepipe/frame"
)

func TestSynchronizer_WaitBothPairsMatchingTimestamps(t *testing.T) {
	s := New(DefaultConfig())
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 1000)
	if s.HasSyncedFrame() {
		t.Fatal("synced frame available before CPU path arrived")
	}
	s.PushCPUFrame(frame.NewPacket(), 1000)

	sf := s.TryGetSyncedFrame()
	if sf == nil {
		t.Fatal("expected a synced frame")
	}
	if !sf.Complete() {
		t.Fatal("synced frame should be complete")
	}
}

func TestSynchronizer_ToleranceMatchesCloseTimestamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimestampTolerance = 500
	s := New(cfg)
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 10000)
	s.PushCPUFrame(frame.NewPacket(), 10300)

	sf := s.TryGetSyncedFrame()
	if sf == nil || !sf.Complete() {
		t.Fatal("expected frames within tolerance to pair")
	}
}

func TestSynchronizer_GPUFirstDoesNotCompleteBeforeTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = GPUFirst
	s := New(cfg)
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 5000)
	if sf := s.TryGetSyncedFrame(); sf != nil {
		t.Fatal("GPUFirst emitted a pair before the CPU branch arrived or the wait budget expired")
	}
}

func TestSynchronizer_GPUFirstEmitsPartialOnTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = GPUFirst
	cfg.MaxWait = 10 * time.Millisecond
	s := New(cfg)
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 5000)

	sf := s.WaitSyncedFrame(200 * time.Millisecond)
	if sf == nil {
		t.Fatal("expected GPUFirst to emit the GPU-only pair once it timed out")
	}
	if !sf.HasGPU || sf.HasCPU {
		t.Fatalf("synced frame HasGPU=%v HasCPU=%v, want true/false", sf.HasGPU, sf.HasCPU)
	}
}

func TestSynchronizer_CPUFirstDropsNonPreferredBranchOnTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = CPUFirst
	cfg.MaxWait = 10 * time.Millisecond
	s := New(cfg)
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 5000)

	if sf := s.WaitSyncedFrame(200 * time.Millisecond); sf != nil {
		t.Fatalf("CPUFirst emitted a GPU-only pair on timeout, want it dropped")
	}
	if stats := s.Stats(); stats.DroppedFrames != 1 {
		t.Fatalf("DroppedFrames = %d, want 1", stats.DroppedFrames)
	}
}

func TestSynchronizer_WaitSyncedFrameBlocksThenReturns(t *testing.T) {
	s := New(DefaultConfig())
	defer s.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.PushGPUFrame(frame.NewPacket(), 42)
		s.PushCPUFrame(frame.NewPacket(), 42)
	}()

	sf := s.WaitSyncedFrame(500 * time.Millisecond)
	if sf == nil {
		t.Fatal("expected WaitSyncedFrame to return a completed frame")
	}
}

func TestSynchronizer_WaitSyncedFrameTimesOut(t *testing.T) {
	s := New(DefaultConfig())
	defer s.Close()

	sf := s.WaitSyncedFrame(20 * time.Millisecond)
	if sf != nil {
		t.Fatal("expected nil on timeout with nothing pushed")
	}
}

func TestSynchronizer_TimeoutSweepEvictsStalePending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = WaitBoth
	cfg.MaxWait = 15 * time.Millisecond
	s := New(cfg)
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 99)
	time.Sleep(80 * time.Millisecond)

	if s.PendingGPUCount() != 0 {
		t.Fatalf("pending GPU count = %d, want 0 after sweep timeout", s.PendingGPUCount())
	}
	if s.Stats().DroppedFrames == 0 {
		t.Fatal("expected dropped count to increase after a WaitBoth timeout with no CPU arrival")
	}
}

func TestSynchronizer_FlushEmitsIncompleteFrames(t *testing.T) {
	s := New(DefaultConfig())
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 7)
	s.Flush()

	sf := s.TryGetSyncedFrame()
	if sf == nil {
		t.Fatal("expected Flush to emit the incomplete pending frame")
	}
	if sf.Complete() {
		t.Fatal("flushed frame should not report Complete")
	}
}

func TestSynchronizer_ClearDropsPendingWithoutEmitting(t *testing.T) {
	s := New(DefaultConfig())
	defer s.Close()

	s.PushGPUFrame(frame.NewPacket(), 3)
	s.Clear()

	if s.HasSyncedFrame() {
		t.Fatal("Clear should not emit pending frames")
	}
	if s.PendingGPUCount() != 0 {
		t.Fatal("Clear should remove pending entries")
	}
}

func TestSynchronizer_CloseIsIdempotent(t *testing.T) {
	s := New(DefaultConfig())
	s.Close()
	s.Close()
}
