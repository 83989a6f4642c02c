package pool

import "testing"

func TestBufferPool_ReuseWithinSizeClass(t *testing.T) {
	p := NewBufferPool(8)

	buf := p.Acquire(1000)
	if len(buf) != 1000 {
		t.Fatalf("len(buf) = %d, want 1000", len(buf))
	}
	before := cap(buf)
	p.Release(buf)

	reused := p.Acquire(900) // falls in the same size class as 1000
	if cap(reused) != before {
		t.Fatalf("Acquire(900) after releasing a 1000-byte buffer did not reuse it: cap = %d, want %d", cap(reused), before)
	}
}

func TestBufferPool_ReleaseBeyondMaxBuffersDrops(t *testing.T) {
	p := NewBufferPool(1)

	a := p.Acquire(100)
	b := p.Acquire(100)
	p.Release(a)
	p.Release(b)

	if got := p.MemoryUsage(); got == 0 {
		t.Fatal("MemoryUsage() = 0 after releasing at least one buffer")
	}
	classes := p.sizeClasses()
	total := 0
	for _, c := range classes {
		total += len(p.classes[c])
	}
	if total != 1 {
		t.Fatalf("pool holds %d idle buffers, want 1 (second release exceeded maxBuffers)", total)
	}
}

func TestBufferPool_Clear(t *testing.T) {
	p := NewBufferPool(4)
	p.Release(p.Acquire(64))
	p.Clear()
	if p.MemoryUsage() != 0 {
		t.Fatalf("MemoryUsage() after Clear = %d, want 0", p.MemoryUsage())
	}
}
