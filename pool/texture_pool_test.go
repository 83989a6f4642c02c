package pool

import (
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gavinzl/framepipe/backend"
	_ "github.com/gavinzl/framepipe/backend/softbackend"
)

func newTestBackend(t *testing.T) backend.GraphicsBackend {
	t.Helper()
	b, err := backend.NewBackendByName("software")
	if err != nil {
		t.Fatalf("NewBackendByName(software): %v", err)
	}
	return b
}

func TestTexturePool_ReuseIsAHit(t *testing.T) {
	be := newTestBackend(t)
	p := NewTexturePool(be, DefaultTexturePoolConfig())

	spec := backend.TextureSpec{Width: 64, Height: 64, Format: gputypes.TextureFormatRGBA8Unorm}
	tex, err := p.Acquire(spec)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(spec, tex)

	if _, err := p.Acquire(spec); err != nil {
		t.Fatalf("Acquire (reuse): %v", err)
	}
	if stats := p.Stats(); stats.HitCount != 1 || stats.MissCount != 1 {
		t.Fatalf("Stats() = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestTexturePool_ReleaseBeyondCapacityDestroys(t *testing.T) {
	be := newTestBackend(t)
	config := DefaultTexturePoolConfig()
	config.MaxTexturesPerBucket = 1
	p := NewTexturePool(be, config)

	spec := backend.TextureSpec{Width: 32, Height: 32, Format: gputypes.TextureFormatRGBA8Unorm}
	a, _ := p.Acquire(spec)
	b, _ := p.Acquire(spec)

	p.Release(spec, a)
	p.Release(spec, b) // bucket already holds one idle texture; this one is destroyed

	if got := p.AvailableCount(); got != 1 {
		t.Fatalf("AvailableCount() = %d, want 1 (second release exceeded MaxTexturesPerBucket)", got)
	}
}

func TestTexturePool_CleanupEvictsExpiredIdleTextures(t *testing.T) {
	be := newTestBackend(t)
	config := DefaultTexturePoolConfig()
	config.IdleTimeout = time.Millisecond
	p := NewTexturePool(be, config)

	spec := backend.TextureSpec{Width: 16, Height: 16, Format: gputypes.TextureFormatRGBA8Unorm}
	tex, _ := p.Acquire(spec)
	p.Release(spec, tex)

	time.Sleep(5 * time.Millisecond)
	p.Cleanup()

	if got := p.AvailableCount(); got != 0 {
		t.Fatalf("AvailableCount() after Cleanup = %d, want 0", got)
	}
}

func TestTexturePool_Clear(t *testing.T) {
	be := newTestBackend(t)
	p := NewTexturePool(be, DefaultTexturePoolConfig())

	spec := backend.TextureSpec{Width: 8, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm}
	tex, _ := p.Acquire(spec)
	p.Release(spec, tex)

	p.Clear()
	if got := p.AvailableCount(); got != 0 {
		t.Fatalf("AvailableCount() after Clear = %d, want 0", got)
	}
}
