package pool

import (
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gavinzl/framepipe/backend"
	"github.com/gavinzl/framepipe/internal/cache"
)

// TextureSpec identifies a bucket of interchangeable textures: size
// and format, but not the caller-facing Label (two textures of the
// same size/format are interchangeable regardless of what either was
// originally labeled for).
type TextureSpec struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
}

func specOf(spec backend.TextureSpec) TextureSpec {
	return TextureSpec{Width: spec.Width, Height: spec.Height, Format: spec.Format}
}

// TexturePoolConfig configures a TexturePool.
type TexturePoolConfig struct {
	// MaxTexturesPerBucket bounds how many idle textures of one
	// (width,height,format) spec are kept; beyond this, a released
	// texture is destroyed instead of returned to the bucket.
	MaxTexturesPerBucket int
	// MaxBuckets bounds the number of distinct specs tracked at once;
	// the least-recently-used bucket's idle textures are destroyed to
	// make room for a new spec once this is exceeded.
	MaxBuckets int
	// IdleTimeout bounds how long an idle texture is kept before
	// Cleanup destroys it.
	IdleTimeout time.Duration
}

// DefaultTexturePoolConfig mirrors the reference defaults.
func DefaultTexturePoolConfig() TexturePoolConfig {
	return TexturePoolConfig{
		MaxTexturesPerBucket: 4,
		MaxBuckets:           32,
		IdleTimeout:          5 * time.Second,
	}
}

type textureEntry struct {
	texture  backend.Texture
	lastUsed time.Time
}

type bucket struct {
	mu   sync.Mutex
	idle []textureEntry
}

// TexturePool recycles GPU textures, bucketed by (width, height,
// format) so an acquire for a previously-seen spec is a pop from an
// idle list instead of a fresh backend allocation. Bucket recency is
// tracked with internal/cache's LRU so the least-recently-used spec
// is the first one trimmed once MaxBuckets is exceeded (e.g. a
// preview surface that resizes repeatedly should not accumulate one
// bucket per size forever).
type TexturePool struct {
	backend backend.GraphicsBackend
	config  TexturePoolConfig

	mu      sync.Mutex
	buckets *cache.Cache[TextureSpec, *bucket]

	hitCount      uint64
	missCount     uint64
	totalCreated  uint64
	totalReleased uint64
}

// NewTexturePool creates a pool that allocates new textures from
// backend when no idle one satisfies a request.
func NewTexturePool(backend backend.GraphicsBackend, config TexturePoolConfig) *TexturePool {
	p := &TexturePool{
		backend: backend,
		config:  config,
		buckets: cache.New[TextureSpec, *bucket](config.MaxBuckets),
	}
	p.buckets.SetEvictCallback(func(_ TextureSpec, b *bucket) {
		b.mu.Lock()
		for _, entry := range b.idle {
			backend.DestroyTexture(entry.texture)
		}
		b.idle = nil
		b.mu.Unlock()
	})
	return p
}

// Acquire returns a texture matching spec, reusing an idle one if the
// bucket has one, or creating a new one via the pool's backend
// otherwise.
func (p *TexturePool) Acquire(spec backend.TextureSpec) (backend.Texture, error) {
	key := specOf(spec)
	b, _ := p.buckets.GetOrCreate(key, func() *bucket { return &bucket{} })

	b.mu.Lock()
	if n := len(b.idle); n > 0 {
		entry := b.idle[n-1]
		b.idle = b.idle[:n-1]
		b.mu.Unlock()
		p.mu.Lock()
		p.hitCount++
		p.mu.Unlock()
		return entry.texture, nil
	}
	b.mu.Unlock()

	tex, err := p.backend.CreateTexture(spec)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.missCount++
	p.totalCreated++
	p.mu.Unlock()
	return tex, nil
}

// Release returns tex, allocated for spec, to its bucket for reuse. If
// the bucket is already at MaxTexturesPerBucket, tex is destroyed
// instead.
func (p *TexturePool) Release(spec backend.TextureSpec, tex backend.Texture) {
	key := specOf(spec)
	b, _ := p.buckets.GetOrCreate(key, func() *bucket { return &bucket{} })

	b.mu.Lock()
	if len(b.idle) < p.config.MaxTexturesPerBucket {
		b.idle = append(b.idle, textureEntry{texture: tex, lastUsed: time.Now()})
		b.mu.Unlock()
	} else {
		b.mu.Unlock()
		p.backend.DestroyTexture(tex)
	}
	p.mu.Lock()
	p.totalReleased++
	p.mu.Unlock()
}

// Warmup preallocates count textures of spec so the first count
// Acquire calls for it are hits. The bucket keeps at most
// MaxTexturesPerBucket of them; any beyond that are destroyed.
func (p *TexturePool) Warmup(spec backend.TextureSpec, count int) error {
	for i := 0; i < count; i++ {
		tex, err := p.backend.CreateTexture(spec)
		if err != nil {
			return err
		}
		p.Release(spec, tex)
	}
	return nil
}

// Cleanup destroys every idle texture that has sat unused longer than
// config.IdleTimeout.
func (p *TexturePool) Cleanup() {
	now := time.Now()
	for _, key := range p.buckets.Keys() {
		b, ok := p.buckets.Get(key)
		if !ok {
			continue
		}
		b.mu.Lock()
		kept := b.idle[:0]
		for _, entry := range b.idle {
			if now.Sub(entry.lastUsed) > p.config.IdleTimeout {
				p.backend.DestroyTexture(entry.texture)
			} else {
				kept = append(kept, entry)
			}
		}
		b.idle = kept
		b.mu.Unlock()
	}
}

// Clear destroys every idle texture and drops every bucket.
func (p *TexturePool) Clear() {
	for _, key := range p.buckets.Keys() {
		b, ok := p.buckets.Get(key)
		if !ok {
			continue
		}
		b.mu.Lock()
		for _, entry := range b.idle {
			p.backend.DestroyTexture(entry.texture)
		}
		b.idle = nil
		b.mu.Unlock()
	}
	p.buckets.Clear()
}

// AvailableCount returns the total number of idle textures across all
// buckets.
func (p *TexturePool) AvailableCount() int {
	total := 0
	for _, key := range p.buckets.Keys() {
		b, ok := p.buckets.Get(key)
		if !ok {
			continue
		}
		b.mu.Lock()
		total += len(b.idle)
		b.mu.Unlock()
	}
	return total
}

// HitRate returns the fraction of Acquire calls satisfied from an
// idle bucket entry rather than a fresh backend allocation.
func (p *TexturePool) HitRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.hitCount + p.missCount
	if total == 0 {
		return 0
	}
	return float64(p.hitCount) / float64(total)
}

// TextureStats reports cumulative pool activity counters.
type TextureStats struct {
	HitCount      uint64
	MissCount     uint64
	TotalCreated  uint64
	TotalReleased uint64
}

// Stats returns a snapshot of the pool's cumulative counters.
func (p *TexturePool) Stats() TextureStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return TextureStats{
		HitCount:      p.hitCount,
		MissCount:     p.missCount,
		TotalCreated:  p.totalCreated,
		TotalReleased: p.totalReleased,
	}
}

// ResetStats zeroes the pool's cumulative counters.
func (p *TexturePool) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hitCount, p.missCount, p.totalCreated, p.totalReleased = 0, 0, 0, 0
}
