// Package softbackend provides a CPU-only reference implementation of
// backend.GraphicsBackend so the pipeline can run and be tested
// without a real GPU. It registers itself at low priority on import.
package softbackend

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gavinzl/framepipe/backend"
)

// Name is the registered backend name.
const Name = "software"

// Priority is low on purpose: any real GPU backend should outrank it.
const Priority = 10

func init() {
	backend.Register(Name, Priority, func() (backend.GraphicsBackend, error) {
		return New(), nil
	}, nil) // always available
}

// Backend is a CPU-only GraphicsBackend: a texture records only its
// size and format and holds no pixel storage, fences are signaled
// synchronously, and shader "compilation"
// is source validation via naga rather than execution.
type Backend struct {
	mu     sync.Mutex
	closed bool
}

// New constructs a ready-to-use software backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the registered backend name.
func (b *Backend) Name() string { return Name }

// CreateTexture returns a texture handle recording spec's size and
// format; no pixel memory is allocated.
func (b *Backend) CreateTexture(spec backend.TextureSpec) (backend.Texture, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("softbackend: invalid texture size %dx%d", spec.Width, spec.Height)
	}
	return &texture{width: spec.Width, height: spec.Height, format: spec.Format}, nil
}

// DestroyTexture is a no-op: a software texture owns no resources
// beyond the handle itself, which the garbage collector reclaims.
func (b *Backend) DestroyTexture(backend.Texture) {}

// CreateFramebuffer wraps tex as its own render target.
func (b *Backend) CreateFramebuffer(tex backend.Texture) (backend.Framebuffer, error) {
	if tex == nil {
		return nil, fmt.Errorf("softbackend: CreateFramebuffer requires a non-nil texture")
	}
	return &framebuffer{tex: tex}, nil
}

// CompileShader runs source through naga's WGSL-to-SPIR-V cross
// compiler to validate it, even though the CPU backend never executes
// the result — this still catches a malformed shader at graph-build
// time instead of silently accepting garbage.
func (b *Backend) CompileShader(source string) (backend.Shader, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("softbackend: shader validation failed: %w", err)
	}
	return &shader{source: source, spirv: spirv}, nil
}

// CreateVertexBuffer copies data into an in-memory buffer.
func (b *Backend) CreateVertexBuffer(data []byte) (backend.VertexBuffer, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &vertexBuffer{data: buf}, nil
}

// InsertFence returns a fence that is already signaled: the software
// backend has no asynchronous GPU queue, so "submission" completes
// synchronously with the call that produced it.
func (b *Backend) InsertFence() (backend.Fence, error) {
	return &fence{signaled: true}, nil
}

// WaitFence waits on f, honoring timeout.
func (b *Backend) WaitFence(f backend.Fence, timeout time.Duration) error {
	if f == nil {
		return fmt.Errorf("softbackend: WaitFence called with nil fence")
	}
	if !f.Wait(timeout) {
		return fmt.Errorf("softbackend: fence wait timed out after %s", timeout)
	}
	return nil
}

// Close marks the backend closed. Safe to call more than once.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type texture struct {
	width, height int
	format        gputypes.TextureFormat
}

func (t *texture) Width() int                     { return t.width }
func (t *texture) Height() int                    { return t.height }
func (t *texture) Format() gputypes.TextureFormat { return t.format }

type framebuffer struct {
	tex backend.Texture
}

func (f *framebuffer) Texture() backend.Texture { return f.tex }

type shader struct {
	source string
	spirv  []byte
}

func (s *shader) Source() string { return s.source }

type vertexBuffer struct {
	data []byte
}

func (v *vertexBuffer) Len() int { return len(v.data) }

type fence struct {
	mu       sync.Mutex
	signaled bool
}

func (f *fence) Wait(timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

func (f *fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}
