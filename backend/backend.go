// Package backend defines the contract a graphics backend must
// satisfy to back the pipeline's GPU-affine nodes: texture and
// framebuffer lifecycle, shader compilation, and fence-based GPU/CPU
// synchronization. Concrete backends self-register via Register, the
// same priority-ordered pattern used elsewhere in this codebase for
// rendering surfaces; backend/softbackend ships a CPU-only
// reference implementation so the pipeline is runnable and testable
// without a real GPU.
package backend

import (
	"time"

	"github.com/gogpu/gputypes"
)

// TextureSpec describes the texture a GPU node or the texture pool
// wants created.
type TextureSpec struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
	// Label is an optional debug name surfaced in backend diagnostics.
	Label string
}

// Texture is an opaque handle to a backend-owned GPU texture.
type Texture interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
}

// Framebuffer is an opaque render target bound to a Texture.
type Framebuffer interface {
	Texture() Texture
}

// Shader is a compiled (or backend-validated) shader program handle.
type Shader interface {
	Source() string
}

// VertexBuffer is an opaque GPU vertex buffer handle.
type VertexBuffer interface {
	Len() int
}

// Fence is a GPU synchronization point: a node signals one after
// submitting work, and a frame.Packet's consumer waits on it before
// reading GPU-produced pixels from the CPU side.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout elapses (a
	// non-positive timeout waits forever). It returns false on timeout.
	Wait(timeout time.Duration) bool
	// Signaled reports whether the fence has already been signaled,
	// without blocking.
	Signaled() bool
}

// GraphicsBackend is the boundary interface between the pipeline and
// a concrete GPU API (OpenGL ES, Metal, WebGPU, or a CPU reference
// implementation). Every operation a GPU-queue node needs is exposed
// here; concrete image algorithms are out of scope — a backend only
// manages resources and synchronization, never pixel content.
type GraphicsBackend interface {
	Name() string
	CreateTexture(spec TextureSpec) (Texture, error)
	DestroyTexture(Texture)
	CreateFramebuffer(Texture) (Framebuffer, error)
	CompileShader(source string) (Shader, error)
	CreateVertexBuffer(data []byte) (VertexBuffer, error)
	InsertFence() (Fence, error)
	WaitFence(f Fence, timeout time.Duration) error
	Close() error
}
