// Package platform manages the shared GPU device handle a pipeline
// runs against and selects which graphics backend to construct from
// it, grounded on the original PlatformContext (EGL/Metal context
// sharing across components) and the render.DeviceHandle /
// backend-selection idiom it is adapted from.
package platform

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gavinzl/framepipe/backend"
)

// DeviceProvider is the host application's shared GPU device, the
// same integration seam render.DeviceHandle gives gg: the pipeline
// receives a device, it never creates one.
type DeviceProvider = gpucontext.DeviceProvider

// nullDeviceProvider is a DeviceProvider with nil implementations,
// used when a pipeline runs CPU-only with no host-supplied GPU
// device, mirroring render.NullDeviceHandle.
type nullDeviceProvider struct{}

func (nullDeviceProvider) Device() gpucontext.Device   { return nil }
func (nullDeviceProvider) Queue() gpucontext.Queue     { return nil }
func (nullDeviceProvider) Adapter() gpucontext.Adapter { return nil }
func (nullDeviceProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// NoDevice returns a DeviceProvider suitable for CPU-only operation,
// where no host GPU device has been shared with the pipeline.
func NoDevice() DeviceProvider { return nullDeviceProvider{} }

// Context holds the GPU device shared with a pipeline and the
// concrete backend constructed from it, serializing backend
// construction/teardown so concurrent Pipeline instances sharing a
// Context don't race on the same device.
type Context struct {
	mu      sync.Mutex
	device  DeviceProvider
	backend backend.GraphicsBackend
}

// New creates a Context wrapping device. A nil device is replaced
// with NoDevice(), selecting CPU-only operation.
func New(device DeviceProvider) *Context {
	if device == nil {
		device = NoDevice()
	}
	return &Context{device: device}
}

// Device returns the context's shared GPU device handle.
func (c *Context) Device() DeviceProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

// Backend returns the context's currently-selected backend, or nil if
// SelectBackend/SelectBackendByName hasn't been called yet.
func (c *Context) Backend() backend.GraphicsBackend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend
}

// SelectBackend constructs and caches the highest-priority available
// backend from the global registry. Calling it again after a backend
// is already selected closes the previous one first.
func (c *Context) SelectBackend() (backend.GraphicsBackend, error) {
	be, err := backend.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}
	return c.setBackend(be), nil
}

// SelectBackendByName constructs and caches the named backend.
func (c *Context) SelectBackendByName(name string) (backend.GraphicsBackend, error) {
	be, err := backend.NewBackendByName(name)
	if err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}
	return c.setBackend(be), nil
}

func (c *Context) setBackend(be backend.GraphicsBackend) backend.GraphicsBackend {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		_ = c.backend.Close()
	}
	c.backend = be
	return be
}

// Close releases the context's currently-selected backend, if any.
// The shared device itself is owned by the host application and is
// never closed here.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}
