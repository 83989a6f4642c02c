package ioext

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/gavinzl/framepipe/backend"
	"github.com/gavinzl/framepipe/frame"
)

// FrameSink is the delivery endpoint a sink node hands a completed
// packet to once it leaves the graph.
type FrameSink interface {
	Name() string
	Deliver(ctx context.Context, pkt *frame.Packet) error
}

// CallbackSink forwards every delivered packet's raw CPU pixels to a
// plain function, the adapter a graph.CallbackSinkNode-style test
// double or an application's own UI layer uses to receive frames
// without implementing FrameSink itself.
type CallbackSink struct {
	name string
	fn   func(buf []byte, width, height int, format frame.PixelFormat, timestampUS int64)
}

// NewCallbackSink creates a CallbackSink that calls fn for every
// delivered packet's CPU buffer as it is (nil for a GPU-only packet;
// no download is attempted).
func NewCallbackSink(name string, fn func(buf []byte, width, height int, format frame.PixelFormat, timestampUS int64)) *CallbackSink {
	return &CallbackSink{name: name, fn: fn}
}

// Name returns the sink's name.
func (s *CallbackSink) Name() string { return s.name }

// Deliver reads pkt's CPU buffer without attempting a GPU download
// (callers needing a guaranteed CPU readback should download before
// reaching the sink; a display/encoder sink pulls the texture itself).
func (s *CallbackSink) Deliver(ctx context.Context, pkt *frame.Packet) error {
	buf, _ := pkt.CPUBufferNoWait()
	s.fn(buf, pkt.Width(), pkt.Height(), pkt.Format(), pkt.TimestampUS())
	return nil
}

// DisplaySink presents a packet's GPU texture to an on-screen surface.
// The concrete surface/swapchain is out of scope; this is the thin
// seam a platform-specific display layer plugs into, the same role
// GPUSurface plays before a real backend registers.
type DisplaySink struct {
	name    string
	backend backend.GraphicsBackend
	present func(backend.Texture) error
}

// NewDisplaySink creates a DisplaySink that hands every delivered
// packet's texture to present.
func NewDisplaySink(name string, be backend.GraphicsBackend, present func(backend.Texture) error) *DisplaySink {
	return &DisplaySink{name: name, backend: be, present: present}
}

// Name returns the sink's name.
func (s *DisplaySink) Name() string { return s.name }

// Deliver presents pkt's texture, waiting on its fence first if set.
func (s *DisplaySink) Deliver(ctx context.Context, pkt *frame.Packet) error {
	tex := pkt.Texture()
	if tex == nil {
		return fmt.Errorf("ioext: DisplaySink %q: packet has no GPU texture", s.name)
	}
	if !pkt.WaitGPU(0) {
		return fmt.Errorf("ioext: DisplaySink %q: fence wait failed", s.name)
	}
	if s.present == nil {
		return nil
	}
	return s.present(tex)
}

// Encoder is the narrow contract an external video encoder must
// satisfy; concrete codecs are out of scope, so EncoderSink only
// adapts a packet into this interface's shape.
type Encoder interface {
	EncodeFrame(buf []byte, width, height, stride int, format frame.PixelFormat, timestampUS int64) error
}

// EncoderSink forwards a packet's CPU buffer to an external Encoder,
// downloading from GPU first via download if the packet only carries
// a texture.
type EncoderSink struct {
	name     string
	encoder  Encoder
	download func(backend.Texture) ([]byte, int, error)
}

// NewEncoderSink creates an EncoderSink delivering to enc. download,
// if non-nil, is used to read a GPU-only packet's texture back to the
// CPU before encoding.
func NewEncoderSink(name string, enc Encoder, download func(backend.Texture) ([]byte, int, error)) *EncoderSink {
	return &EncoderSink{name: name, encoder: enc, download: download}
}

// Name returns the sink's name.
func (s *EncoderSink) Name() string { return s.name }

// Deliver encodes pkt's CPU buffer.
func (s *EncoderSink) Deliver(ctx context.Context, pkt *frame.Packet) error {
	buf, stride, err := pkt.CPUBuffer(0, s.download)
	if err != nil {
		return fmt.Errorf("ioext: EncoderSink %q: %w", s.name, err)
	}
	return s.encoder.EncodeFrame(buf, pkt.Width(), pkt.Height(), stride, pkt.Format(), pkt.TimestampUS())
}

// FileSink writes a downscaled PNG snapshot of every delivered packet
// to dir, a diagnostics convenience for inspecting pipeline output
// without a display or encoder attached — not a codec or container
// writer, matching the original's non-goals around muxing/encoding.
type FileSink struct {
	name      string
	dir       string
	maxWidth  int
	maxHeight int
	seq       int
}

// NewFileSink creates a FileSink writing PNG snapshots into dir,
// downscaled to fit within maxWidth x maxHeight (0 disables scaling).
func NewFileSink(name, dir string, maxWidth, maxHeight int) *FileSink {
	return &FileSink{name: name, dir: dir, maxWidth: maxWidth, maxHeight: maxHeight}
}

// Name returns the sink's name.
func (s *FileSink) Name() string { return s.name }

// Deliver decodes pkt's CPU buffer into an RGBA image, downscales it
// if it exceeds the configured bounds, and writes it as a PNG file
// under dir.
func (s *FileSink) Deliver(ctx context.Context, pkt *frame.Packet) error {
	buf, _ := pkt.CPUBufferNoWait()
	if buf == nil {
		return fmt.Errorf("ioext: FileSink %q: packet has no CPU buffer", s.name)
	}
	width, height, format := pkt.Width(), pkt.Height(), pkt.Format()

	src, err := toRGBA(buf, width, height, format)
	if err != nil {
		return fmt.Errorf("ioext: FileSink %q: %w", s.name, err)
	}

	dst := src
	if s.maxWidth > 0 && s.maxHeight > 0 && (width > s.maxWidth || height > s.maxHeight) {
		dw, dh := scaledSize(width, height, s.maxWidth, s.maxHeight)
		scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)
		dst = scaled
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ioext: FileSink %q: %w", s.name, err)
	}
	s.seq++
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%06d.png", s.name, s.seq))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioext: FileSink %q: %w", s.name, err)
	}
	defer f.Close()
	return png.Encode(f, dst)
}

// toRGBA reinterprets a packed CPU buffer as an *image.RGBA/BGRA-aware
// source image.Image suitable for scaling/encoding. Only the
// non-chroma-subsampled formats are supported; YUV/NV12/NV21/OES
// packets are out of scope for this diagnostic sink.
func toRGBA(buf []byte, width, height int, format frame.PixelFormat) (*image.RGBA, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("format %s has no fixed-layout CPU representation", format)
	}
	if len(buf) < width*height*bpp {
		return nil, fmt.Errorf("buffer too small for %dx%d %s", width, height, format)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * bpp
			var c color.RGBA
			switch format {
			case frame.RGBA8:
				c = color.RGBA{R: buf[i], G: buf[i+1], B: buf[i+2], A: buf[i+3]}
			case frame.BGRA8:
				c = color.RGBA{R: buf[i+2], G: buf[i+1], B: buf[i], A: buf[i+3]}
			case frame.RGB8:
				c = color.RGBA{R: buf[i], G: buf[i+1], B: buf[i+2], A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func scaledSize(width, height, maxWidth, maxHeight int) (int, int) {
	wr := float64(maxWidth) / float64(width)
	hr := float64(maxHeight) / float64(height)
	r := wr
	if hr < r {
		r = hr
	}
	dw := int(float64(width) * r)
	dh := int(float64(height) * r)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	return dw, dh
}
