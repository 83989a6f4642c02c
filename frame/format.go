// Package frame defines the data carried between graph nodes: the
// frame packet, its metadata, and the pixel formats the pipeline
// understands.
package frame

// PixelFormat identifies the semantic layout of a frame's pixel data.
// It does not imply a storage location (GPU texture vs CPU buffer);
// either side of a Packet can carry any format the backend supports.
type PixelFormat int

const (
	// Unknown is the zero value: format has not been set yet.
	Unknown PixelFormat = iota

	// RGBA8 is 8 bits per channel, red-green-blue-alpha, interleaved.
	RGBA8

	// BGRA8 is 8 bits per channel, blue-green-red-alpha, interleaved.
	BGRA8

	// RGB8 is 8 bits per channel, red-green-blue, interleaved, no alpha.
	RGB8

	// YUV420 is planar 4:2:0 chroma-subsampled YUV (three planes).
	YUV420

	// NV12 is semi-planar 4:2:0 YUV with interleaved U/V (Y plane, then
	// interleaved UV plane).
	NV12

	// NV21 is semi-planar 4:2:0 YUV with interleaved V/U, the Android
	// camera preview default.
	NV21

	// OES is an opaque external texture (e.g. Android
	// GL_TEXTURE_EXTERNAL_OES); only a GPU node bound to the matching
	// backend can interpret its contents.
	OES
)

// String renders the format the way logs and DOT/JSON exports expect.
func (f PixelFormat) String() string {
	switch f {
	case RGBA8:
		return "RGBA8"
	case BGRA8:
		return "BGRA8"
	case RGB8:
		return "RGB8"
	case YUV420:
		return "YUV420"
	case NV12:
		return "NV12"
	case NV21:
		return "NV21"
	case OES:
		return "OES"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the storage cost of one pixel for formats with
// a fixed, non-subsampled layout. Planar/semi-planar YUV formats and
// OES textures return 0: their size depends on plane layout or is
// opaque to CPU code, so callers must compute (or not need) a byte
// count directly.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGBA8, BGRA8:
		return 4
	case RGB8:
		return 3
	default:
		return 0
	}
}
