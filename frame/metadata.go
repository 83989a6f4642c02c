package frame

import (
	"image"
	"sync"
)

// ValueKind identifies which field of a Value is populated.
type ValueKind int

const (
	// KindInvalid marks a zero-value Value with no payload.
	KindInvalid ValueKind = iota
	// KindFloat64 marks a Value carrying a float64.
	KindFloat64
	// KindInt64 marks a Value carrying an int64.
	KindInt64
	// KindRect marks a Value carrying an image.Rectangle.
	KindRect
	// KindFaces marks a Value carrying a []Face.
	KindFaces
	// KindBytes marks a Value carrying a []byte.
	KindBytes
)

// Face is a detected face region, the shape of metadata a face
// detection node would attach to a frame for a downstream beautify or
// overlay node to consume.
type Face struct {
	Bounds     image.Rectangle
	Confidence float32
}

// Value is a closed tagged union over the metadata payload types the
// pipeline needs to move between nodes without handing out a bare
// any, which would let a misbehaving node stash an arbitrary type and
// crash a concurrent reader on type assertion. Only Kind and the field
// it selects are meaningful; the rest are zero.
type Value struct {
	Kind    ValueKind
	Float64 float64
	Int64   int64
	Rect    image.Rectangle
	Faces   []Face
	Bytes   []byte
}

// Float64Value wraps a float64 as a Value.
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Float64: v} }

// Int64Value wraps an int64 as a Value.
func Int64Value(v int64) Value { return Value{Kind: KindInt64, Int64: v} }

// RectValue wraps an image.Rectangle as a Value.
func RectValue(v image.Rectangle) Value { return Value{Kind: KindRect, Rect: v} }

// FacesValue wraps a []Face as a Value.
func FacesValue(v []Face) Value { return Value{Kind: KindFaces, Faces: v} }

// BytesValue wraps a []byte as a Value.
func BytesValue(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }

// Metadata is a mutex-guarded string-keyed map of Value, attached to
// every Packet. Node authors use it to pass auxiliary results (face
// boxes, exposure estimates, capture flags) alongside the pixel data
// without widening the Packet struct itself.
type Metadata struct {
	mu     sync.Mutex
	values map[string]Value
}

// Set stores value under key, replacing any existing entry.
func (m *Metadata) Set(key string, value Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	m.values[key] = value
}

// Get returns the value stored under key and whether it was present.
func (m *Metadata) Get(key string) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key has a stored value.
func (m *Metadata) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// Remove deletes key, if present.
func (m *Metadata) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Clear removes all entries.
func (m *Metadata) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
}

// CopyFrom overwrites m's contents with a snapshot copy of src's
// entries. Used by Packet.Clone, which must not alias the metadata
// map of the packet it was cloned from.
func (m *Metadata) CopyFrom(src *Metadata) {
	src.mu.Lock()
	snapshot := make(map[string]Value, len(src.values))
	for k, v := range src.values {
		snapshot[k] = v
	}
	src.mu.Unlock()

	m.mu.Lock()
	m.values = snapshot
	m.mu.Unlock()
}
