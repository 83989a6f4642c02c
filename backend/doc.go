// Package backend provides a pluggable graphics-backend abstraction
// for the pipeline's GPU-affine nodes.
//
// # Backend registration
//
// Concrete backends register a factory via Register, typically from
// an init() function so importing the package for side effects is
// enough to make it available:
//
//	import _ "github.com/gavinzl/framepipe/backend/softbackend"
//
// # Backend selection
//
// Use NewBackend to get the highest-priority available backend, or
// NewBackendByName to request one specifically:
//
//	b, err := backend.NewBackend()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// # Available backends
//
//   - "software": CPU-only reference implementation (always available,
//     lowest priority, registered by backend/softbackend).
package backend
