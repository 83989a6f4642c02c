package framepipe

import "github.com/gavinzl/framepipe/executor"

// GraphStats summarizes a graph's shape for execution-mode
// auto-selection, the framepipe analog of SceneStats feeding
// SelectPipeline in the reference implementation.
type GraphStats struct {
	NodeCount  int
	LayerCount int
	// MaxLayerWidth is the largest number of nodes in any single
	// layer — a wide, shallow graph favors Layered (one barrier per
	// layer is cheap relative to the parallelism it unlocks); a deep,
	// narrow graph favors DependencyDriven (each layer would barrier
	// on a single node, wasting the chain-reaction dispatch).
	MaxLayerWidth int
}

// SelectExecutionMode chooses DependencyDriven or Layered scheduling
// based on a graph's shape, mirroring the reference SelectPipeline
// heuristic (simple cases get the simpler path; everything else gets
// the more general one).
//
// Heuristics:
//   - Very small graphs (<= 3 nodes): Layered, since the dependency
//     bookkeeping isn't worth it for a handful of nodes.
//   - Wide layers (average layer width >= 3): Layered, since whole
//     layers are already naturally parallel.
//   - Everything else: DependencyDriven, the finer-grained schedule.
func SelectExecutionMode(stats GraphStats) executor.ExecutionMode {
	if stats.NodeCount <= 3 {
		return executor.Layered
	}
	if stats.LayerCount > 0 {
		avgWidth := float64(stats.NodeCount) / float64(stats.LayerCount)
		if avgWidth >= 3 {
			return executor.Layered
		}
	}
	return executor.DependencyDriven
}
