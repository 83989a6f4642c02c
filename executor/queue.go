// Package executor dispatches a pipeline graph's nodes onto worker
// queues and drives frames through it, dependency by dependency.
package executor

import (
	"github.com/gavinzl/framepipe/graph"
	"github.com/gavinzl/framepipe/internal/parallel"
)

// newQueueSet creates the three worker pools a node's QueueKind
// dispatches onto: a single-worker FIFO pool for GPU submissions
// (reordering would break fence/texture sequencing), a parallel pool
// for CPU work, and a small fixed pool for I/O (source/sink) work.
// Grounded on the original's three task::TaskQueue instances
// (mGPUQueue/mCPUQueue/mIOQueue), realized here with
// internal/parallel.WorkerPool instead of a bespoke task queue type.
func newQueueSet(cpuWorkers, ioWorkers int) map[graph.QueueKind]*parallel.WorkerPool {
	if ioWorkers <= 0 {
		ioWorkers = 2
	}
	return map[graph.QueueKind]*parallel.WorkerPool{
		graph.GPUQueue: parallel.NewSerialPool(),
		graph.CPUQueue: parallel.NewWorkerPool(cpuWorkers),
		graph.IOQueue:  parallel.NewWorkerPool(ioWorkers),
	}
}

func closeQueueSet(queues map[graph.QueueKind]*parallel.WorkerPool) {
	for _, q := range queues {
		q.Close()
	}
}
