package executor

import "sync"

const statsWindow = 32

// ExecutionStats reports the executor's cumulative and recent
// performance, grounded on the original's ExecutionStats struct
// (totalFrames/droppedFrames/averageFrameTime/peakFrameTime/
// lastFrameTime plus per-queue timing).
type ExecutionStats struct {
	TotalFrames     uint64
	DroppedFrames   uint64
	AverageFrameUS  int64 // mean over the last statsWindow frames
	PeakFrameUS     int64
	LastFrameUS     int64
	GPUQueueTimeUS  int64
	CPUQueueTimeUS  int64
	IOQueueTimeUS   int64
}

// statsTracker accumulates ExecutionStats with a moving average over
// the last statsWindow frames, so a brief spike doesn't permanently
// skew AverageFrameUS the way an all-time mean would.
type statsTracker struct {
	mu sync.Mutex

	totalFrames   uint64
	droppedFrames uint64
	peakFrameUS   int64
	lastFrameUS   int64
	gpuQueueUS    int64
	cpuQueueUS    int64
	ioQueueUS     int64

	window [statsWindow]int64
	count  int
	cursor int
	sum    int64
}

func (s *statsTracker) recordFrame(durationUS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFrames++
	s.lastFrameUS = durationUS
	if durationUS > s.peakFrameUS {
		s.peakFrameUS = durationUS
	}

	if s.count < statsWindow {
		s.window[s.cursor] = durationUS
		s.sum += durationUS
		s.count++
	} else {
		s.sum += durationUS - s.window[s.cursor]
		s.window[s.cursor] = durationUS
	}
	s.cursor = (s.cursor + 1) % statsWindow
}

func (s *statsTracker) recordDropped() {
	s.mu.Lock()
	s.droppedFrames++
	s.mu.Unlock()
}

func (s *statsTracker) addQueueTime(kind string, us int64) {
	s.mu.Lock()
	switch kind {
	case "gpu":
		s.gpuQueueUS += us
	case "cpu":
		s.cpuQueueUS += us
	case "io":
		s.ioQueueUS += us
	}
	s.mu.Unlock()
}

func (s *statsTracker) snapshot() ExecutionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg int64
	if s.count > 0 {
		avg = s.sum / int64(s.count)
	}
	return ExecutionStats{
		TotalFrames:    s.totalFrames,
		DroppedFrames:  s.droppedFrames,
		AverageFrameUS: avg,
		PeakFrameUS:    s.peakFrameUS,
		LastFrameUS:    s.lastFrameUS,
		GPUQueueTimeUS: s.gpuQueueUS,
		CPUQueueTimeUS: s.cpuQueueUS,
		IOQueueTimeUS:  s.ioQueueUS,
	}
}

func (s *statsTracker) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = statsTracker{}
}
