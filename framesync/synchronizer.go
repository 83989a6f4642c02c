// Package framesync pairs the GPU-path and CPU-path processing
// results of a dual-path pipeline by timestamp, so a downstream
// consumer sees one SyncedFrame per capture instant instead of two
// independently-timed streams.
package framesync

import (
	"sync"
	"time"

	"github.com/gavinzl/framepipe/frame"
)

// SyncPolicy selects how the synchronizer treats a frame that has
// only one of its two paths available.
type SyncPolicy int

const (
	// WaitBoth holds a frame pending until both paths arrive or the
	// wait times out.
	WaitBoth SyncPolicy = iota
	// GPUFirst pairs like WaitBoth while both paths can still arrive;
	// when a pending frame times out after MaxWait, it is emitted with
	// only its GPU result if it has one, and dropped if it holds only a
	// CPU result.
	GPUFirst
	// CPUFirst is the mirror of GPUFirst for the CPU path.
	CPUFirst
	// DropOld discards any still-pending older frame the moment a
	// newer timestamp arrives on either path, keeping only the latest.
	DropOld
)

// SyncedFrame is one timestamp's paired result.
type SyncedFrame struct {
	GPUFrame  *frame.Packet
	CPUFrame  *frame.Packet
	Timestamp int64
	HasGPU    bool
	HasCPU    bool
}

// Complete reports whether both paths are present.
func (s *SyncedFrame) Complete() bool { return s.HasGPU && s.HasCPU }

// Empty reports whether neither path is present.
func (s *SyncedFrame) Empty() bool { return !s.HasGPU && !s.HasCPU }

// Config configures a Synchronizer.
type Config struct {
	Policy SyncPolicy
	// MaxWait bounds how long a pending frame waits for its other
	// path before the policy's timeout behavior applies.
	MaxWait time.Duration
	// TimestampTolerance is the maximum timestamp difference, in
	// microseconds, at which two arrivals are still considered the
	// same logical frame (capture timestamps from two independent
	// paths rarely land on the exact same microsecond).
	TimestampTolerance int64
	// MaxPendingFrames bounds the number of incomplete frames tracked
	// at once; pushing past this drops the oldest pending frame.
	MaxPendingFrames int
}

// DefaultConfig mirrors the reference FrameSyncConfig defaults.
func DefaultConfig() Config {
	return Config{
		Policy:             WaitBoth,
		MaxWait:            33 * time.Millisecond,
		TimestampTolerance: 1000,
		MaxPendingFrames:   3,
	}
}

type pendingFrame struct {
	gpu, cpu       *frame.Packet
	timestamp      int64
	arrival        time.Time
	hasGPU, hasCPU bool
}

// Synchronizer pairs GPU-path and CPU-path packets by timestamp.
// Grounded on the original FrameSynchronizer: pushGPUFrame/
// pushCPUFrame/tryGetSyncedFrame/waitSyncedFrame/checkTimeouts/
// cleanupOldFrames, realized with a background sweep goroutine instead
// of the original's lazy check-on-access pattern, since Go idiomatically
// prefers an owned ticking goroutine over interleaving timeout checks
// into every public method.
type Synchronizer struct {
	config Config

	mu      sync.Mutex
	pending map[int64]*pendingFrame
	synced  []*SyncedFrame
	cond    *sync.Cond

	callback func(*SyncedFrame)

	totalGPU    uint64
	totalCPU    uint64
	totalSynced uint64
	dropped     uint64

	closeOnce sync.Once
	closeCh   chan struct{}
	sweepDone chan struct{}
}

// New creates a Synchronizer and starts its background timeout sweep.
func New(config Config) *Synchronizer {
	s := &Synchronizer{
		config:    config,
		pending:   make(map[int64]*pendingFrame),
		closeCh:   make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.sweepLoop()
	return s
}

// SetCallback registers fn to be called, in addition to being queued
// for TryGetSyncedFrame/WaitSyncedFrame, whenever a frame completes
// synchronization.
func (s *Synchronizer) SetCallback(fn func(*SyncedFrame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// PushGPUFrame records pkt as the GPU-path result for timestamp
// (microseconds).
func (s *Synchronizer) PushGPUFrame(pkt *frame.Packet, timestamp int64) {
	s.push(pkt, timestamp, true)
}

// PushCPUFrame records pkt as the CPU-path result for timestamp
// (microseconds).
func (s *Synchronizer) PushCPUFrame(pkt *frame.Packet, timestamp int64) {
	s.push(pkt, timestamp, false)
}

func (s *Synchronizer) push(pkt *frame.Packet, timestamp int64, isGPU bool) {
	s.mu.Lock()

	if isGPU {
		s.totalGPU++
	} else {
		s.totalCPU++
	}

	if s.config.Policy == DropOld {
		match := s.findMatchingTimestampLocked(timestamp)
		for ts := range s.pending {
			if ts != match && ts < timestamp {
				delete(s.pending, ts)
				s.dropped++
			}
		}
	}

	key := s.findMatchingTimestampLocked(timestamp)
	pf, ok := s.pending[key]
	if !ok {
		if s.config.MaxPendingFrames > 0 {
			for len(s.pending) >= s.config.MaxPendingFrames {
				s.evictOldestLocked()
			}
		}
		pf = &pendingFrame{timestamp: timestamp, arrival: time.Now()}
		s.pending[timestamp] = pf
		key = timestamp
	}

	if isGPU {
		pf.gpu = pkt
		pf.hasGPU = true
	} else {
		pf.cpu = pkt
		pf.hasCPU = true
	}

	s.tryCompleteLocked(key)
	s.mu.Unlock()
}

// findMatchingTimestampLocked returns the pending-frame key within
// TimestampTolerance of timestamp, or timestamp itself if none match.
// Caller must hold s.mu.
func (s *Synchronizer) findMatchingTimestampLocked(timestamp int64) int64 {
	if _, ok := s.pending[timestamp]; ok {
		return timestamp
	}
	for ts := range s.pending {
		diff := ts - timestamp
		if diff < 0 {
			diff = -diff
		}
		if diff <= s.config.TimestampTolerance {
			return ts
		}
	}
	return timestamp
}

// tryCompleteLocked emits the pending frame at key if the configured
// policy considers it ready. Caller must hold s.mu.
func (s *Synchronizer) tryCompleteLocked(key int64) {
	pf, ok := s.pending[key]
	if !ok {
		return
	}

	// A pair is only complete at arrival time once both branches have
	// reported in; GPUFirst/CPUFirst/DropOld only relax that
	// requirement for entries that time out still incomplete, handled
	// by checkTimeouts, not here.
	if !(pf.hasGPU && pf.hasCPU) {
		return
	}

	delete(s.pending, key)
	s.emitLocked(pf)

	if s.config.MaxPendingFrames > 0 {
		for len(s.pending) > s.config.MaxPendingFrames {
			s.evictOldestLocked()
		}
	}
}

func (s *Synchronizer) evictOldestLocked() {
	var oldestKey int64
	var oldestTime time.Time
	first := true
	for key, pf := range s.pending {
		if first || pf.arrival.Before(oldestTime) {
			oldestKey, oldestTime, first = key, pf.arrival, false
		}
	}
	if !first {
		delete(s.pending, oldestKey)
		s.dropped++
	}
}

func (s *Synchronizer) emitLocked(pf *pendingFrame) {
	synced := &SyncedFrame{
		GPUFrame:  pf.gpu,
		CPUFrame:  pf.cpu,
		Timestamp: pf.timestamp,
		HasGPU:    pf.hasGPU,
		HasCPU:    pf.hasCPU,
	}
	s.totalSynced++
	s.synced = append(s.synced, synced)
	s.cond.Broadcast()

	if s.callback != nil {
		cb := s.callback
		go cb(synced)
	}
}

// TryGetSyncedFrame returns the oldest completed synced frame without
// blocking, or nil if none is ready.
func (s *Synchronizer) TryGetSyncedFrame() *SyncedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked()
}

func (s *Synchronizer) popLocked() *SyncedFrame {
	if len(s.synced) == 0 {
		return nil
	}
	sf := s.synced[0]
	s.synced = s.synced[1:]
	return sf
}

// WaitSyncedFrame blocks until a synced frame is available or timeout
// elapses (a negative timeout waits forever). It returns nil on
// timeout.
//
// The timer callback takes s.mu before flipping timedOut and
// broadcasting, the same lock the wait loop holds while deciding to
// call Wait — so the wakeup can never be lost between the loop's
// condition check and the call to Wait, the standard pitfall with a
// condition variable paired with an out-of-band timer.
func (s *Synchronizer) WaitSyncedFrame(timeout time.Duration) *SyncedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sf := s.popLocked(); sf != nil {
		return sf
	}
	if timeout < 0 {
		for len(s.synced) == 0 {
			s.cond.Wait()
		}
		return s.popLocked()
	}

	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		timedOut = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	for len(s.synced) == 0 && !timedOut {
		s.cond.Wait()
	}
	return s.popLocked()
}

// PendingGPUCount returns the number of pending frames currently
// holding only a GPU-path result (or both, if still queued).
func (s *Synchronizer) PendingGPUCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pf := range s.pending {
		if pf.hasGPU {
			n++
		}
	}
	return n
}

// PendingCPUCount mirrors PendingGPUCount for the CPU path.
func (s *Synchronizer) PendingCPUCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pf := range s.pending {
		if pf.hasCPU {
			n++
		}
	}
	return n
}

// SyncedCount returns the number of completed frames waiting to be
// retrieved.
func (s *Synchronizer) SyncedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.synced)
}

// HasSyncedFrame reports whether TryGetSyncedFrame would return a
// frame right now.
func (s *Synchronizer) HasSyncedFrame() bool {
	return s.SyncedCount() > 0
}

// Clear discards every pending (incomplete) frame without emitting it.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped += uint64(len(s.pending))
	s.pending = make(map[int64]*pendingFrame)
}

// Reset clears pending and synced state and zeroes statistics.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[int64]*pendingFrame)
	s.synced = nil
	s.totalGPU, s.totalCPU, s.totalSynced, s.dropped = 0, 0, 0, 0
}

// Flush force-emits every currently pending frame, complete or not.
func (s *Synchronizer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, pf := range s.pending {
		delete(s.pending, key)
		s.emitLocked(pf)
	}
}

// sweepLoop periodically evicts pending frames that have exceeded
// MaxWait without completing, matching the original's checkTimeouts/
// cleanupOldFrames pairing.
func (s *Synchronizer) sweepLoop() {
	defer close(s.sweepDone)

	interval := s.config.MaxWait
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.checkTimeouts()
		}
	}
}

func (s *Synchronizer) checkTimeouts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, pf := range s.pending {
		if now.Sub(pf.arrival) < s.config.MaxWait {
			continue
		}
		delete(s.pending, key)
		if s.preferredBranchPresent(pf) {
			s.emitLocked(pf)
			continue
		}
		s.dropped++
	}
}

// preferredBranchPresent reports whether pf, having timed out still
// incomplete, holds the branch its policy is willing to emit alone.
// WaitBoth never emits a partial pair; GPUFirst/CPUFirst require
// their named branch specifically; DropOld accepts whichever arrived.
func (s *Synchronizer) preferredBranchPresent(pf *pendingFrame) bool {
	switch s.config.Policy {
	case GPUFirst:
		return pf.hasGPU
	case CPUFirst:
		return pf.hasCPU
	case DropOld:
		return pf.hasGPU || pf.hasCPU
	default:
		return false
	}
}

// Stats reports cumulative synchronizer activity counters.
type Stats struct {
	TotalGPUFrames    uint64
	TotalCPUFrames    uint64
	TotalSyncedFrames uint64
	DroppedFrames     uint64
}

// Stats returns a snapshot of the synchronizer's cumulative counters.
func (s *Synchronizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalGPUFrames:    s.totalGPU,
		TotalCPUFrames:    s.totalCPU,
		TotalSyncedFrames: s.totalSynced,
		DroppedFrames:     s.dropped,
	}
}

// Close stops the background sweep goroutine. Close is idempotent and
// safe to call more than once.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	<-s.sweepDone
}
