package sync

import (
	stdsync "sync"
	"sync/atomic"
	"time"
)

// Progress is a point-in-time snapshot of a running sync.
type Progress struct {
	Processed int64   `json:"processed"`
	Total     int64   `json:"total"`
	Percent   float64 `json:"percent"`
}

// Monitor tracks progress and the last completed result. The processed
// count only ever moves forward and is safe to read while batches complete
// out of order.
type Monitor struct {
	processed atomic.Int64
	total     atomic.Int64

	mu         stdsync.Mutex
	startedAt  time.Time
	endedAt    time.Time
	lastResult *Result
}

// NewMonitor creates an idle monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Begin resets progress for a new run of the given size.
func (m *Monitor) Begin(total int) {
	m.processed.Store(0)
	m.total.Store(int64(total))
	m.mu.Lock()
	m.startedAt = time.Now().UTC()
	m.endedAt = time.Time{}
	m.mu.Unlock()
}

// Step records n more processed records.
func (m *Monitor) Step(n int) {
	m.processed.Add(int64(n))
}

// Done stores the finished run's result.
func (m *Monitor) Done(result *Result) {
	m.mu.Lock()
	m.endedAt = time.Now().UTC()
	m.lastResult = result
	m.mu.Unlock()
}

// Snapshot returns current progress. Safe for concurrent polling.
func (m *Monitor) Snapshot() Progress {
	processed := m.processed.Load()
	total := m.total.Load()
	p := Progress{Processed: processed, Total: total}
	if total > 0 {
		p.Percent = float64(processed) / float64(total) * 100
	}
	return p
}

// LastResult returns the most recent completed result, or nil.
func (m *Monitor) LastResult() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResult
}

// Window returns the started/ended timestamps of the latest run. A zero
// ended time means the run is still going.
func (m *Monitor) Window() (started, ended time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt, m.endedAt
}
