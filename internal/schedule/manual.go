package schedule

import (
	"sort"
	"sync"
	"time"
)

// ManualTimer is a Timer driven by Advance. Functions run synchronously on
// the goroutine calling Advance, in due order.
type ManualTimer struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []manualEntry
}

type manualEntry struct {
	due time.Duration
	seq int
	fn  func()
}

// NewManualTimer returns a ManualTimer at time zero.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

func (m *ManualTimer) AfterFunc(d time.Duration, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.pending = append(m.pending, manualEntry{due: m.now + d, seq: m.seq, fn: fn})
	return nil
}

// Advance moves the clock forward by d and runs every function that has
// become due, including ones armed by functions run during this call.
func (m *ManualTimer) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	m.mu.Unlock()
	for {
		fn, ok := m.popDue()
		if !ok {
			return
		}
		fn()
	}
}

func (m *ManualTimer) popDue() (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, false
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	next := m.pending[0]
	if next.due > m.now {
		return nil, false
	}
	m.pending = m.pending[1:]
	return next.fn, true
}

// Pending returns the number of functions not yet run.
func (m *ManualTimer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
