package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual clock. Time only moves when Advance or RunNext is
// called, and due callbacks run synchronously on the caller's goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

// NewManual starts the clock at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	return t
}

// remove must be called with mu held.
func (m *Manual) remove(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Pending reports how many timers are armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including ones armed by callbacks along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for m.fireNext(target) {
	}
	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// RunNext jumps to the earliest armed timer and fires it. It returns false
// when nothing is armed.
func (m *Manual) RunNext() bool {
	m.mu.Lock()
	if len(m.timers) == 0 {
		m.mu.Unlock()
		return false
	}
	at := m.timers[0].at
	m.mu.Unlock()
	return m.fireNext(at)
}

func (m *Manual) fireNext(limit time.Time) bool {
	m.mu.Lock()
	if len(m.timers) == 0 || m.timers[0].at.After(limit) {
		m.mu.Unlock()
		return false
	}
	t := m.timers[0]
	m.timers = m.timers[1:]
	t.fired = true
	if t.at.After(m.now) {
		m.now = t.at
	}
	m.mu.Unlock()
	t.f()
	return true
}
