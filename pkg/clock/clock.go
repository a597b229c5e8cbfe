// Package clock abstracts time so that the debounce and reconnect timers
// can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock supplies the current time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Real returns a Clock backed by package time.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Mock is a manually advanced Clock. Timer callbacks run synchronously
// inside Advance, on the caller's goroutine, in deadline order.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*mockTimer
}

// NewMock returns a Mock set to start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the mock has advanced by d.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &mockTimer{mock: m, when: m.now.Add(d), seq: m.seq, fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves time forward by d and fires every timer that comes due,
// including timers scheduled by callbacks within the window.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDueLocked(end)
		if t == nil {
			m.now = end
			m.mu.Unlock()
			return
		}
		m.now = t.when
		m.removeLocked(t)
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of scheduled timers that have not fired.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Mock) nextDueLocked(end time.Time) *mockTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})
	if t := m.timers[0]; !t.when.After(end) {
		return t
	}
	return nil
}

func (m *Mock) removeLocked(t *mockTimer) bool {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type mockTimer struct {
	mock *Mock
	when time.Time
	seq  int
	fn   func()
}

func (t *mockTimer) Stop() bool {
	t.mock.mu.Lock()
	defer t.mock.mu.Unlock()
	return t.mock.removeLocked(t)
}
