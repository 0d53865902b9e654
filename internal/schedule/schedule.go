// Package schedule provides delayed tasks behind an interface so callers can
// run on the wall clock in production and on virtual time in tests.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled function that has not necessarily fired yet.
type Task interface {
	// Stop cancels the task. It returns false if the task already fired
	// or was already stopped.
	Stop() bool
}

// Scheduler runs functions after a delay.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Task
}

type realScheduler struct{}

// Real returns a Scheduler backed by the wall clock. Functions run on their
// own goroutine, as with time.AfterFunc.
func Real() Scheduler {
	return realScheduler{}
}

func (realScheduler) Now() time.Time { return time.Now() }

func (realScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// Manual is a Scheduler driven by Advance. Due tasks run synchronously on
// the goroutine calling Advance, ordered by due time and then by the order
// they were scheduled.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m    *Manual
	at   time.Time
	seq  uint64
	fn   func()
	done bool
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the virtual clock reaches Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{m: m, at: m.now.Add(d), seq: m.seq, fn: f}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d, running every task that becomes due,
// including tasks scheduled by tasks that run during this call.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.popDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		if t.at.After(m.now) {
			m.now = t.at
		}
		m.mu.Unlock()
		t.fn()
	}
}

// Pending returns the number of tasks that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// popDue removes and returns the earliest task due at or before target.
// Callers hold m.mu.
func (m *Manual) popDue(target time.Time) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at.Equal(m.tasks[j].at) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].at.Before(m.tasks[j].at)
	})
	t := m.tasks[0]
	if t.at.After(target) {
		return nil
	}
	m.tasks = m.tasks[1:]
	t.done = true
	return t
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, other := range t.m.tasks {
		if other == t {
			t.m.tasks = append(t.m.tasks[:i], t.m.tasks[i+1:]...)
			break
		}
	}
	return true
}
