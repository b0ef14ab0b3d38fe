package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by explicit calls to Advance. Callbacks run
// synchronously on the goroutine calling Advance, in deadline order, with
// ties broken by creation order. It is intended for tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

var _ Scheduler = (*Manual)(nil)

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	m        *Manual
	seq      uint64
	deadline time.Time
	interval time.Duration // zero for one shot tasks
	fn       func()
	stopped  bool
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Task {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Task {
	return m.add(d, d, fn)
}

// Pending returns the number of tasks that have not run or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every task that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}

		m.now = next.deadline
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
			m.seq++
			next.seq = m.seq
		} else {
			next.stopped = true
			m.remove(next)
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) add(d, interval time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{
		m:        m,
		seq:      m.seq,
		deadline: m.now.Add(d),
		interval: interval,
		fn:       fn,
	}
	m.tasks = append(m.tasks, t)
	return t
}

// nextDue must be called with the lock held.
func (m *Manual) nextDue(target time.Time) *manualTask {
	if len(m.tasks) == 0 {
		return nil
	}

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].deadline.Equal(m.tasks[j].deadline) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].deadline.Before(m.tasks[j].deadline)
	})

	if m.tasks[0].deadline.After(target) {
		return nil
	}
	return m.tasks[0]
}

// remove must be called with the lock held.
func (m *Manual) remove(t *manualTask) {
	for i, task := range m.tasks {
		if task == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}
