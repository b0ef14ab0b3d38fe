// Package schedule provides cancellable delayed and periodic tasks.
//
// The scanner models every timer it owns (poll tick, suppression clear,
// settle restart, redirect delay) as a Task so that each one can be
// cancelled from every state transition that supersedes it.
package schedule

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop cancels the task. It reports whether the call prevented at least
	// one future run. Calling Stop more than once is safe.
	Stop() bool
}

// Scheduler creates tasks and reports the current time.
type Scheduler interface {
	Now() time.Time
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Task
	// Every runs fn every d until stopped. The first run happens after d.
	Every(d time.Duration, fn func()) Task
}

// System is a Scheduler backed by the runtime timers.
type System struct{}

var _ Scheduler = System{}

func (System) Now() time.Time { return time.Now() }

func (System) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

func (System) Every(d time.Duration, fn func()) Task {
	t := &ticker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type ticker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *ticker) run(fn func()) {
	defer t.ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Stop may race with a pending tick, check again before running
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.done)
		stopped = true
	})
	return stopped
}
