package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualAfterFunc(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired []string
	m.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "b") })
	m.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })

	m.Advance(99 * time.Millisecond)
	require.Empty(t, fired)

	m.Advance(1 * time.Millisecond)
	require.Equal(t, []string{"a"}, fired)

	m.Advance(time.Second)
	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, 0, m.Pending())
}

func TestManualEvery(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var count int
	task := m.Every(300*time.Millisecond, func() { count++ })

	m.Advance(900 * time.Millisecond)
	require.Equal(t, 3, count)

	require.True(t, task.Stop())
	require.False(t, task.Stop(), "second stop should report nothing was cancelled")

	m.Advance(time.Second)
	require.Equal(t, 3, count)
}

func TestManualTiesRunInCreationOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired []int
	for i := 0; i < 3; i++ {
		m.AfterFunc(time.Second, func() { fired = append(fired, i) })
	}

	m.Advance(time.Second)
	require.Equal(t, []int{0, 1, 2}, fired)
}

func TestManualCallbackCanSchedule(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var fired bool
	m.AfterFunc(100*time.Millisecond, func() {
		m.AfterFunc(100*time.Millisecond, func() { fired = true })
	})

	m.Advance(200 * time.Millisecond)
	require.True(t, fired)
	require.Equal(t, time.Unix(0, 0).Add(200*time.Millisecond), m.Now())
}

func TestSystemEveryStops(t *testing.T) {
	var count atomic.Int32
	task := System{}.Every(10*time.Millisecond, func() { count.Add(1) })

	require.Eventually(t, func() bool { return count.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.True(t, task.Stop())
	stoppedAt := count.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, count.Load(), stoppedAt+1)
}
