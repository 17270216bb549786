package jetstream

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatMonitorFiresAfterMaxOutMisses(t *testing.T) {
	missCounts := make(chan int, 8)
	m := newHeartbeatMonitor(10*time.Millisecond, 2, 0, func(missed int) bool {
		missCounts <- missed
		return true
	})
	defer m.stop()

	select {
	case got := <-missCounts:
		assert.Equal(t, 2, got)
	case <-time.After(time.Second):
		t.Fatal("onMiss was never called")
	}
}

func TestHeartbeatMonitorWorkResetsCounter(t *testing.T) {
	var calls int32
	m := newHeartbeatMonitor(10*time.Millisecond, 2, 0, func(missed int) bool {
		atomic.AddInt32(&calls, 1)
		return true
	})
	defer m.stop()

	stop := time.After(120 * time.Millisecond)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ticker.C:
			m.work()
		}
	}
	assert.Zero(t, atomic.LoadInt32(&calls), "work() should have kept resetting the miss counter")
}

func TestHeartbeatMonitorStopsWhenHandlerReturnsFalse(t *testing.T) {
	done := make(chan struct{})
	m := newHeartbeatMonitor(5*time.Millisecond, 1, 0, func(missed int) bool {
		close(done)
		return false
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
	// Give the monitor goroutine a moment to observe the false return and
	// exit; stop() again must still be safe (idempotent).
	time.Sleep(20 * time.Millisecond)
	m.stop()
}

func TestHeartbeatMonitorCancelAfterStopsRegardlessOfHandler(t *testing.T) {
	var called int32
	m := newHeartbeatMonitor(5*time.Millisecond, 100, 30*time.Millisecond, func(missed int) bool {
		atomic.AddInt32(&called, 1)
		return true
	})
	defer m.stop()

	require.Eventually(t, func() bool {
		select {
		case <-m.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "monitor should self-cancel after cancelAfter elapses")
}

func TestHeartbeatMonitorDefaultMaxOut(t *testing.T) {
	missCounts := make(chan int, 1)
	m := newHeartbeatMonitor(10*time.Millisecond, 0, 0, func(missed int) bool {
		missCounts <- missed
		return true
	})
	defer m.stop()

	select {
	case got := <-missCounts:
		assert.Equal(t, defaultMaxOut, got)
	case <-time.After(time.Second):
		t.Fatal("onMiss was never called")
	}
}
