package jetstream

import (
	"sync"
	"time"
)

// defaultMaxOut is how many consecutive missed ticks trigger the miss
// handler.
const defaultMaxOut = 2

// heartbeatMonitor is a periodic liveness detector. Exactly one exists per
// subscription at a time; callers must cancel the previous one before
// installing a new one.
type heartbeatMonitor struct {
	mu       sync.Mutex
	timer    *time.Ticker
	done     chan struct{}
	missed   int
	maxOut   int
	onMiss   func(missed int) bool
	stopOnce sync.Once
}

// newHeartbeatMonitor starts a ticker at the given interval. onMiss is
// invoked once per tick once missed ticks reach maxOut (default
// defaultMaxOut if <= 0); returning false stops the monitor. If cancelAfter
// > 0 the monitor stops on its own after that duration regardless of
// onMiss's answer.
func newHeartbeatMonitor(interval time.Duration, maxOut int, cancelAfter time.Duration, onMiss func(missed int) bool) *heartbeatMonitor {
	if maxOut <= 0 {
		maxOut = defaultMaxOut
	}
	m := &heartbeatMonitor{
		timer:  time.NewTicker(interval),
		done:   make(chan struct{}),
		maxOut: maxOut,
		onMiss: onMiss,
	}
	go m.run(cancelAfter)
	return m
}

func (m *heartbeatMonitor) run(cancelAfter time.Duration) {
	var cancelC <-chan time.Time
	if cancelAfter > 0 {
		t := time.NewTimer(cancelAfter)
		defer t.Stop()
		cancelC = t.C
	}
	for {
		select {
		case <-m.done:
			return
		case <-cancelC:
			m.stop()
			return
		case <-m.timer.C:
			m.mu.Lock()
			m.missed++
			missed := m.missed
			maxOut := m.maxOut
			m.mu.Unlock()
			if missed >= maxOut {
				if m.onMiss == nil || !m.onMiss(missed) {
					m.stop()
					return
				}
			}
		}
	}
}

// work resets the missed-tick counter; called whenever the subscription
// observes any liveness signal (a heartbeat frame or ordinary message).
func (m *heartbeatMonitor) work() {
	m.mu.Lock()
	m.missed = 0
	m.mu.Unlock()
}

// change resets the tick interval without losing the missed-tick counter.
// A cancelAfter > 0 adds a further deadline after which the monitor stops;
// a cancel-after deadline given to newHeartbeatMonitor is not replaced and
// still stops the monitor when it elapses.
func (m *heartbeatMonitor) change(interval, cancelAfter time.Duration) {
	m.mu.Lock()
	m.timer.Reset(interval)
	m.mu.Unlock()
	if cancelAfter > 0 {
		go func() {
			t := time.NewTimer(cancelAfter)
			defer t.Stop()
			select {
			case <-t.C:
				m.stop()
			case <-m.done:
			}
		}()
	}
}

func (m *heartbeatMonitor) stop() {
	m.stopOnce.Do(func() {
		m.timer.Stop()
		close(m.done)
	})
}
