package watcher

import (
	"sync"
	"time"
)

// Trigger coalesces a burst of touches into a single signal, emitted
// once the burst has been quiet for the configured delay.
type Trigger struct {
	delay  time.Duration
	mu     sync.Mutex
	timer  *time.Timer
	output chan struct{}
	stopCh chan struct{}
}

// NewTrigger creates a trigger with the given settle delay.
func NewTrigger(delayMs int) *Trigger {
	return &Trigger{
		delay:  time.Duration(delayMs) * time.Millisecond,
		output: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// C returns the signal channel.
func (t *Trigger) C() <-chan struct{} {
	return t.output
}

// Touch records activity, postponing the signal until the burst settles.
func (t *Trigger) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.stopCh:
		return
	default:
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fire)
}

func (t *Trigger) fire() {
	select {
	case t.output <- struct{}{}:
	case <-t.stopCh:
	default:
		// A signal is already pending; one is enough.
	}
}

// Stop cancels any pending signal.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	close(t.stopCh)
	if t.timer != nil {
		t.timer.Stop()
	}
}
