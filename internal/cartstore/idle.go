package cartstore

import (
	"math/rand"
	"sync"
	"time"
)

// IdleDetector flips the store's idle flag after a quiet period with no
// interactions. The wait is re-rolled uniformly within [minWait, maxWait]
// on every interaction so the idle threshold cannot be fingerprinted.
type IdleDetector struct {
	store   *Store
	clock   Clock
	rand    func() float64
	minWait time.Duration
	maxWait time.Duration

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// NewIdleDetector wires an idle detector to the store. randFn must return
// values in [0, 1); pass nil for a seeded default.
func NewIdleDetector(store *Store, clock Clock, randFn func() float64, minWait, maxWait time.Duration) *IdleDetector {
	if clock == nil {
		clock = RealClock()
	}
	if randFn == nil {
		src := rand.New(rand.NewSource(time.Now().UnixNano()))
		randFn = src.Float64
	}
	if minWait <= 0 {
		minWait = 15 * time.Second
	}
	if maxWait < minWait {
		maxWait = minWait
	}
	return &IdleDetector{
		store:   store,
		clock:   clock,
		rand:    randFn,
		minWait: minWait,
		maxWait: maxWait,
	}
}

// Start schedules the first idle timer.
func (d *IdleDetector) Start() {
	d.reschedule()
}

// Interaction records user activity: the idle flag is cleared and the
// timer re-rolled.
func (d *IdleDetector) Interaction() {
	d.store.Dispatch(SetIdle{Idle: false})
	d.reschedule()
}

// Stop cancels the pending timer. The detector dispatches nothing after
// Stop returns.
func (d *IdleDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *IdleDetector) reschedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	wait := d.wait()
	if d.timer != nil {
		d.timer.Stop()
		d.timer.Reset(wait)
		return
	}
	d.timer = d.clock.AfterFunc(wait, d.fire)
}

func (d *IdleDetector) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.store.Dispatch(SetIdle{Idle: true})
}

func (d *IdleDetector) wait() time.Duration {
	spread := d.maxWait - d.minWait
	if spread <= 0 {
		return d.minWait
	}
	return d.minWait + time.Duration(d.rand()*float64(spread))
}
