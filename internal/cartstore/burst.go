package cartstore

import (
	"sync"
	"time"
)

// BurstDetector watches the addToCart event stream for clusters of rapid
// adds. When the count inside the sliding window reaches the threshold it
// dispatches StartAddBurst; a quiet timer ends the burst once adds stop.
// Distinct from the idle timer: this is a debounce with a count threshold,
// not a pure debounce.
type BurstDetector struct {
	store     *Store
	clock     Clock
	window    time.Duration
	threshold int
	quiet     time.Duration

	mu         sync.Mutex
	adds       []time.Time
	quietTimer Timer
	stopped    bool
	unsub      func()
}

// NewBurstDetector subscribes to the store's addToCart events. Zero values
// fall back to the spec'd defaults (2s window, threshold 3, 1.2s quiet).
func NewBurstDetector(store *Store, clock Clock, window time.Duration, threshold int, quiet time.Duration) *BurstDetector {
	if clock == nil {
		clock = RealClock()
	}
	if window <= 0 {
		window = 2 * time.Second
	}
	if threshold < 1 {
		threshold = 3
	}
	if quiet <= 0 {
		quiet = 1200 * time.Millisecond
	}
	d := &BurstDetector{
		store:     store,
		clock:     clock,
		window:    window,
		threshold: threshold,
		quiet:     quiet,
	}
	d.unsub = store.OnEvent(EventAddToCart, d.onAdd)
	return d
}

// Stop unsubscribes and cancels the quiet timer.
func (d *BurstDetector) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
	unsub := d.unsub
	d.unsub = nil
	d.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (d *BurstDetector) onAdd(Event) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	now := d.clock.Now()
	cutoff := now.Add(-d.window)
	kept := d.adds[:0]
	for _, t := range d.adds {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	d.adds = append(kept, now)
	crossed := len(d.adds) >= d.threshold

	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer.Reset(d.quiet)
	} else {
		d.quietTimer = d.clock.AfterFunc(d.quiet, d.onQuiet)
	}
	d.mu.Unlock()

	if crossed {
		d.store.Dispatch(StartAddBurst{})
	}
}

func (d *BurstDetector) onQuiet() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.adds = d.adds[:0]
	d.mu.Unlock()
	d.store.Dispatch(EndAddBurst{})
}
