package cartstore

import (
	"testing"
	"time"
)

func newBurstFixture(t *testing.T) (*fakeClock, *Store, *BurstDetector) {
	t.Helper()
	clock := newFakeClock()
	store := New(Options{Now: clock.Now})
	det := NewBurstDetector(store, clock, 2*time.Second, 3, 1200*time.Millisecond)
	t.Cleanup(det.Stop)
	return clock, store, det
}

func TestBurstStartsAtThreshold(t *testing.T) {
	t.Parallel()

	clock, store, _ := newBurstFixture(t)

	store.Dispatch(AddItem{ProductID: 1, Quantity: 1})
	clock.Advance(200 * time.Millisecond)
	store.Dispatch(AddItem{ProductID: 2, Quantity: 1})
	if store.State().IsAddBurstActive {
		t.Fatal("burst started below threshold")
	}

	clock.Advance(200 * time.Millisecond)
	store.Dispatch(AddItem{ProductID: 3, Quantity: 1})
	if !store.State().IsAddBurstActive {
		t.Fatal("expected burst after 3 adds inside the window")
	}
}

func TestBurstEndsAfterQuietPeriod(t *testing.T) {
	t.Parallel()

	clock, store, _ := newBurstFixture(t)

	for i := int64(1); i <= 3; i++ {
		store.Dispatch(AddItem{ProductID: i, Quantity: 1})
	}
	if !store.State().IsAddBurstActive {
		t.Fatal("expected active burst")
	}

	clock.Advance(1100 * time.Millisecond)
	if !store.State().IsAddBurstActive {
		t.Fatal("burst ended before the quiet period elapsed")
	}

	clock.Advance(200 * time.Millisecond)
	if store.State().IsAddBurstActive {
		t.Fatal("expected burst to end after 1.2s without adds")
	}
}

func TestBurstWindowSlides(t *testing.T) {
	t.Parallel()

	clock, store, _ := newBurstFixture(t)

	store.Dispatch(AddItem{ProductID: 1, Quantity: 1})
	store.Dispatch(AddItem{ProductID: 2, Quantity: 1})
	clock.Advance(3 * time.Second)
	store.Dispatch(AddItem{ProductID: 3, Quantity: 1})

	if store.State().IsAddBurstActive {
		t.Fatal("stale adds outside the window must not count")
	}
}

func TestBurstQuietTimerResetsOnEachAdd(t *testing.T) {
	t.Parallel()

	clock, store, _ := newBurstFixture(t)

	for i := int64(1); i <= 3; i++ {
		store.Dispatch(AddItem{ProductID: i, Quantity: 1})
	}

	// Keep adding just inside the quiet window; the burst must persist.
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		store.Dispatch(AddItem{ProductID: 9, Quantity: 1})
		if !store.State().IsAddBurstActive {
			t.Fatal("burst ended while adds kept arriving")
		}
	}

	clock.Advance(1300 * time.Millisecond)
	if store.State().IsAddBurstActive {
		t.Fatal("burst should end once adds stop")
	}
}

func TestBurstEmitsSingleStartEvent(t *testing.T) {
	t.Parallel()

	clock, store, _ := newBurstFixture(t)
	started := 0
	store.OnEvent(EventAddBurstStarted, func(Event) { started++ })

	for i := int64(1); i <= 5; i++ {
		store.Dispatch(AddItem{ProductID: i, Quantity: 1})
		clock.Advance(100 * time.Millisecond)
	}

	if started != 1 {
		t.Fatalf("re-entering an active burst must not re-emit, got %d", started)
	}
}

func TestBurstStopCancelsQuietTimer(t *testing.T) {
	t.Parallel()

	clock, store, det := newBurstFixture(t)

	for i := int64(1); i <= 3; i++ {
		store.Dispatch(AddItem{ProductID: i, Quantity: 1})
	}
	det.Stop()

	clock.Advance(5 * time.Second)
	// The flag stays as-is; the point is no dispatch into a stopped host.
	if waits := clock.pendingWaits(); len(waits) != 0 {
		t.Fatalf("stopped detector left %d pending timers", len(waits))
	}
}
