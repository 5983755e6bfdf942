package cartsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/frutaseca/cart-backend/internal/cartpersist"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/pkg/config"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*testTimer
}

type testTimer struct {
	clock   *testClock
	when    time.Time
	fn      func()
	stopped bool
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) AfterFunc(d time.Duration, fn func()) cartstore.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &testTimer{clock: c, when: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.when.After(c.now) {
			t.stopped = true
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

func (t *testTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped
	t.stopped = true
	return active
}

func (t *testTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped
	t.stopped = false
	t.when = t.clock.now.Add(d)
	return active
}

type recordingSink struct {
	mu     sync.Mutex
	events []cartstore.Event
}

func (s *recordingSink) Forward(_ context.Context, _ string, evt cartstore.Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testCartConfig() config.CartConfig {
	return config.CartConfig{
		MaxQuantityPerItem: 99,
		SaveDebounce:       500 * time.Millisecond,
		SnapshotTTL:        time.Hour,
		// Long idle window so idle timers never fire mid-test.
		IdleMinWait:    time.Hour,
		IdleMaxWait:    2 * time.Hour,
		BurstWindow:    2 * time.Second,
		BurstThreshold: 3,
		BurstQuiet:     1200 * time.Millisecond,
	}
}

type fixture struct {
	manager *Manager
	storage *cartpersist.MemoryStorage
	clock   *testClock
	sink    *recordingSink
}

func newFixture(t *testing.T, mutate func(*config.CartConfig)) *fixture {
	t.Helper()
	cfg := testCartConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	storage := cartpersist.NewMemoryStorage()
	clock := newTestClock()
	sink := &recordingSink{}
	manager, err := NewManager(ManagerParams{
		Storage: storage,
		Config:  cfg,
		Clock:   clock,
		Rand:    func() float64 { return 0 },
		Sink:    sink,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Shutdown() })
	return &fixture{manager: manager, storage: storage, clock: clock, sink: sink}
}

func TestManagerCreateOpensEmptySession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	sess, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.Store.State().Items)
	assert.Equal(t, 1, f.manager.Count())

	again, err := f.manager.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, again)
}

func TestManagerGetUnknownSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.manager.Get(context.Background(), "nope")
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestManagerResurrectsFromSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	snap := cartpersist.FromState(cartstore.State{
		Items: map[int64]cartstore.CartItem{
			3: {ID: 3, Quantity: 2, AddedAt: f.clock.Now()},
		},
		UI: cartstore.UIPrefs{ReducedMotion: true},
	})
	data, err := snap.Encode()
	require.NoError(t, err)
	f.storage.SeedSnapshot("sess-1", data)

	sess, err := f.manager.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	st := sess.Store.State()
	assert.Equal(t, 2, st.Items[3].Quantity)
	assert.True(t, st.UI.ReducedMotion)

	// Hydration alone must not write the state straight back.
	f.clock.Advance(time.Second)
	assert.Equal(t, 0, f.storage.SaveCalls)
}

func TestManagerResurrectsFromLegacy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.storage.SeedLegacy("sess-2", []byte(`[{"id":7,"quantity":1},{"id":7,"quantity":2}]`))

	sess, err := f.manager.Get(context.Background(), "sess-2")
	require.NoError(t, err)
	st := sess.Store.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, 3, st.Items[7].Quantity)
}

func TestManagerMalformedSnapshotStartsEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	f.storage.SeedSnapshot("sess-3", []byte("{corrupt"))

	sess, err := f.manager.Get(context.Background(), "sess-3")
	require.NoError(t, err)
	assert.Empty(t, sess.Store.State().Items)
}

func TestManagerDispatchTriggersDebouncedSave(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	sess, err := f.manager.Create(context.Background())
	require.NoError(t, err)

	sess.Store.Dispatch(cartstore.AddItem{ProductID: 9, Quantity: 2})
	assert.Equal(t, 0, f.storage.SaveCalls)

	f.clock.Advance(500 * time.Millisecond)
	require.Equal(t, 1, f.storage.SaveCalls)

	snap, err := cartpersist.DecodeSnapshot(f.storage.Snapshot(sess.ID))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(9), snap.Items[0].ID)

	// The sink sees the addToCart event.
	assert.Equal(t, 1, f.sink.count())
}

func TestManagerReapsIdleSessions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *config.CartConfig) {
		cfg.SessionTTL = 30 * time.Minute
		cfg.ReapInterval = time.Minute
		// Idle window beyond the reap horizon keeps the test focused.
		cfg.IdleMinWait = 10 * time.Hour
		cfg.IdleMaxWait = 20 * time.Hour
	})

	stale, err := f.manager.Create(context.Background())
	require.NoError(t, err)

	// Stay under the TTL while the fresh session keeps interacting.
	f.clock.Advance(20 * time.Minute)
	fresh, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	f.clock.Advance(11 * time.Minute)

	assert.Equal(t, 1, f.manager.Count())
	_, err = f.manager.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	_, err = f.manager.Get(context.Background(), stale.ID)
	require.Error(t, err)
}

func TestManagerReapedSessionComesBackFromSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(cfg *config.CartConfig) {
		cfg.SessionTTL = 30 * time.Minute
		cfg.ReapInterval = time.Minute
		cfg.IdleMinWait = 10 * time.Hour
		cfg.IdleMaxWait = 20 * time.Hour
	})

	sess, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	sess.Store.Dispatch(cartstore.AddItem{ProductID: 4, Quantity: 1})
	f.clock.Advance(time.Second) // flush the save

	f.clock.Advance(31 * time.Minute)
	require.Equal(t, 0, f.manager.Count())

	revived, err := f.manager.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, revived.Store.State().Items[4].Quantity)
}

func TestManagerRehydrateFromLegacy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	sess, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	sess.Store.Dispatch(cartstore.AddItem{ProductID: 1, Quantity: 1})

	f.storage.SeedLegacy(sess.ID, []byte(`[{"id":2,"quantity":4}]`))
	require.NoError(t, f.manager.RehydrateFromLegacy(context.Background(), sess.ID))

	st := sess.Store.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, 4, st.Items[2].Quantity)

	// Sessions not in memory are skipped silently.
	require.NoError(t, f.manager.RehydrateFromLegacy(context.Background(), "absent"))
}

func TestManagerDeleteCancelsPendingSave(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	sess, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	sess.Store.Dispatch(cartstore.AddItem{ProductID: 1, Quantity: 1})

	require.NoError(t, f.manager.Delete(context.Background(), sess.ID))
	f.clock.Advance(time.Minute)

	assert.Equal(t, 0, f.storage.SaveCalls)
	assert.Equal(t, 0, f.manager.Count())

	err = f.manager.Delete(context.Background(), sess.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestManagerShutdownClosesEverything(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	_, err := f.manager.Create(context.Background())
	require.NoError(t, err)
	_, err = f.manager.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.manager.Shutdown())
	assert.Equal(t, 0, f.manager.Count())

	_, err = f.manager.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}
