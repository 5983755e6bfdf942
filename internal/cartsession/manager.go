package cartsession

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/frutaseca/cart-backend/internal/cartpersist"
	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/pkg/config"
	pkgerrors "github.com/frutaseca/cart-backend/pkg/errors"
	"github.com/frutaseca/cart-backend/pkg/logger"
	"github.com/frutaseca/cart-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// EventSink receives every domain event a hosted store emits, tagged with
// its session. Used for analytics forwarding.
type EventSink interface {
	Forward(ctx context.Context, sessionID string, evt cartstore.Event)
}

// Session bundles one store with its detectors and debounced saver. One
// session per storefront visitor; lifecycle is owned by the Manager.
type Session struct {
	ID    string
	Store *cartstore.Store

	idle   *cartstore.IdleDetector
	burst  *cartstore.BurstDetector
	saver  *cartpersist.Saver
	unsubs []func()

	mu       sync.Mutex
	lastSeen time.Time
}

// Interaction reports user activity to the idle detector.
func (s *Session) Interaction() {
	s.idle.Interaction()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) teardown() {
	s.idle.Stop()
	s.burst.Stop()
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.saver.Close()
}

// ManagerParams wires a Manager's collaborators.
type ManagerParams struct {
	Storage cartpersist.Storage
	Config  config.CartConfig
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
	Clock   cartstore.Clock
	Rand    func() float64
	Sink    EventSink
}

// Manager owns all live cart sessions: creation, hydration from
// persisted or legacy state, idle reaping, and teardown.
type Manager struct {
	storage cartpersist.Storage
	cfg     config.CartConfig
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	clock   cartstore.Clock
	rand    func() float64
	sink    EventSink

	mu        sync.Mutex
	sessions  map[string]*Session
	closed    bool
	reapTimer cartstore.Timer
}

// NewManager validates params and starts the session reaper.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = cartstore.RealClock()
	}
	randFn := params.Rand
	if randFn == nil {
		src := rand.New(rand.NewSource(time.Now().UnixNano()))
		randFn = src.Float64
	}
	m := &Manager{
		storage:  params.Storage,
		cfg:      params.Config,
		logg:     params.Logger,
		metrics:  params.Metrics,
		clock:    clock,
		rand:     randFn,
		sink:     params.Sink,
		sessions: map[string]*Session{},
	}
	if m.cfg.ReapInterval > 0 && m.cfg.SessionTTL > 0 {
		m.reapTimer = clock.AfterFunc(m.cfg.ReapInterval, m.reap)
	}
	return m, nil
}

// Create opens a fresh empty session under a new id.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.install(ctx, uuid.NewString(), cartstore.HydrateState{})
}

// Get returns the live session, resurrecting it from persisted or legacy
// state if it was reaped. Unknown ids with no persisted trace yield a
// not-found error.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		sess.touch(m.clock.Now())
		return sess, nil
	}
	m.mu.Unlock()

	hydrate, found, err := m.loadHydrate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart session not found")
	}
	return m.install(ctx, sessionID, hydrate)
}

// Delete tears a session down. Pending debounced writes are cancelled;
// nothing touches storage afterwards.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart session not found")
	}
	sess.teardown()
	m.metrics.SessionClosed()
	if m.logg != nil {
		m.logg.Info(m.logg.WithSessionID(ctx, sessionID), "cart session closed")
	}
	return nil
}

// RehydrateFromLegacy re-reads the legacy key and replaces the session's
// state. Fired by the legacy bridge; sessions not in memory are a no-op.
func (m *Manager) RehydrateFromLegacy(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	data, err := m.storage.LoadLegacy(ctx, sessionID)
	if err != nil || data == nil {
		return err
	}
	legacy, err := cartpersist.DecodeLegacy(data)
	if err != nil {
		// Malformed legacy payloads are dropped, not propagated.
		if m.logg != nil {
			m.logg.Warn(m.logg.WithSessionID(ctx, sessionID), "ignoring malformed legacy cart payload")
		}
		return nil
	}
	sess.Store.Dispatch(cartpersist.LegacyHydrateAction(legacy, m.clock.Now()))
	return nil
}

// Shutdown stops the reaper and tears down every live session.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	if m.reapTimer != nil {
		m.reapTimer.Stop()
		m.reapTimer = nil
	}
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var err error
	for _, sess := range sessions {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					err = multierr.Append(err, fmt.Errorf("teardown session %s: panic: %v", sess.ID, rec))
				}
			}()
			sess.teardown()
			m.metrics.SessionClosed()
		}()
	}
	return err
}

// Count reports live sessions (used by health/ready checks and tests).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) install(ctx context.Context, sessionID string, hydrate cartstore.HydrateState) (*Session, error) {
	store := cartstore.New(cartstore.Options{
		MaxQuantityPerItem: m.cfg.MaxQuantityPerItem,
		Now:                m.clock.Now,
		Metrics:            m.metrics,
	})
	// Hydrate before the saver subscription exists: loading persisted
	// state must not immediately write it back.
	store.Dispatch(hydrate)

	sess := &Session{
		ID:    sessionID,
		Store: store,
		saver: cartpersist.NewSaver(m.storage, sessionID, m.cfg.SaveDebounce, m.clock, m.logg, m.metrics),
	}
	sess.touch(m.clock.Now())

	sess.unsubs = append(sess.unsubs, store.Subscribe(func() {
		sess.saver.Schedule(store.State())
	}))
	if m.sink != nil {
		sess.unsubs = append(sess.unsubs, store.OnAnyEvent(func(evt cartstore.Event) {
			m.sink.Forward(context.Background(), sessionID, evt)
		}))
	}

	sess.idle = cartstore.NewIdleDetector(store, m.clock, m.rand, m.cfg.IdleMinWait, m.cfg.IdleMaxWait)
	sess.burst = cartstore.NewBurstDetector(store, m.clock, m.cfg.BurstWindow, m.cfg.BurstThreshold, m.cfg.BurstQuiet)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sess.teardown()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session manager is shut down")
	}
	if existing, ok := m.sessions[sessionID]; ok {
		// Lost a resurrection race; keep the first one.
		m.mu.Unlock()
		sess.teardown()
		existing.touch(m.clock.Now())
		return existing, nil
	}
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	sess.idle.Start()
	m.metrics.SessionOpened()
	if m.logg != nil {
		m.logg.Info(m.logg.WithSessionID(ctx, sessionID), "cart session opened")
	}
	return sess, nil
}

// loadHydrate builds the startup hydration action: current snapshot
// first, then the legacy array, then nothing. Malformed snapshots count
// as present but hydrate an empty cart.
func (m *Manager) loadHydrate(ctx context.Context, sessionID string) (cartstore.HydrateState, bool, error) {
	data, err := m.storage.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return cartstore.HydrateState{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart snapshot")
	}
	if data != nil {
		snap, decodeErr := cartpersist.DecodeSnapshot(data)
		if decodeErr != nil {
			if m.logg != nil {
				m.logg.Warn(m.logg.WithSessionID(ctx, sessionID), "malformed cart snapshot, starting empty")
			}
			return cartstore.HydrateState{}, true, nil
		}
		return snap.HydrateAction(), true, nil
	}

	legacyData, err := m.storage.LoadLegacy(ctx, sessionID)
	if err != nil {
		return cartstore.HydrateState{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading legacy cart")
	}
	if legacyData == nil {
		return cartstore.HydrateState{}, false, nil
	}
	legacy, decodeErr := cartpersist.DecodeLegacy(legacyData)
	if decodeErr != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithSessionID(ctx, sessionID), "malformed legacy cart, starting empty")
		}
		return cartstore.HydrateState{}, true, nil
	}
	return cartpersist.LegacyHydrateAction(legacy, m.clock.Now()), true, nil
}

func (m *Manager) reap() {
	now := m.clock.Now()
	cutoff := now.Add(-m.cfg.SessionTTL)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.seen().Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	if m.reapTimer != nil {
		m.reapTimer.Stop()
		m.reapTimer.Reset(m.cfg.ReapInterval)
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.teardown()
		m.metrics.SessionClosed()
		if m.logg != nil {
			m.logg.Info(m.logg.WithSessionID(context.Background(), sess.ID), "idle cart session reaped")
		}
	}
}
