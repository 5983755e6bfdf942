package cartpersist

import (
	"context"
	"sync"
	"time"

	"github.com/frutaseca/cart-backend/internal/cartstore"
	"github.com/frutaseca/cart-backend/pkg/logger"
	"github.com/frutaseca/cart-backend/pkg/metrics"
)

const saveTimeout = 5 * time.Second

// Saver coalesces rapid state changes into one debounced snapshot write.
// Scheduling a save always supersedes an unfired one; a write already in
// flight is left to complete. After Close nothing is written.
type Saver struct {
	storage   Storage
	sessionID string
	debounce  time.Duration
	clock     cartstore.Clock
	logg      *logger.Logger
	metrics   *metrics.CartMetrics

	mu      sync.Mutex
	timer   cartstore.Timer
	pending *cartstore.State
	closed  bool
}

// NewSaver builds a debounced saver for one session.
func NewSaver(storage Storage, sessionID string, debounce time.Duration, clock cartstore.Clock, logg *logger.Logger, m *metrics.CartMetrics) *Saver {
	if clock == nil {
		clock = cartstore.RealClock()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Saver{
		storage:   storage,
		sessionID: sessionID,
		debounce:  debounce,
		clock:     clock,
		logg:      logg,
		metrics:   m,
	}
}

// Schedule records the latest state and (re)starts the debounce window.
func (s *Saver) Schedule(st cartstore.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = &st
	if s.timer != nil {
		s.timer.Stop()
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = s.clock.AfterFunc(s.debounce, s.flush)
}

// Close cancels any pending write. It does not flush: a torn-down session
// must not touch storage afterwards.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Saver) flush() {
	s.mu.Lock()
	if s.closed || s.pending == nil {
		s.mu.Unlock()
		return
	}
	st := *s.pending
	s.pending = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	data, err := FromState(st).Encode()
	if err == nil {
		err = s.storage.SaveSnapshot(ctx, s.sessionID, data)
	}
	if err != nil {
		// Storage failures degrade to an in-memory cart; never surfaced.
		s.metrics.IncSaveFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithSessionID(ctx, s.sessionID), "cart snapshot save failed", err)
		}
		return
	}
	s.metrics.IncSave()
}
