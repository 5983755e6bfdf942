package cartstore

import (
	"sync"
	"time"

	"github.com/frutaseca/cart-backend/pkg/metrics"
)

// DefaultMaxQuantityPerItem bounds a single line's quantity so double
// submits and scripted adds cannot grow it without limit.
const DefaultMaxQuantityPerItem = 99

// Options configures a Store.
type Options struct {
	MaxQuantityPerItem int
	Now                func() time.Time
	Metrics            *metrics.CartMetrics
}

// Store is the single owner of cart truth for one session. Dispatches are
// serialized: a dispatch issued from inside a subscriber or event listener
// is queued and applied after the current notification pass completes, and
// subscribers for a given dispatch always run after its state mutation and
// before the next queued action.
type Store struct {
	mu       sync.Mutex
	opts     Options
	state    State
	queue    []Action
	draining bool

	subs      []subscriber
	listeners []eventListener
	nextID    int
}

type subscriber struct {
	id int
	fn func()
}

type eventListener struct {
	id  int
	typ EventType
	any bool
	fn  func(Event)
}

// New constructs an empty store.
func New(opts Options) *Store {
	if opts.MaxQuantityPerItem <= 0 {
		opts.MaxQuantityPerItem = DefaultMaxQuantityPerItem
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		opts:  opts,
		state: newState(),
	}
}

// Dispatch submits an action for synchronous processing. Subscribers and
// event listeners run on the calling goroutine before Dispatch returns,
// unless another goroutine is already draining the queue, in which case
// that goroutine picks the action up.
func (s *Store) Dispatch(action Action) {
	if action == nil {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, action)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		changed, events := s.apply(next)
		subs := append([]subscriber(nil), s.subs...)
		listeners := append([]eventListener(nil), s.listeners...)
		s.mu.Unlock()

		s.opts.Metrics.IncDispatch(next.Kind())
		if changed {
			for _, sub := range subs {
				sub.fn()
			}
		}
		for _, evt := range events {
			s.deliver(evt, listeners)
		}

		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

// Emit publishes a UI-origin event (cartToggled, hoverIntent,
// checkoutIntent) that has no backing action and touches no state.
func (s *Store) Emit(typ EventType, payload any) {
	evt := Event{Type: typ, Timestamp: s.opts.Now(), Payload: payload}
	s.mu.Lock()
	listeners := append([]eventListener(nil), s.listeners...)
	s.mu.Unlock()
	s.deliver(evt, listeners)
}

func (s *Store) deliver(evt Event, listeners []eventListener) {
	s.opts.Metrics.IncEvent(string(evt.Type))
	for _, l := range listeners {
		if l.any || l.typ == evt.Type {
			l.fn(evt)
		}
	}
}

// Subscribe registers a state-change listener. Listeners are notified in
// subscription order after every committed state change and must re-read
// state via State(). The returned function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(append([]subscriber(nil), s.subs[:i]...), s.subs[i+1:]...)
				return
			}
		}
	}
}

// OnEvent registers a listener for a single domain event type.
func (s *Store) OnEvent(typ EventType, fn func(Event)) func() {
	return s.addListener(eventListener{typ: typ, fn: fn})
}

// OnAnyEvent registers a listener for every domain event.
func (s *Store) OnAnyEvent(fn func(Event)) func() {
	return s.addListener(eventListener{any: true, fn: fn})
}

func (s *Store) addListener(l eventListener) func() {
	s.mu.Lock()
	l.id = s.nextID
	s.nextID++
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.listeners {
			if existing.id == l.id {
				s.listeners = append(append([]eventListener(nil), s.listeners[:i]...), s.listeners[i+1:]...)
				return
			}
		}
	}
}

// State returns a defensive copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
