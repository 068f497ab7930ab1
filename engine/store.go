package engine

import "sync"

// Listener receives a private copy of the state after every committed mutation.
type Listener func(GameState)

type subscription struct {
	id uint64
	fn Listener
}

// Store is the single source of truth for a match. Reads return deep
// copies. Mutations run against a clone and are committed atomically, then
// every listener is notified in subscription order with the committed state.
type Store struct {
	mu    sync.RWMutex
	state GameState

	subMu  sync.Mutex
	subs   []subscription
	nextID uint64

	// notifyMu keeps deliveries in commit order.
	notifyMu sync.Mutex
}

// NewStore returns a store holding initial.
func NewStore(initial GameState) *Store {
	return &Store{state: initial.Clone()}
}

// GetGameState returns a deep copy of the current state.
func (s *Store) GetGameState() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers fn and returns a function that removes it.
// Listeners run synchronously after a commit and must not call Update.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Update applies fn to a clone of the state. The clone replaces the state
// only if fn returns nil; otherwise the state is untouched and fn's error is
// returned. Once the game has ended the state is frozen.
func (s *Store) Update(fn func(*GameState) error) error {
	s.mu.Lock()
	if s.state.Phase == PhaseEnd {
		s.mu.Unlock()
		return reject(ErrCodeWrongPhase, "game has ended")
	}
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	committed := next.Clone()

	// Take notifyMu before releasing mu so deliveries can't reorder.
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	s.deliver(committed)
	return nil
}

// Replace swaps in a whole state, bypassing the phase freeze. Used when
// restoring a persisted match.
func (s *Store) Replace(state GameState) {
	s.mu.Lock()
	s.state = state.Clone()
	committed := s.state.Clone()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	s.deliver(committed)
}

// deliver hands committed to every listener. Caller holds notifyMu.
func (s *Store) deliver(committed GameState) {
	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(committed.Clone())
	}
}
