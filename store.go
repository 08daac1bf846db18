package goAuthState

import "sync"

// Observer receives every published [Session].
type Observer func(Session)

type observerEntry struct {
	id uint64
	fn Observer
}

// Store holds the single current [Session] and fans every publish out to its
// observers.
//
// Observers are called synchronously, in registration order, on the
// goroutine that publishes. They run outside the store lock, so an observer
// may read the store or publish again. Publishes issued concurrently are not
// ordered with respect to each other: the last one to take the lock wins.
type Store struct {
	mu        sync.Mutex
	current   Session
	version   uint64
	nextID    uint64
	observers []observerEntry
}

// Snapshot is a captured Session value used to roll back a failed operation.
type Snapshot struct {
	session Session
	version uint64
}

// Session returns the captured value.
func (s Snapshot) Session() Session {
	return s.session
}

// Version returns the store version at capture time.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Subscription is the handle returned by [Store.Subscribe].
type Subscription struct {
	store *Store
	id    uint64
	once  sync.Once
}

// NewStore returns a store whose current session is Unauthenticated.
func NewStore() *Store {
	return &Store{current: UnauthenticatedSession(nil)}
}

// Current returns the current session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Version returns the number of publishes so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Publish replaces the current session and notifies observers.
func (s *Store) Publish(next Session) {
	s.mu.Lock()
	s.current = next
	s.version++
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(next)
	}
}

// Subscribe registers fn. It is not called with the current value; use
// [Store.Current] for that.
func (s *Store) Subscribe(fn Observer) *Subscription {
	if fn == nil {
		return &Subscription{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	return &Subscription{store: s, id: id}
}

// Unsubscribe removes the observer. Calling it more than once is a no-op.
func (sub *Subscription) Unsubscribe() {
	if sub == nil || sub.store == nil {
		return
	}
	sub.once.Do(func() {
		sub.store.remove(sub.id)
	})
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Snapshot captures the current session. Capture it before starting an
// operation that may need rolling back, not after.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{session: s.current, version: s.version}
}

// Restore publishes the captured session, replacing whatever was published
// since the snapshot was taken.
func (s *Store) Restore(snap Snapshot) {
	s.Publish(snap.session)
}
