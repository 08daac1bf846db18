package local

import (
	"sync"

	"github.com/MrEthical07/goAuthState/identity"
)

type listenerEntry struct {
	fn      identity.AuthStateListener
	removed bool
}

// authEvent carries the listeners registered when it was queued. A listener
// added later starts from its own initial event instead.
type authEvent struct {
	targets []*listenerEntry
	user    *identity.User
}

// eventQueue delivers auth-state events on a single goroutine, in the order
// they were queued. The queue is unbounded so a listener may call back into
// the client and queue further events without deadlocking.
type eventQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	pending   []authEvent
	listeners []*listenerEntry
	busy      bool
	closed    bool
	done      chan struct{}
}

func newEventQueue() *eventQueue {
	q := &eventQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// add registers fn and queues its initial delivery of user.
func (q *eventQueue) add(fn identity.AuthStateListener, user *identity.User) func() {
	entry := &listenerEntry{fn: fn}

	q.mu.Lock()
	q.listeners = append(q.listeners, entry)
	q.push(authEvent{targets: []*listenerEntry{entry}, user: user})
	q.mu.Unlock()

	return func() { q.remove(entry) }
}

func (q *eventQueue) remove(entry *listenerEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.removed {
		return
	}
	entry.removed = true
	for i, l := range q.listeners {
		if l == entry {
			q.listeners = append(q.listeners[:i:i], q.listeners[i+1:]...)
			break
		}
	}
}

func (q *eventQueue) broadcast(user *identity.User) {
	q.mu.Lock()
	if len(q.listeners) > 0 {
		targets := make([]*listenerEntry, len(q.listeners))
		copy(targets, q.listeners)
		q.push(authEvent{targets: targets, user: user})
	}
	q.mu.Unlock()
}

// push must be called with mu held.
func (q *eventQueue) push(ev authEvent) {
	if q.closed {
		return
	}
	q.pending = append(q.pending, ev)
	q.cond.Broadcast()
}

func (q *eventQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.listeners)
}

func (q *eventQueue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.busy = false
			q.cond.Broadcast()
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.busy = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}

		ev := q.pending[0]
		q.pending[0] = authEvent{}
		q.pending = q.pending[1:]
		q.busy = true
		q.mu.Unlock()

		for _, l := range ev.targets {
			q.mu.Lock()
			skip := l.removed
			q.mu.Unlock()
			if skip {
				continue
			}
			l.fn(cloneUser(ev.user))
		}
	}
}

// flush blocks until every queued event, including events queued by
// listeners while flushing, has been delivered. It must not be called from a
// listener.
func (q *eventQueue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for (len(q.pending) > 0 || q.busy) && !q.closed {
		q.cond.Wait()
	}
}

// close delivers what is already queued, then stops the goroutine.
func (q *eventQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}

func cloneUser(u *identity.User) *identity.User {
	if u == nil {
		return nil
	}
	c := u.Clone()
	return &c
}
