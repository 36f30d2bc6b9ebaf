package events

import "sync"

// Listener receives notifications published on a Bus.
type Listener func(Notification)

// Bus fans notifications out to every subscribed listener. Listeners run
// synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu        sync.Mutex
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

// NewBus returns a Bus without listeners.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that unregisters it.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Notify implements Sink.
func (b *Bus) Notify(n Notification) {
	b.mu.Lock()
	listeners := make([]subscription, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, s := range listeners {
		s.fn(n)
	}
}

// Recorder is a Sink that keeps every notification, for tests and for
// replaying the change log to a late view.
type Recorder struct {
	mu            sync.Mutex
	Notifications []Notification
}

// Notify implements Sink.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, n)
}

// Of returns the recorded notifications of the given kind.
func (r *Recorder) Of(k Kind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Notification
	for _, n := range r.Notifications {
		if n.Kind == k {
			res = append(res, n)
		}
	}
	return res
}

// Count returns how many notifications of the given kind were recorded.
func (r *Recorder) Count(k Kind) int {
	return len(r.Of(k))
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = nil
}
