package auth

import "sync"

// Broadcaster is an in-process StateSource. New listeners receive the current
// state immediately, then every published change.
type Broadcaster struct {
	mu        sync.Mutex
	state     State
	nextID    int
	listeners map[int]func(State)
}

func NewBroadcaster(initial State) *Broadcaster {
	return &Broadcaster{
		state:     initial,
		listeners: make(map[int]func(State)),
	}
}

func (b *Broadcaster) OnAuthStateChanged(listener func(State)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	current := b.state
	b.mu.Unlock()

	listener(current)

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish records the new state and notifies listeners outside the lock.
func (b *Broadcaster) Publish(state State) {
	b.mu.Lock()
	b.state = state
	listeners := make([]func(State), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (b *Broadcaster) SignIn(u *User) {
	b.Publish(State{User: u})
}

func (b *Broadcaster) SignOut() {
	b.Publish(State{})
}

func (b *Broadcaster) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
