package store

import "sync"

// EventKind names the part of the catalog that changed.
type EventKind int

const (
	DomainsChanged EventKind = iota
	EndpointsChanged
	RestApisChanged
	LoadingChanged
)

func (k EventKind) String() string {
	switch k {
	case DomainsChanged:
		return "domains"
	case EndpointsChanged:
		return "endpoints"
	case RestApisChanged:
		return "restapis"
	case LoadingChanged:
		return "loading"
	default:
		return "unknown"
	}
}

// Event tells subscribers which collection changed. Listeners read the new
// state through the store accessors.
type Event struct {
	Kind EventKind
}

type bus struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(Event)
}

func newBus() *bus {
	return &bus{listeners: make(map[int]func(Event))}
}

func (b *bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// emit is called without any store lock held.
func (b *bus) emit(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
