package cache

import (
	"sync"
	"time"
)

// Invalidation event types delivered to listeners.
const (
	EventPatternInvalidation = "pattern_invalidation"
	EventSourceInvalidation  = "source_invalidation"
)

// InvalidationEvent describes one invalidation: which logical keys were
// removed and why.
type InvalidationEvent struct {
	Type      string
	Keys      []string
	Reason    string
	Timestamp time.Time
}

// ListenerFunc receives invalidation events. Listeners are invoked
// synchronously after the matching keys have been deleted; they must not
// block for long.
type ListenerFunc func(InvalidationEvent)

// listenerRegistry is a small event-type -> listener map with handle-based
// removal.
type listenerRegistry struct {
	mu     sync.Mutex
	nextID int
	byType map[string]map[int]ListenerFunc
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{byType: make(map[string]map[int]ListenerFunc)}
}

func (r *listenerRegistry) add(eventType string, fn ListenerFunc) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	if r.byType[eventType] == nil {
		r.byType[eventType] = make(map[int]ListenerFunc)
	}
	r.byType[eventType][r.nextID] = fn
	return r.nextID
}

func (r *listenerRegistry) remove(eventType string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if listeners, ok := r.byType[eventType]; ok {
		delete(listeners, id)
	}
}

func (r *listenerRegistry) emit(ev InvalidationEvent) {
	r.mu.Lock()
	listeners := make([]ListenerFunc, 0, len(r.byType[ev.Type]))
	for _, fn := range r.byType[ev.Type] {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
