// Package observer provides change subscriptions with explicit release.
package observer

import "sync"

// Subscription is a handle returned by Subscribe. Close releases it; it is
// safe to call more than once.
type Subscription struct {
	once    sync.Once
	release func()
}

func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}

// Registry fans change notifications out to subscribers.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func()
}

func (r *Registry) Subscribe(fn func()) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs == nil {
		r.subs = make(map[uint64]func())
	}
	r.nextID++
	id := r.nextID
	r.subs[id] = fn

	return &Subscription{release: func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}}
}

// Notify calls every subscriber. Callers must not hold their own state lock.
func (r *Registry) Notify() {
	r.mu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
