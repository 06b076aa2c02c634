// Package registry holds menu callbacks keyed by menu item id.
//
// An invocation takes the callback out of its slot and hands it back
// afterwards. Every Put starts a new generation for the slot, so a callback
// that was replaced or removed while it ran is not written back.
package registry

import "sync"

type slot[V any] struct {
	value V
	held  bool
	gen   uint64
}

// Registry is safe for concurrent use.
type Registry[V any] struct {
	mu    sync.Mutex
	slots map[uint32]*slot[V]
	gen   uint64
}

// New returns an empty registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{slots: make(map[uint32]*slot[V])}
}

// Put stores v under id, replacing any previous value.
func (r *Registry[V]) Put(id uint32, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.slots[id] = &slot[V]{value: v, held: true, gen: r.gen}
}

// Take removes the value stored under id for the duration of an invocation.
// It returns false when id is unknown or its value is already taken.
func (r *Registry[V]) Take(id uint32) (v V, gen uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, found := r.slots[id]
	if !found || !s.held {
		return v, 0, false
	}
	v = s.value
	var zero V
	s.value = zero
	s.held = false
	return v, s.gen, true
}

// Restore puts back a value obtained from Take. It is dropped if the slot
// was removed or replaced in the meantime.
func (r *Registry[V]) Restore(id uint32, gen uint64, v V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, found := r.slots[id]
	if !found || s.gen != gen || s.held {
		return false
	}
	s.value = v
	s.held = true
	return true
}

// Remove deletes id. It reports whether the id was known.
func (r *Registry[V]) Remove(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, found := r.slots[id]
	delete(r.slots, id)
	return found
}

// Len returns the number of known ids.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Clear forgets every id. In-flight values are not restored afterwards.
func (r *Registry[V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = make(map[uint32]*slot[V])
}
