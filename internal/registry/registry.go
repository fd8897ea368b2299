// Package registry tracks active chat sessions by id so they can be
// cancelled from outside the streaming loop.
package registry

import "sync"

// Registry maps session ids to cancellation handles. It is constructed once
// at process start and injected wherever cancellation is needed; sessions do
// not share any other mutable state through it.
type Registry struct {
	mu      sync.Mutex
	handles map[string]func()
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]func())}
}

// Register associates a cancel handle with a session id. Registering over an
// existing id replaces the old handle; the latest registration wins. Running
// two sessions for one id is a caller error and is not validated here.
func (r *Registry) Register(id string, cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[id] = cancel
}

// Unregister removes the handle for a session id, if present.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Cancel invokes and removes the handle for a session id. Cancelling twice
// or cancelling an unknown id is a no-op returning false.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

// Has reports whether a session id is currently registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[id]
	return ok
}
