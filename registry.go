// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "sync"

// Constructor builds a [Component] from a validated configuration record.
// Registered per class name; see [Registry].
type Constructor func(cfg ConfigRecord) (Component, error)

// Registry is a typed {name -> constructor} lookup generalizing the
// source's runtime class-name-keyed factory (ApplicationFactory.register).
// A *Registry is safe for concurrent use; registrations are expected
// during package init / program startup, lookups during config
// evaluation.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty [*Registry].
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds class to constructor. fails with [ErrAlreadyBound] if
// class is already registered.
func (r *Registry) Register(class string, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[class]; exists {
		return NewError(KindAlreadyBound, "class already registered: "+class, nil)
	}
	r.constructors[class] = constructor
	return nil
}

// Build looks up class and invokes its constructor with cfg. fails with
// [ErrNotFound] if no constructor is registered for class.
func (r *Registry) Build(class string, cfg ConfigRecord) (Component, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[class]
	r.mu.RUnlock()
	if !ok {
		return nil, NewError(KindNotFound, "no constructor registered for class: "+class, nil)
	}
	return constructor(cfg)
}

// Classes returns every registered class name, in no particular order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for class := range r.constructors {
		out = append(out, class)
	}
	return out
}
