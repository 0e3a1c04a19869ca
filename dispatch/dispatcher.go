// Package dispatch provides a central registry that maps command or
// operation names to their handlers. The CLI context uses it for local
// commands and the test management server for operations.
package dispatch

import (
	"fmt"
	"slices"
	"sync"
)

// Dispatcher maps names to handlers of type H.
type Dispatcher[H any] struct {
	mu       sync.RWMutex
	handlers map[string]H
	aliases  map[string]string
}

// New creates a new Dispatcher.
func New[H any]() *Dispatcher[H] {
	return &Dispatcher[H]{
		handlers: make(map[string]H),
		aliases:  make(map[string]string),
	}
}

// Register binds a name to a handler. Registering a name twice panics.
func (d *Dispatcher[H]) Register(name string, handler H, aliases ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		panic(fmt.Sprintf("handler already registered: %s", name))
	}
	d.handlers[name] = handler
	for _, a := range aliases {
		d.aliases[a] = name
	}
}

// Lookup returns the handler for name or one of its aliases.
func (d *Dispatcher[H]) Lookup(name string) (H, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if target, ok := d.aliases[name]; ok {
		name = target
	}
	h, ok := d.handlers[name]
	return h, ok
}

// Names returns the registered names in sorted order, without aliases.
func (d *Dispatcher[H]) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
