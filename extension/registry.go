// registry.go holds the extensions linked into the binary.
//
// Extensions add themselves from init() in their own package, which
// extension/all imports, so the set is fixed before main runs. Commands
// appear in registration order. A second extension with a taken name
// panics, as database/sql.Register does.

package extension

import (
	"slices"
	"sync"
)

var (
	mu         sync.RWMutex
	registered []Extension
)

// Register adds e. Call it from init().
func Register(e Extension) {
	mu.Lock()
	defer mu.Unlock()

	if slices.ContainsFunc(registered, func(x Extension) bool { return x.Name() == e.Name() }) {
		panic("extension already registered: " + e.Name())
	}
	registered = append(registered, e)
}

// All returns the registered extensions in registration order.
func All() []Extension {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Clone(registered)
}
