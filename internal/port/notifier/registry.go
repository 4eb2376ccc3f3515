package notifier

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Factory is a constructor function that creates a new Notifier instance.
type Factory func(config map[string]string) (Notifier, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a notifier factory available by name.
// Adapter packages call it from init(); cmd/tourbridge imports them for effect.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("notifier: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// DefaultProvider is used when no provider is configured.
const DefaultProvider = "log"

// New creates a new Notifier by name using the registered factory.
// An empty name selects DefaultProvider.
func New(name string, config map[string]string) (Notifier, error) {
	if name == "" {
		name = DefaultProvider
	}
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("notifier: unknown provider %q", name)
	}
	return factory(config)
}

// Available returns the sorted names of all registered notifiers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
