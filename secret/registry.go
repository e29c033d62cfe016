package secret

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return errors.New("secret: invalid provider registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("secret: provider %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the provider registered under name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	return factory(cfg)
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry holds the built-in "env" and "file" providers.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("env", func(map[string]any) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = DefaultRegistry.Register("file", func(cfg map[string]any) (Provider, error) {
		dir, _ := cfg["dir"].(string)
		return FileProvider{Dir: dir}, nil
	})
}
