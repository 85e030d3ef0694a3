package ai

import (
	"fmt"
	"strings"
	"sync"
)

// ProviderFactory builds a configured provider. Factories close over their
// backend config so lookup needs nothing but the name.
type ProviderFactory func() (Provider, error)

// Registry maps backend names to provider factories. The process registers
// every configured backend at startup and resolves one by AI_PROVIDER.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f()
}
