package webhook

import (
	"sort"
	"sync"
)

// Registry maps provider names to their handlers. Registering an already
// registered provider replaces the prior handler (last write wins).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a provider name.
func (r *Registry) Register(provider string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[provider] = handler
}

// Unregister removes a provider. Unknown providers are a no-op.
func (r *Registry) Unregister(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, provider)
}

// Get returns the handler for a provider, or nil when unregistered.
func (r *Registry) Get(provider string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[provider]
}

// Providers lists registered provider names, sorted for stable output.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}
