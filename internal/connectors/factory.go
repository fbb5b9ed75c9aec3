package connectors

import (
	"fmt"
	"net/http"
	"sync"
)

// Deps are the shared collaborators injected into every connector.
type Deps struct {
	// Creds resolves client credentials per platform.
	// Defaults to CredentialsFromEnv.
	Creds func(Platform) (Credentials, error)
	// Verifiers is the PKCE verifier stash (required for PKCE platforms).
	Verifiers VerifierStore
	// HTTP overrides the outbound client for all connectors. Optional.
	HTTP *http.Client
}

// Factory builds a connector instance for one platform.
type Factory func(deps Deps) (Connector, error)

// Registry holds connector factories and caches built instances.
// Connectors are stateless, so one instance per platform is enough.
type Registry struct {
	mu        sync.RWMutex
	factories map[Platform]Factory
	instances map[Platform]Connector
	deps      Deps
}

// NewRegistry creates an empty connector registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Creds == nil {
		deps.Creds = CredentialsFromEnv
	}
	return &Registry{
		factories: make(map[Platform]Factory),
		instances: make(map[Platform]Connector),
		deps:      deps,
	}
}

// Register installs a factory for a platform. Call at startup, once per
// supported platform.
func (r *Registry) Register(p Platform, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[p] = f
}

// Get returns the connector for a platform, building it on first use.
func (r *Registry) Get(p Platform) (Connector, error) {
	r.mu.RLock()
	if c, ok := r.instances[p]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock
	if c, ok := r.instances[p]; ok {
		return c, nil
	}

	factory, ok := r.factories[p]
	if !ok {
		return nil, E(p, CodeUnknownPlatform, "no connector registered")
	}

	c, err := factory(r.deps)
	if err != nil {
		return nil, fmt.Errorf("build connector %s: %w", p, err)
	}

	r.instances[p] = c
	return c, nil
}

// Available returns the registered platforms.
func (r *Registry) Available() []Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Platform, 0, len(r.factories))
	for _, p := range Platforms() {
		if _, ok := r.factories[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
