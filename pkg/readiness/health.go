// Package readiness implements a minimal health-checking mechanism for use as k8s readiness probes. It will always
// return a "ready" state after the conditions have been met for the first time - it's not meant for monitoring.
//
// A process-wide default registry backs the package-level functions, similar to the Prometheus client's default
// behavior. Tests and embedders that run several relayers in one process create their own Registry.
package readiness

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

type Component string

// Registry tracks the readiness of a set of components.
type Registry struct {
	mu         sync.Mutex
	components map[Component]bool
}

func NewRegistry() *Registry {
	return &Registry{components: map[Component]bool{}}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// RegisterComponent registers the given component name such that it is required to be ready for the global check
// to succeed. Registering a component twice is an error.
func (r *Registry) RegisterComponent(component Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[component]; ok {
		return fmt.Errorf("component %s already registered", component)
	}
	r.components[component] = false
	return nil
}

// SetReady marks the component as ready. It stays ready for the lifetime of the registry.
func (r *Registry) SetReady(component Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[component] = true
}

// IsReady reports whether every registered component is ready.
func (r *Registry) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.components {
		if !v {
			return false
		}
	}
	return true
}

// Handler is a net/http handler for the readiness check. It returns 200 OK if all components are ready,
// or 412 Precondition Failed otherwise. For operator convenience, a list of components and their states
// is returned as plain text (not meant for machine consumption!).
func (r *Registry) Handler(w http.ResponseWriter, _ *http.Request) {
	resp := new(bytes.Buffer)
	resp.WriteString("[not suitable for monitoring - do not parse]\n\n")

	r.mu.Lock()
	names := make([]string, 0, len(r.components))
	for k := range r.components {
		names = append(names, string(k))
	}
	sort.Strings(names)

	ready := true
	for _, k := range names {
		v := r.components[Component(k)]
		fmt.Fprintf(resp, "%s\t%v\n", k, v)
		if !v {
			ready = false
		}
	}
	r.mu.Unlock()

	if !ready {
		w.WriteHeader(http.StatusPreconditionFailed)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_, _ = resp.WriteTo(w)
}

// RegisterComponent registers component with the default registry.
func RegisterComponent(component Component) error {
	return defaultRegistry.RegisterComponent(component)
}

// SetReady sets the component state in the default registry.
func SetReady(component Component) {
	defaultRegistry.SetReady(component)
}

// Handler serves the default registry.
func Handler(w http.ResponseWriter, r *http.Request) {
	defaultRegistry.Handler(w, r)
}
