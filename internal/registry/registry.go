// Package registry implements the component type registry (§5 "Shared-
// resource policy"): the only structure shared across component instances.
// It maps a component type name to a ClassDescriptor built from the host's
// compiler-supplied TemplateMap, is populated once at startup, and is then
// sealed read-only for the lifetime of the process — unlike the teacher's
// page registry this grounds on, there is no TTL, no cleanup ticker, and no
// per-entry expiry, because steady-state lookups never mutate it.
package registry

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// ClassDescriptor is everything the Core needs to know about a component
// type before any instance of it exists: the compiler-supplied template
// metadata that an instance's Learn falls back to when the call supplies
// no metadata of its own (§4.5.1.1), plus the type name it was registered
// under.
type ClassDescriptor struct {
	TypeName    string
	TemplateMap *vnode.TemplateMap
}

var validate = validator.New()

// Registry is the process-wide component type registry. The zero value is
// not usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*ClassDescriptor
	sealed  bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{classes: make(map[string]*ClassDescriptor)}
}

// Register adds a class descriptor for typeName, built from metadata.
// metadata is validated against §6.3's TemplateMap contract (required
// component name, version, and a non-zero generated_at timestamp); a
// malformed TemplateMap is rejected rather than silently accepted (§D
// "TemplateMap struct validation").
//
// Register fails once the registry has been Sealed — startup registration
// and steady-state lookup are the only two phases this registry supports.
func (r *Registry) Register(typeName string, metadata *vnode.TemplateMap) error {
	if typeName == "" {
		return fmt.Errorf("registry: register: type name must not be empty")
	}
	if metadata == nil {
		return fmt.Errorf("registry: register %q: template map must not be nil", typeName)
	}
	if err := validate.Struct(metadata); err != nil {
		return fmt.Errorf("registry: register %q: invalid template map: %w", typeName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry: register %q: registry is sealed", typeName)
	}
	r.classes[typeName] = &ClassDescriptor{TypeName: typeName, TemplateMap: metadata}
	return nil
}

// Seal closes the registry to further registration. The host calls this
// once, after every component type has been registered at startup; every
// lookup thereafter is a plain read under an RLock with no writer to race.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Get looks up the class descriptor for typeName.
func (r *Registry) Get(typeName string) (*ClassDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cd, ok := r.classes[typeName]
	return cd, ok
}

// TypeNames returns every registered type name, for diagnostics and
// startup logging.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered component types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}
