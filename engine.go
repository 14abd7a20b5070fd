// Package minimact is the public Host integration contract (spec §6.1): a
// library, not a process, that a host embeds to get predictive DOM patch
// generation for its own components. Engine wires the nine internal
// components (VDOM model, Reconciler, Path Adjuster, restricted boolean
// grammar, Conditional Path Simulator, Predictor, component type registry,
// ambient metrics, and policy config) together per the control-flow diagram
// in spec §2; Component is the per-instance handle a host holds for one
// live component.
package minimact

import (
	"fmt"
	"log"

	"github.com/minimact/minimact-sub000/internal/config"
	"github.com/minimact/minimact-sub000/internal/metrics"
	"github.com/minimact/minimact-sub000/internal/registry"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

// Re-exported data-model types (spec §3, §6.3) so a host only ever imports
// this one package for the types it exchanges with the Core.
type (
	VNode                      = vnode.VNode
	Patch                      = vnode.Patch
	PropsDiff                  = vnode.PropsDiff
	TemplateMap                = vnode.TemplateMap
	TemplatePatch              = vnode.TemplatePatch
	ItemTemplate               = vnode.ItemTemplate
	LoopTemplate               = vnode.LoopTemplate
	ConditionalElementTemplate = vnode.ConditionalElementTemplate
)

// Engine owns the process-wide collaborators: the component type registry
// (spec §5's only cross-component structure), ambient metrics, and policy
// config. It is safe for concurrent use by multiple goroutines managing
// distinct components; per-component state (the Predictor's pattern store)
// lives on Component instead, per spec §5's "does not require a global
// lock" scheduling model.
type Engine struct {
	config   *config.Config
	registry *registry.Registry
	metrics  *metrics.Collector
	logger   *log.Logger
}

// Option configures an Engine at construction. Mirrors the teacher's
// ApplicationOption ergonomics (options collected, then applied once).
type Option func(*Engine) error

// NewEngine creates an Engine with its default policy config, an empty
// component type registry, and a fresh metrics collector.
func NewEngine(options ...Option) (*Engine, error) {
	e := &Engine{
		config:   config.DefaultConfig(),
		registry: registry.New(),
		metrics:  metrics.NewCollector(),
		logger:   log.New(log.Writer(), "minimact: ", log.LstdFlags),
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// WithConfig overrides the default policy config (demotion ratio, minimum
// uses before demotion, simulator combination cap).
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) error {
		if cfg == nil {
			return fmt.Errorf("minimact: config must not be nil")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("minimact: invalid config: %w", err)
		}
		e.config = cfg
		return nil
	}
}

// WithLogger overrides the Engine's (and every Component's) logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return fmt.Errorf("minimact: logger must not be nil")
		}
		e.logger = logger
		return nil
	}
}

// RegisterComponentType adds a class descriptor to the component type
// registry (spec §5). metadata may be nil when the host's compiler has not
// yet emitted a TemplateMap for this type; components of this type then
// rely entirely on runtime extraction until a hot reload supplies one via
// Learn's own metadata argument.
func (e *Engine) RegisterComponentType(typeName string, metadata *vnode.TemplateMap) error {
	if e.registry.Sealed() {
		return fmt.Errorf("%w: %q", ErrEngineSealed, typeName)
	}
	if _, exists := e.registry.Get(typeName); exists {
		return fmt.Errorf("%w: %q", ErrComponentTypeExists, typeName)
	}
	if metadata == nil {
		// internal/registry validates TemplateMap with go-playground/validator
		// "required" tags (SPEC_FULL §D), which reject the zero value for
		// GeneratedAt; 1 is a deliberate "no real compiler build" sentinel,
		// distinct from any real Unix timestamp a host would ever supply.
		metadata = &vnode.TemplateMap{ComponentName: typeName, Version: "unknown", GeneratedAt: 1}
	}
	if err := e.registry.Register(typeName, metadata); err != nil {
		return err
	}
	e.metrics.SetRegisteredComponentTypes(e.registry.Count())
	return nil
}

// Seal closes the component type registry to further registration (spec
// §5: "populated once at startup and then read-only during steady-state
// operation"). Call once, after every component type known at startup has
// been registered.
func (e *Engine) Seal() { e.registry.Seal() }

// Sealed reports whether Seal has been called.
func (e *Engine) Sealed() bool { return e.registry.Sealed() }

// RegisteredTypes lists every registered component type name.
func (e *Engine) RegisteredTypes() []string { return e.registry.TypeNames() }

// Metrics exposes the Engine's process-wide ambient metrics collector, for
// a host's own /metrics endpoint.
func (e *Engine) Metrics() *metrics.Collector { return e.metrics }

// Registry exposes the Engine's component type registry, so a host's own
// auth/session layer (internal/hostauth, for instance) can bind token
// issuance and acceptance to exactly the component types this Engine
// actually has class descriptors for.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// NewComponent creates a Component instance of typeName. The type must
// already be registered (RegisterComponentType); componentID is the host's
// own identifier for this instance and is opaque to the Engine.
func (e *Engine) NewComponent(typeName, componentID string) (*Component, error) {
	if componentID == "" {
		return nil, ErrComponentIDRequired
	}
	class, ok := e.registry.Get(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentTypeNotRegistered, typeName)
	}

	return newComponent(componentID, class, e.config, e.metrics, e.logger), nil
}
