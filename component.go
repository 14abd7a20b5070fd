package minimact

import (
	"log"

	"github.com/minimact/minimact-sub000/internal/config"
	"github.com/minimact/minimact-sub000/internal/metrics"
	"github.com/minimact/minimact-sub000/internal/pathadjust"
	"github.com/minimact/minimact-sub000/internal/predictor"
	"github.com/minimact/minimact-sub000/internal/reconciler"
	"github.com/minimact/minimact-sub000/internal/registry"
	"github.com/minimact/minimact-sub000/internal/simulator"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

// StateChange describes one observed or hypothetical state mutation on a
// component (spec §6.1). It is an alias of the Predictor's own type since
// the two never diverge: the Core's public contract and its internal
// pattern-matching key are the same value.
type StateChange = predictor.StateChange

// Component is a host's handle to one live component instance (spec §5:
// "a given component's learn/predict/simulation state is never touched by
// two threads simultaneously" — Component is therefore not safe for
// concurrent use by multiple goroutines; the host serializes calls per
// instance itself).
type Component struct {
	ID       string
	TypeName string

	class     *registry.ClassDescriptor
	predictor *predictor.Predictor
	metrics   *metrics.Collector
	logger    *log.Logger
}

func newComponent(id string, class *registry.ClassDescriptor, policy *config.Config, m *metrics.Collector, logger *log.Logger) *Component {
	return &Component{
		ID:        id,
		TypeName:  class.TypeName,
		class:     class,
		predictor: predictor.New(policy, logger),
		metrics:   m,
		logger:    logger,
	}
}

// Learn observes one real state change and its resulting render (spec
// §2/§4.5.1): it reconciles old against next (via the Predictor, which
// calls the Reconciler itself), feeds the observation to the pattern
// store, and returns DOM-space patches ready for the host's transport,
// having run them through the Path Adjuster and dropped any that resolve
// through a currently-null branch (spec §7's Stale-path recovery).
//
// metadata, when non-nil, overrides the component type's registered
// TemplateMap for this call only (a hot-reloaded TemplateMap, spec §6.1).
// A nil metadata falls back to the class descriptor's TemplateMap.
func (c *Component) Learn(change StateChange, old, next *vnode.VNode, allState map[string]any, metadata *vnode.TemplateMap) ([]vnode.Patch, error) {
	if metadata == nil {
		metadata = c.class.TemplateMap
	}

	patches, err := c.predictor.Learn(change, old, next, allState, metadata)
	if err != nil {
		return nil, err
	}

	c.metrics.RecordReconcile(len(patches))
	templateExtracted := c.predictor.TemplateLearned(change)
	c.metrics.RecordLearn(templateExtracted)
	if templateExtracted {
		c.metrics.RecordTemplateLearned()
	}

	return c.toDOMSpace(next, patches), nil
}

// Predict answers a hypothetical state change (spec §4.5.2) without
// performing a render: it returns a speculative DOM-space patch list the
// host may apply before the authoritative render confirms it, or
// (nil, false, nil) when the Predictor has nothing stored for this
// pattern. reference is the tree the prediction is adjusted against —
// normally the component's last known rendered tree.
func (c *Component) Predict(change StateChange, allState map[string]any, reference *vnode.VNode) ([]vnode.Patch, bool, error) {
	patches, ok, err := c.predictor.Predict(change, allState)
	if err != nil {
		c.metrics.RecordPredict(metrics.PredictMaterializeFailed)
		return nil, false, err
	}
	if !ok {
		c.metrics.RecordPredict(metrics.PredictMiss)
		return nil, false, nil
	}

	if c.predictor.LastPredictionSource(change) {
		c.metrics.RecordPredict(metrics.PredictTemplateHit)
	} else {
		c.metrics.RecordPredict(metrics.PredictConcreteHit)
	}
	return c.toDOMSpace(reference, patches), true, nil
}

// Confirm records that the host's actual render matched a prediction
// (spec §4.5.3).
func (c *Component) Confirm(change StateChange) {
	c.predictor.Confirm(change)
	c.metrics.RecordConfirm()
}

// Refute records a misprediction (spec §4.5.3); the host should already
// have recovered by applying the authoritative reconciler output before
// calling this.
func (c *Component) Refute(change StateChange) (demoted bool) {
	demoted = c.predictor.Refute(change)
	c.metrics.RecordRefute()
	if demoted {
		c.metrics.RecordTemplateDemoted()
	}
	return demoted
}

// SimulateConditionalPaths runs the Conditional Path Simulator (spec §4.4)
// over sites built by the host's compiler from this component's canonical
// tree — the tree as if every conditional evaluated true. It populates
// each site's Template.PathVariants in place and returns an error only for
// a malformed site list (spec §7's Input-invalid category); an
// unsupported condition grammar is not an error; it is recorded in metrics
// and the affected site is left with StaticallyEvaluable=false.
func (c *Component) SimulateConditionalPaths(canonical *vnode.VNode, sites []*simulator.Site) error {
	if err := simulator.Simulate(canonical, sites); err != nil {
		return err
	}

	enumerated := 0
	for _, s := range sites {
		if s.Template == nil {
			continue
		}
		if !s.Template.StaticallyEvaluable {
			c.metrics.RecordUnevaluableExpression()
			continue
		}
		enumerated += len(s.Template.PathVariants)
	}
	c.metrics.RecordSimulation(enumerated, 0)

	return nil
}

// toDOMSpace converts a VNode-space patch list to DOM space against
// reference (spec §4.3), silently dropping patches whose path resolves
// through a currently-null branch (spec §7's Stale-path recovery — not a
// failure, the element simply isn't in the DOM right now).
func (c *Component) toDOMSpace(reference *vnode.VNode, patches []vnode.Patch) []vnode.Patch {
	out := make([]vnode.Patch, 0, len(patches))
	for _, p := range patches {
		domPath, invisible, err := pathadjust.Adjust(reference, p.Path)
		if err != nil {
			c.logger.Printf("component %s: dropping patch at stale path %v: %v", c.ID, p.Path, err)
			continue
		}
		if invisible {
			continue
		}
		adjusted := p
		adjusted.Path = domPath
		out = append(out, adjusted)
	}
	return out
}

// Diff is a convenience wrapper over the bare Reconciler (spec §4.2),
// exposed for hosts that want raw VNode-space patches without touching the
// Predictor — e.g. for a first render with no prior tree to learn from.
func Diff(old, next *vnode.VNode) ([]vnode.Patch, error) {
	return reconciler.Diff(old, next)
}
