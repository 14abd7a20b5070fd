// Package predictor implements the Predictor (§4.5): it learns, from every
// observed state-change-to-patch-sequence pair, either a concrete fallback
// (the literal patches last seen) or a parameterized template, and answers
// future state changes with a prediction the host applies speculatively,
// before the round trip to the server confirms it.
package predictor

import (
	"log"

	"github.com/minimact/minimact-sub000/internal/config"
	"github.com/minimact/minimact-sub000/internal/reconciler"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

// StateChange describes one observed or hypothetical state mutation.
// OldValue is only required for Learn (it lets the ternary-text heuristic
// diff the two renders); Predict only ever needs NewValue.
type StateChange struct {
	ComponentID string
	StateKey    string
	OldValue    any
	NewValue    any
}

// Predictor owns one pattern Store and the policy used to decide when a
// misbehaving template gets demoted.
type Predictor struct {
	store  *Store
	policy *config.Config
	logger *log.Logger
}

// New creates a Predictor. A nil policy falls back to config.DefaultConfig;
// a nil logger is replaced by one writing to the standard logger's output
// with a "predictor: " prefix, so the Predictor never requires a logger to
// run standalone.
func New(policy *config.Config, logger *log.Logger) *Predictor {
	if policy == nil {
		policy = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.New(log.Writer(), "predictor: ", log.LstdFlags)
	}
	return &Predictor{store: NewStore(), policy: policy, logger: logger}
}

// Store exposes the underlying pattern store, e.g. for snapshot warm-start.
func (p *Predictor) Store() *Store { return p.store }

// TemplateLearned reports whether a template is currently stored for this
// pattern key, whether it came from the most recent Learn call or an
// earlier one; it does not tell whether the latest Learn stored or replaced
// anything. Intended for ambient metrics wiring above this package
// (internal/predictor stays dependency-free otherwise).
func (p *Predictor) TemplateLearned(change StateChange) bool {
	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)
	_, ok := p.store.template(key)
	return ok
}

// LastPredictionSource reports which store a prior Predict call for this
// pattern key would have been satisfied from: a live (non-demoted)
// template, or the concrete fallback. Only meaningful immediately after a
// successful Predict; like TemplateLearned, this exists purely for ambient
// metrics wiring above this package.
func (p *Predictor) LastPredictionSource(change StateChange) (template bool) {
	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	return p.store.lastPrediction[key] == predictionTemplate
}

// Learn observes one real state change and its resulting render (§4.5.1).
// old/next are the full VNode trees before and after the change; allState
// is the component's complete state map at the time of the change (used to
// search for other bindings a text/attribute template might reference);
// metadata is the optional host-supplied compiler metadata for this
// component, checked first and trusted over any heuristic.
func (p *Predictor) Learn(change StateChange, old, next *vnode.VNode, allState map[string]any, metadata *vnode.TemplateMap) ([]vnode.Patch, error) {
	patches, err := reconciler.Diff(old, next)
	if err != nil {
		return nil, err
	}

	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)
	p.store.storeConcrete(key, patches)
	p.store.setLastKnownValue(change.StateKey, change.NewValue)

	rec := p.extractTemplate(change, old, patches, allState, metadata)
	if rec != nil {
		p.store.storeTemplate(key, rec)
	} else {
		p.logger.Printf("no template extracted for %s/%s, falling back to concrete replay (%d patches)",
			change.ComponentID, change.StateKey, len(patches))
	}

	return patches, nil
}

// extractTemplate tries the extraction heuristics in priority order
// (§4.5.1): compiler-supplied, then loop, then boolean-gated conditional,
// then single-patch text/attribute. The first that succeeds wins.
func (p *Predictor) extractTemplate(change StateChange, old *vnode.VNode, patches []vnode.Patch, allState map[string]any, metadata *vnode.TemplateMap) *TemplateRecord {
	if rec := extractCompilerSupplied(metadata, change.StateKey); rec != nil {
		return rec
	}

	if arr, ok := change.NewValue.([]any); ok {
		if rec := p.extractLoopFromPatches(change.StateKey, arr, patches); rec != nil {
			return rec
		}
	}

	if newBool, ok := change.NewValue.(bool); ok {
		if len(patches) == 1 {
			switch patches[0].Kind {
			case vnode.PatchCreate, vnode.PatchRemove:
				return p.extractConditionalFromPatch(change.StateKey, newBool, patches[0])
			case vnode.PatchUpdateText:
				if oldBool, ok := change.OldValue.(bool); ok {
					if rec := p.extractConditionalTextFromPatch(change.StateKey, oldBool, newBool, old, patches[0]); rec != nil {
						return rec
					}
				}
			}
		}
	}

	if len(patches) == 1 {
		if rec, ok := extractFromSinglePatch(patches[0], change.StateKey, change.NewValue, allState); ok {
			return rec
		}
	}

	return nil
}

// extractConditionalTextFromPatch handles §8 S5: a ternary embedded in
// otherwise-static text (`{isOn ? 'Hide' : 'Show'} Details`). Unlike the
// numeric/string substring heuristic (buildTextTemplate), the two string
// choices rarely share any substring with "true"/"false", so this diffs the
// old and new rendered text directly to find the varying chunk.
func (p *Predictor) extractConditionalTextFromPatch(stateKey string, oldBool, newBool bool, old *vnode.VNode, patch vnode.Patch) *TemplateRecord {
	oldNode, err := vnode.Walk(old, patch.Path)
	if err != nil || oldNode == nil || !oldNode.IsText() {
		return nil
	}
	tp, ok := buildConditionalTextTemplate(oldNode.Text, patch.Text, stateKey, oldBool, newBool)
	if !ok {
		return nil
	}
	return &TemplateRecord{Kind: TemplateKindText, Path: patch.Path, Text: tp, Source: vnode.ExtractedAtRuntime}
}

func (p *Predictor) extractLoopFromPatches(stateKey string, arr []any, patches []vnode.Patch) *TemplateRecord {
	var itemPatch *vnode.Patch
	for i := range patches {
		if patches[i].Kind == vnode.PatchCreate && patches[i].Node != nil {
			itemPatch = &patches[i]
			break
		}
	}
	if itemPatch == nil || len(itemPatch.Path) == 0 {
		return nil
	}
	containerPath := itemPatch.Path[:len(itemPatch.Path)-1]
	// Pair the created node with the array element it was rendered from
	// (its position in the container), not with arr[0].
	items := arr
	if idx := itemPatch.Path[len(itemPatch.Path)-1]; idx >= 0 && idx < len(arr) {
		items = arr[idx:]
	}
	rec, ok := extractLoopTemplate(stateKey, items, containerPath, itemPatch.Node, p.logger)
	if !ok {
		return nil
	}
	return rec
}

// extractConditionalFromPatch handles the common case of a single boolean
// state variable directly gating an element's presence: the condition
// expression is simply the state key itself (§4.4's simplest guard chain —
// a single identifier). Multi-gate expressions require host-supplied
// compiler metadata (extractCompilerSupplied), since the Predictor cannot
// infer a boolean combination from a single observed toggle.
func (p *Predictor) extractConditionalFromPatch(stateKey string, _ bool, patch vnode.Patch) *TemplateRecord {
	var authored *vnode.VNode
	if patch.Kind == vnode.PatchCreate {
		authored = patch.Node
	}
	rec := extractConditional(
		stateKey,
		stateKey,
		[]string{stateKey},
		map[string]string{stateKey: stateKey},
		patch.Path,
		authored,
	)
	if patch.Kind == vnode.PatchRemove {
		rec.LastKnownDOMPath = patch.Path
	}
	return rec
}

// Predict answers a hypothetical state change (§4.5.2). It returns
// (patches, true, nil) when a prediction was made — either from a
// materialized template or a replayed concrete fallback — and
// (nil, false, nil) when neither source has anything for this pattern key.
func (p *Predictor) Predict(change StateChange, allState map[string]any) ([]vnode.Patch, bool, error) {
	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)

	if rec, ok := p.store.template(key); ok && !rec.Demoted {
		patches, err := materialize(rec, allState)
		if err == nil {
			p.store.bumpTemplateUsage(key)
			p.store.markPrediction(key, predictionTemplate)
			return patches, true, nil
		}
		p.logger.Printf("template materialization failed for %s/%s: %v, falling back to concrete",
			change.ComponentID, change.StateKey, err)
	}

	if rec, ok := p.store.concreteRecord(key); ok {
		p.store.bumpConcreteUsage(key)
		p.store.markPrediction(key, predictionConcrete)
		return clonePatches(rec.Patches), true, nil
	}

	return nil, false, nil
}

// Confirm records that the host's actual patch sequence matched the
// prediction (§4.5.3).
func (p *Predictor) Confirm(change StateChange) {
	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)
	p.store.Confirm(key)
}

// Refute records a misprediction and demotes the offending template once
// its error ratio crosses the configured threshold (§4.5.3, §9 Open
// Question 2).
func (p *Predictor) Refute(change StateChange) (demoted bool) {
	key := NewPatternKey(change.ComponentID, change.StateKey, change.NewValue)
	demoted = p.store.Refute(key, p.policy.DemotionRatio, p.policy.MinUsesForDemotion)
	if demoted {
		p.logger.Printf("demoted template for %s/%s after exceeding demotion ratio %v",
			change.ComponentID, change.StateKey, p.policy.DemotionRatio)
	}
	return demoted
}

func clonePatches(patches []vnode.Patch) []vnode.Patch {
	out := make([]vnode.Patch, len(patches))
	copy(out, patches)
	return out
}
