package predictor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/minimact/minimact-sub000/internal/boolexpr"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

// ErrUnresolvable is returned when a stored template can't be materialized
// against the given state — a missing binding, an array-typed value where a
// scalar was expected, or a condition expression that never parsed.
var ErrUnresolvable = errors.New("predictor: template unresolvable against current state")

// materialize renders rec against allState and returns the concrete patches
// to send the host (§4.5.4).
func materialize(rec *TemplateRecord, allState map[string]any) ([]vnode.Patch, error) {
	switch rec.Kind {
	case TemplateKindText:
		text, err := materializeText(rec.Text, allState)
		if err != nil {
			return nil, err
		}
		return []vnode.Patch{{Kind: vnode.PatchUpdateText, Path: rec.Path, Text: text}}, nil

	case TemplateKindAttr:
		text, err := materializeText(rec.Text, allState)
		if err != nil {
			return nil, err
		}
		return []vnode.Patch{{
			Kind:  vnode.PatchUpdateProps,
			Path:  rec.Path,
			Props: vnode.PropsDiff{rec.AttrName: &text},
		}}, nil

	case TemplateKindLoop:
		// §4.5.1: the stored prediction for a list change is the
		// UpdateListTemplate patch itself — the loop template travels to
		// the host, which re-materializes the item sequence from current
		// state. This sidesteps per-item VNode construction and keyed
		// diffing here, at the cost of trusting the host renderer to
		// implement the same item-template semantics.
		return []vnode.Patch{{Kind: vnode.PatchUpdateListTemplate, Path: rec.Path, ListTemplate: rec.Loop}}, nil

	case TemplateKindConditional:
		return materializeConditional(rec, allState)

	default:
		return nil, fmt.Errorf("predictor: materialize: unknown template kind %d", rec.Kind)
	}
}

// materializeText resolves a TemplatePatch's bindings against state and
// splices them into the template string (§4.5.4 "text template").
func materializeText(tp *vnode.TemplatePatch, state map[string]any) (string, error) {
	if tp == nil {
		return "", fmt.Errorf("predictor: materialize: %w", ErrUnresolvable)
	}
	values := make([]string, len(tp.Bindings))
	for i, name := range tp.Bindings {
		v, ok := state[name]
		if !ok {
			return "", fmt.Errorf("predictor: materialize: missing binding %q: %w", name, ErrUnresolvable)
		}
		values[i] = renderScalar(v)
	}

	if tp.HasConditional && tp.ConditionalBindingIndex < len(values) {
		key := values[tp.ConditionalBindingIndex]
		if alt, ok := tp.ConditionalTemplates[key]; ok {
			values[tp.ConditionalBindingIndex] = alt
		} else {
			return "", fmt.Errorf("predictor: materialize: no conditional branch for %q: %w", key, ErrUnresolvable)
		}
	}

	result := tp.Template
	for i, v := range values {
		result = strings.ReplaceAll(result, "{"+strconv.Itoa(i)+"}", v)
	}
	return result, nil
}

// materializeConditional evaluates the condition expression against state,
// looks up the resulting signature in PathVariants (filled in by the
// simulator), and emits a Remove (path became unreachable), a Create
// (element became reachable; uses the authored subtree captured at learn
// time), or no patch at all when presence didn't change (a path that moved
// while the element stayed present only updates LastKnownDOMPath).
func materializeConditional(rec *TemplateRecord, state map[string]any) ([]vnode.Patch, error) {
	ct := rec.Conditional
	if ct == nil || !ct.StaticallyEvaluable {
		return nil, fmt.Errorf("predictor: materialize conditional: %w", ErrUnresolvable)
	}

	ast, err := boolexpr.Parse(ct.ConditionExpression)
	if err != nil {
		return nil, fmt.Errorf("predictor: materialize conditional: %w", ErrUnresolvable)
	}

	vars := make(map[string]bool, len(ct.ConditionBindings))
	for _, binding := range ct.ConditionBindings {
		stateKey := binding
		if mapped, ok := ct.ConditionMapping[binding]; ok {
			stateKey = mapped
		}
		raw, ok := state[stateKey]
		if !ok {
			return nil, fmt.Errorf("predictor: materialize conditional: missing binding %q: %w", stateKey, ErrUnresolvable)
		}
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("predictor: materialize conditional: binding %q not boolean: %w", stateKey, ErrUnresolvable)
		}
		vars[binding] = b
	}

	sig := boolexpr.Signature(vars)
	path, ok := ct.PathVariants[sig]
	if !ok {
		return nil, fmt.Errorf("predictor: materialize conditional: unsimulated combination %q: %w", sig, ErrUnresolvable)
	}

	wasPresent := rec.LastKnownDOMPath != nil
	isPresent := path != nil

	switch {
	case !wasPresent && isPresent:
		if rec.AuthoredNode == nil {
			return nil, fmt.Errorf("predictor: materialize conditional: no authored subtree captured: %w", ErrUnresolvable)
		}
		rec.LastKnownDOMPath = path
		return []vnode.Patch{{Kind: vnode.PatchCreate, Path: path, Node: vnode.Clone(rec.AuthoredNode)}}, nil
	case wasPresent && !isPresent:
		removePath := rec.LastKnownDOMPath
		rec.LastKnownDOMPath = nil
		return []vnode.Patch{{Kind: vnode.PatchRemove, Path: removePath}}, nil
	case wasPresent && isPresent:
		rec.LastKnownDOMPath = path
		return nil, nil
	default:
		return nil, nil
	}
}
