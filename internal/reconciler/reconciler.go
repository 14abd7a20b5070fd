// Package reconciler computes the ordered Patch sequence that turns one
// VNode tree into another (§4.2). The algorithm's shape — variant-level
// replace, prop set-diff, keyed-vs-positional child reconciliation with a
// single reorder patch — is grounded on the vango vdom differ
// (other_examples/823dc814_recera-vango__pkg-vango-vdom-diff.go.go), adapted
// from node-ID-addressed patches to the spec's index-path-addressed ones and
// from "always diff, optionally key" to "switch to keyed mode only when some
// child in the pair carries a non-empty key."
package reconciler

import (
	"errors"
	"fmt"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// ErrCyclic is returned when recursion exceeds maxDepth. VNode trees are
// required to be acyclic by the (out-of-scope) authoring boundary; the Core
// does not walk arbitrary graphs looking for cycles, but it refuses to spin
// forever on malformed input that loops back on itself.
var ErrCyclic = errors.New("reconciler: recursion depth exceeded, tree may be cyclic")

const maxDepth = 1 << 16

// Diff computes the ordered patch sequence (in VNode space) that transforms
// old into next. Patches are emitted in tree-post-order: children before
// parent, earlier siblings before later; removals within one parent are
// emitted from high index to low so earlier removals never invalidate
// later indices.
func Diff(old, next *vnode.VNode) ([]vnode.Patch, error) {
	return diffNode(nil, old, next, 0)
}

func diffNode(path []int, old, next *vnode.VNode, depth int) ([]vnode.Patch, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("reconciler: at path %v: %w", path, ErrCyclic)
	}

	// null-aware: a null<->non-null pair becomes Create or Remove at this
	// path (§4.2 step 5). Both-null means nothing to do.
	if old == nil && next == nil {
		return nil, nil
	}
	if old == nil {
		return []vnode.Patch{{Kind: vnode.PatchCreate, Path: clonePath(path), Node: next}}, nil
	}
	if next == nil {
		return []vnode.Patch{{Kind: vnode.PatchRemove, Path: clonePath(path)}}, nil
	}

	// Variant-level change: Text<->Element, or differing element tags.
	if old.Kind != next.Kind || (old.Kind == vnode.KindElement && old.Tag != next.Tag) {
		return []vnode.Patch{{Kind: vnode.PatchReplace, Path: clonePath(path), Node: next}}, nil
	}

	switch old.Kind {
	case vnode.KindText:
		if old.Text != next.Text {
			return []vnode.Patch{{Kind: vnode.PatchUpdateText, Path: clonePath(path), Text: next.Text}}, nil
		}
		return nil, nil

	case vnode.KindElement:
		childPatches, err := diffChildren(path, old.Children, next.Children, depth+1)
		if err != nil {
			return nil, err
		}

		var patches []vnode.Patch
		patches = append(patches, childPatches...)

		if diff := propsDiff(old.Props, next.Props); len(diff) > 0 {
			patches = append(patches, vnode.Patch{Kind: vnode.PatchUpdateProps, Path: clonePath(path), Props: diff})
		}

		return patches, nil

	default:
		return nil, fmt.Errorf("reconciler: at path %v: unknown vnode kind %v", path, old.Kind)
	}
}

// propsDiff computes the §4.2 step 3 set difference.
func propsDiff(oldProps, newProps map[string]string) vnode.PropsDiff {
	var diff vnode.PropsDiff
	set := func(name, value string) {
		if diff == nil {
			diff = make(vnode.PropsDiff)
		}
		v := value
		diff[name] = &v
	}
	remove := func(name string) {
		if diff == nil {
			diff = make(vnode.PropsDiff)
		}
		diff[name] = nil
	}

	for name, newVal := range newProps {
		if oldVal, ok := oldProps[name]; !ok || oldVal != newVal {
			set(name, newVal)
		}
	}
	for name := range oldProps {
		if _, ok := newProps[name]; !ok {
			remove(name)
		}
	}
	return diff
}

func clonePath(path []int) []int {
	out := make([]int, len(path))
	copy(out, path)
	return out
}
