package reconciler

import (
	"sort"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// diffChildren implements §4.2 step 4: keyed reconciliation when any child
// on either side carries a non-empty key, otherwise positional
// reconciliation.
func diffChildren(path []int, oldKids, newKids []*vnode.VNode, depth int) ([]vnode.Patch, error) {
	if hasAnyKey(oldKids) || hasAnyKey(newKids) {
		return diffKeyedChildren(path, oldKids, newKids, depth)
	}
	return diffPositionalChildren(path, oldKids, newKids, depth)
}

func hasAnyKey(kids []*vnode.VNode) bool {
	for _, k := range kids {
		if k != nil && k.Kind == vnode.KindElement && k.Key != "" {
			return true
		}
	}
	return false
}

// diffPositionalChildren: pairwise recurse on [0, min), tail-extend with
// Create, tail-shrink with Remove from the highest index down.
func diffPositionalChildren(path []int, oldKids, newKids []*vnode.VNode, depth int) ([]vnode.Patch, error) {
	var patches []vnode.Patch

	minLen := len(oldKids)
	if len(newKids) < minLen {
		minLen = len(newKids)
	}

	for i := 0; i < minLen; i++ {
		childPath := append(clonePath(path), i)
		p, err := diffNode(childPath, oldKids[i], newKids[i], depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	for i := minLen; i < len(newKids); i++ {
		childPath := append(clonePath(path), i)
		p, err := diffNode(childPath, nil, newKids[i], depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	for i := len(oldKids) - 1; i >= minLen; i-- {
		childPath := append(clonePath(path), i)
		p, err := diffNode(childPath, oldKids[i], nil, depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	return patches, nil
}

// diffKeyedChildren builds old_key->old_index / new_key->new_index maps;
// unkeyed children are matched positionally among the leftover, unmatched
// slots. A non-trivial permutation of the matched keyed children is
// encoded as a single ReorderChildren patch at path.
func diffKeyedChildren(path []int, oldKids, newKids []*vnode.VNode, depth int) ([]vnode.Patch, error) {
	oldKeyIndex := make(map[string]int, len(oldKids))
	for i, k := range oldKids {
		if key := elementKey(k); key != "" {
			oldKeyIndex[key] = i
		}
	}

	oldMatched := make([]bool, len(oldKids))
	// pairing[newIndex] = oldIndex, or -1 if newIndex is a fresh Create.
	pairing := make([]int, len(newKids))
	for i := range pairing {
		pairing[i] = -1
	}

	// First pass: match by key.
	for ni, nk := range newKids {
		if key := elementKey(nk); key != "" {
			if oi, found := oldKeyIndex[key]; found && !oldMatched[oi] {
				pairing[ni] = oi
				oldMatched[oi] = true
			}
		}
	}

	// Second pass: match remaining unkeyed slots positionally among the
	// leftover (unmatched) old children, in order.
	leftoverOld := make([]int, 0, len(oldKids))
	for oi, k := range oldKids {
		if !oldMatched[oi] && elementKey(k) == "" {
			leftoverOld = append(leftoverOld, oi)
		}
	}
	cursor := 0
	for ni, nk := range newKids {
		if pairing[ni] != -1 || elementKey(nk) != "" {
			continue
		}
		if cursor < len(leftoverOld) {
			oi := leftoverOld[cursor]
			cursor++
			pairing[ni] = oi
			oldMatched[oi] = true
		}
	}

	var patches []vnode.Patch

	// Matched pairs: recurse, in ascending new-index order.
	for ni, oi := range pairing {
		if oi == -1 {
			continue
		}
		childPath := append(clonePath(path), ni)
		p, err := diffNode(childPath, oldKids[oi], newKids[ni], depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	// New children with no match: Create, ascending new-index order.
	for ni, oi := range pairing {
		if oi != -1 {
			continue
		}
		childPath := append(clonePath(path), ni)
		p, err := diffNode(childPath, nil, newKids[ni], depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	// Old children with no match: Remove, descending old-index order.
	unmatchedOld := make([]int, 0)
	for oi, matched := range oldMatched {
		if !matched {
			unmatchedOld = append(unmatchedOld, oi)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(unmatchedOld)))
	for _, oi := range unmatchedOld {
		childPath := append(clonePath(path), oi)
		p, err := diffNode(childPath, oldKids[oi], nil, depth)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p...)
	}

	if order := reorderPermutation(pairing); order != nil {
		patches = append(patches, vnode.Patch{Kind: vnode.PatchReorderChildren, Path: clonePath(path), Order: order})
	}

	return patches, nil
}

func elementKey(n *vnode.VNode) string {
	if n == nil || n.Kind != vnode.KindElement {
		return ""
	}
	return n.Key
}

// reorderPermutation returns Order such that Order[newIndex] = oldIndex for
// every matched pair, or nil if the matched pairs are already in old-index
// order (a trivial, no-op permutation — §4.2 step 4 only emits
// ReorderChildren for a "non-trivial rearrangement").
func reorderPermutation(pairing []int) []int {
	matchedOld := make([]int, 0, len(pairing))
	for _, oi := range pairing {
		if oi != -1 {
			matchedOld = append(matchedOld, oi)
		}
	}
	trivial := true
	for i := 1; i < len(matchedOld); i++ {
		if matchedOld[i] <= matchedOld[i-1] {
			trivial = false
			break
		}
	}
	if trivial {
		return nil
	}
	order := make([]int, len(pairing))
	copy(order, pairing)
	return order
}
