// Package pathadjust converts VNode-space paths (which count null children)
// to DOM-space paths (which do not), per §4.3. It is pure and depends only
// on its inputs, like the reconciler.
package pathadjust

import (
	"errors"
	"fmt"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// ErrInvisible names the case of a path that descends through a null
// child: the patch targets an element not currently in the DOM. Per §4.3
// this is not an error condition for the host — it means the patch was
// stale or was generated against a hypothetical tree — so Adjust does not
// return this error; it reports the case distinctly as (nil, true, nil) so
// callers can drop the patch rather than send a malformed DOM path.
var ErrInvisible = errors.New("pathadjust: path descends through a null child")

// Adjust converts a VNode-space path against reference (the post-render
// tree) into a DOM-space path. If the path is invisible (descends through
// a null child), it returns (nil, true, nil); the caller drops the patch
// rather than treating this as a failure.
func Adjust(reference *vnode.VNode, path []int) (domPath []int, invisible bool, err error) {
	domPath = make([]int, 0, len(path))
	cur := reference

	for depth, step := range path {
		if cur == nil || cur.Kind != vnode.KindElement {
			return nil, false, fmt.Errorf("pathadjust: step %d: %w", depth, vnode.ErrNotElement)
		}
		if step < 0 || step >= len(cur.Children) {
			return nil, false, fmt.Errorf("pathadjust: step %d: %w", depth, vnode.ErrOutOfBounds)
		}

		nullsBefore := 0
		for i := 0; i < step; i++ {
			if cur.Children[i] == nil {
				nullsBefore++
			}
		}
		domPath = append(domPath, step-nullsBefore)

		child := cur.Children[step]
		if child == nil {
			return nil, true, nil
		}
		cur = child
	}

	return domPath, false, nil
}
