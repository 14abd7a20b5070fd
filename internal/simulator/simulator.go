// Package simulator implements the Conditional Path Simulator (§4.4): for
// every conditionally-rendered element, it pre-computes a mapping from a
// reachable combination of its guard-chain's boolean gates to the DOM path
// the element occupies when visible (or to absence).
package simulator

import (
	"fmt"

	"github.com/minimact/minimact-sub000/internal/boolexpr"
	"github.com/minimact/minimact-sub000/internal/pathadjust"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

// Site describes one conditionally-rendered element for simulation
// purposes. Path is its VNode-space position in the canonical tree — the
// tree as if every conditional along the chain evaluated true, which is
// what a component compiler can emit statically without observing any
// particular render. This is the supplemented mechanism DESIGN.md describes
// to make simulation well-defined independent of which combination happened
// to be live when the tree snapshot was taken: §3.3 does
// not itemize where the "authored child subtree" comes from, so the
// canonical, always-expanded tree is what Simulate is handed.
type Site struct {
	ID       string
	Path     []int
	ParentID string
	Template *vnode.ConditionalElementTemplate
}

// Simulate populates PathVariants on every site's Template. Sites whose
// ConditionExpression falls outside the restricted grammar are marked
// StaticallyEvaluable=false and left without PathVariants entries (§7
// Simulator-unreachable-expression). Their descendant sites are not
// simulated either: the whole subtree under such a site is skipped, and
// its sites' PathVariants stay empty.
func Simulate(canonical *vnode.VNode, sites []*Site) error {
	byID := make(map[string]*Site, len(sites))
	children := make(map[string][]*Site)
	var roots []*Site
	for _, s := range sites {
		if s.Template == nil {
			return fmt.Errorf("simulator: site %q has no template", s.ID)
		}
		byID[s.ID] = s
		if s.ParentID == "" {
			roots = append(roots, s)
		} else {
			children[s.ParentID] = append(children[s.ParentID], s)
		}
	}

	parsed := make(map[string]*boolexpr.Expr, len(sites))
	for _, s := range sites {
		ast, err := boolexpr.Parse(s.Template.ConditionExpression)
		if err != nil {
			s.Template.StaticallyEvaluable = false
			s.Template.PathVariants = nil
			continue
		}
		s.Template.StaticallyEvaluable = true
		s.Template.PathVariants = make(map[string][]int)
		parsed[s.ID] = ast
	}

	for _, root := range roots {
		if _, ok := parsed[root.ID]; !ok {
			continue
		}
		simulateChain(canonical, root, children, parsed, map[string]bool{})
	}
	return nil
}

func simulateChain(tree *vnode.VNode, node *Site, children map[string][]*Site, parsed map[string]*boolexpr.Expr, base map[string]bool) {
	ast := parsed[node.ID]
	own := boolexpr.Bindings(ast)

	var fresh []string
	for _, b := range own {
		if _, ok := base[b]; !ok {
			fresh = append(fresh, b)
		}
	}

	for _, combo := range allAssignments(fresh) {
		full := mergeAssignments(base, combo)

		ok, err := boolexpr.Eval(ast, full)
		if err != nil {
			// own bindings are all present in full by construction; this
			// should not happen, but never silently fabricate a path.
			continue
		}

		sig := boolexpr.Signature(full)

		if !ok {
			node.Template.PathVariants[sig] = nil
			markDescendantsUnreachable(node, children, parsed, sig)
			continue
		}

		domPath, invisible, err := pathadjust.Adjust(tree, node.Path)
		if err != nil || invisible {
			node.Template.PathVariants[sig] = nil
		} else {
			node.Template.PathVariants[sig] = domPath
		}

		for _, child := range children[node.ID] {
			if _, ok := parsed[child.ID]; ok {
				simulateChain(tree, child, children, parsed, full)
			}
		}
	}
}

// markDescendantsUnreachable records sig -> nil on every statically
// evaluable descendant of node, recursively. An ancestor's false combo
// prunes the whole subtree below it, so every descendant site must also
// carry an entry for that signature (§4.4's "for every combination"
// invariant), not just the ancestor whose own condition failed.
func markDescendantsUnreachable(node *Site, children map[string][]*Site, parsed map[string]*boolexpr.Expr, sig string) {
	for _, child := range children[node.ID] {
		if _, ok := parsed[child.ID]; !ok {
			continue
		}
		child.Template.PathVariants[sig] = nil
		markDescendantsUnreachable(child, children, parsed, sig)
	}
}

// allAssignments enumerates every boolean assignment of names. An empty
// names slice yields a single, empty assignment.
func allAssignments(names []string) []map[string]bool {
	if len(names) == 0 {
		return []map[string]bool{{}}
	}
	total := 1 << len(names)
	out := make([]map[string]bool, 0, total)
	for mask := 0; mask < total; mask++ {
		assignment := make(map[string]bool, len(names))
		for i, name := range names {
			assignment[name] = mask&(1<<i) != 0
		}
		out = append(out, assignment)
	}
	return out
}

func mergeAssignments(base, extra map[string]bool) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
