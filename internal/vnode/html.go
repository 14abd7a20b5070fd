package vnode

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML builds a VNode tree from a fragment of rendered markup. This is
// an alternative entry point to Construct: a host that only has the
// rendered HTML for a component (no JSON-serialized tree) can still obtain
// a VNode to diff against. Grounded on the teacher's DOMParser, which walks
// golang.org/x/net/html's node tree the same way.
//
// The fragment is parsed as if it were the children of a <div>; the
// top-level nodes, even a single one, are always wrapped in a synthetic
// <div> root Element so callers always get a single VNode back.
func FromHTML(fragment string) (*VNode, error) {
	context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("vnode: parse html fragment: %w", err)
	}

	children := make([]*VNode, 0, len(nodes))
	for _, n := range nodes {
		if v := convertNode(n); v != nil {
			children = append(children, v)
		}
	}
	return NewElement("div", nil, children), nil
}

// convertNode mirrors the teacher's convertNode: element nodes become
// Element VNodes with their attributes folded into Props and their
// children recursively converted; text nodes become Text VNodes unless
// they are pure inter-element whitespace, which is dropped rather than
// treated as a meaningful null slot (HTML has no first-class null child —
// only the JSON construction path produces those).
func convertNode(n *html.Node) *VNode {
	switch n.Type {
	case html.ElementNode:
		props := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			props[a.Key] = a.Val
		}
		var children []*VNode
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if v := convertNode(c); v != nil {
				children = append(children, v)
			}
		}
		key := props["key"]
		delete(props, "key")
		if len(props) == 0 {
			props = nil
		}
		return &VNode{Kind: KindElement, Tag: n.Data, Props: props, Children: children, Key: key}
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return NewText(n.Data)
	default:
		// Comments, doctype, document nodes carry no VNode representation.
		return nil
	}
}
