package vnode

import (
	"encoding/json"
	"fmt"
)

// wireNode is the JSON shape a VNode round-trips through. It mirrors the
// transport records described in §6.2: a "kind" discriminator plus the
// fields relevant to that variant.
type wireNode struct {
	Kind     string            `json:"kind"`
	Tag      string            `json:"tag,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*VNode          `json:"children,omitempty"`
	Key      string            `json:"key,omitempty"`
	Text     string            `json:"text,omitempty"`
}

// MarshalJSON implements json.Marshaler. encoding/json never invokes this
// for a nil *VNode (it writes "null" directly), which is exactly the
// behavior a null child slot needs.
func (n *VNode) MarshalJSON() ([]byte, error) {
	w := wireNode{Key: n.Key, Children: n.Children}
	switch n.Kind {
	case KindElement:
		w.Kind = "element"
		w.Tag = n.Tag
		w.Props = n.Props
	case KindText:
		w.Kind = "text"
		w.Text = n.Text
	default:
		return nil, fmt.Errorf("vnode: marshal: unknown kind %d", n.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *VNode) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("vnode: unmarshal: %w", err)
	}
	switch w.Kind {
	case "element":
		n.Kind = KindElement
		n.Tag = w.Tag
		n.Props = w.Props
		n.Children = w.Children
		n.Key = w.Key
	case "text":
		n.Kind = KindText
		n.Text = w.Text
	default:
		return fmt.Errorf("vnode: unmarshal: unrecognized kind %q", w.Kind)
	}
	return nil
}

// Construct builds a VNode from its serialized (JSON) representation, per
// the §4.1 public contract.
func Construct(data []byte) (*VNode, error) {
	var n VNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("vnode: construct: %w", err)
	}
	return &n, nil
}

// Serialize is the inverse of Construct.
func Serialize(n *VNode) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("vnode: serialize: %w", err)
	}
	return data, nil
}
