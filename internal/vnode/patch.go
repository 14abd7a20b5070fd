package vnode

import (
	"encoding/json"
	"fmt"
)

// PatchKind discriminates the closed set of patch variants (§3.2). The tag
// set is closed deliberately (§9): the transport contract is closed, so
// dispatch on Kind is always exhaustive.
type PatchKind int

const (
	PatchCreate PatchKind = iota
	PatchRemove
	PatchReplace
	PatchUpdateText
	PatchUpdateProps
	PatchReorderChildren
	PatchUpdateTextTemplate
	PatchUpdatePropsTemplate
	PatchUpdateListTemplate
	PatchAppendTemplate
)

func (k PatchKind) String() string {
	switch k {
	case PatchCreate:
		return "create"
	case PatchRemove:
		return "remove"
	case PatchReplace:
		return "replace"
	case PatchUpdateText:
		return "update_text"
	case PatchUpdateProps:
		return "update_props"
	case PatchReorderChildren:
		return "reorder_children"
	case PatchUpdateTextTemplate:
		return "update_text_template"
	case PatchUpdatePropsTemplate:
		return "update_props_template"
	case PatchUpdateListTemplate:
		return "update_list_template"
	case PatchAppendTemplate:
		return "append_template"
	default:
		return "unknown"
	}
}

// PropsDiff is the props-diff payload carried by UpdateProps: a name maps
// to either a new string value, or to a nil *string meaning "remove this
// attribute."
type PropsDiff map[string]*string

// Patch is a single structural or content mutation (§3.2). Path is always
// populated except where noted; which fields are meaningful depends on
// Kind — this mirrors the closed tagged-union shape the spec mandates
// rather than ten separate structs, matching the flat positional JSON
// records the teacher's diff package wrote to the wire.
type Patch struct {
	Kind PatchKind
	Path []int

	Node *VNode    // Create, Replace
	Text string    // UpdateText
	Props PropsDiff // UpdateProps

	// ReorderChildren: Order[newIndex] = oldIndex.
	Order []int

	// Template-backed patches (§3.3); Template/ListTemplate populated per Kind.
	AttrName      string // UpdatePropsTemplate
	TemplatePatch *TemplatePatch
	ListTemplate  *LoopTemplate
	ItemCount     int // AppendTemplate
}

// wirePatch is the §6.2 JSON transport record: a "type" discriminator plus
// the fields relevant to that variant, with DOM-space paths.
type wirePatch struct {
	Type  string         `json:"type"`
	Path  []int          `json:"path"`
	Node  *VNode         `json:"node,omitempty"`
	Text  string         `json:"text,omitempty"`
	Props PropsDiff      `json:"props,omitempty"`
	Order []int          `json:"order,omitempty"`

	AttrName      string         `json:"attr_name,omitempty"`
	TemplatePatch *TemplatePatch `json:"template,omitempty"`
	ListTemplate  *LoopTemplate  `json:"loop_template,omitempty"`
	ItemCount     int            `json:"count,omitempty"`
}

func (p Patch) MarshalJSON() ([]byte, error) {
	w := wirePatch{
		Type:          p.Kind.String(),
		Path:          p.Path,
		Node:          p.Node,
		Text:          p.Text,
		Props:         p.Props,
		Order:         p.Order,
		AttrName:      p.AttrName,
		TemplatePatch: p.TemplatePatch,
		ListTemplate:  p.ListTemplate,
		ItemCount:     p.ItemCount,
	}
	if w.Path == nil {
		w.Path = []int{}
	}
	return json.Marshal(w)
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var w wirePatch
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("vnode: unmarshal patch: %w", err)
	}
	kind, ok := patchKindFromString(w.Type)
	if !ok {
		return fmt.Errorf("vnode: unmarshal patch: unrecognized type %q", w.Type)
	}
	p.Kind = kind
	p.Path = w.Path
	p.Node = w.Node
	p.Text = w.Text
	p.Props = w.Props
	p.Order = w.Order
	p.AttrName = w.AttrName
	p.TemplatePatch = w.TemplatePatch
	p.ListTemplate = w.ListTemplate
	p.ItemCount = w.ItemCount
	return nil
}

func patchKindFromString(s string) (PatchKind, bool) {
	switch s {
	case "create":
		return PatchCreate, true
	case "remove":
		return PatchRemove, true
	case "replace":
		return PatchReplace, true
	case "update_text":
		return PatchUpdateText, true
	case "update_props":
		return PatchUpdateProps, true
	case "reorder_children":
		return PatchReorderChildren, true
	case "update_text_template":
		return PatchUpdateTextTemplate, true
	case "update_props_template":
		return PatchUpdatePropsTemplate, true
	case "update_list_template":
		return PatchUpdateListTemplate, true
	case "append_template":
		return PatchAppendTemplate, true
	default:
		return 0, false
	}
}
