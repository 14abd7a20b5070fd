package predictor

import (
	"log"
	"strconv"
	"strings"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// extractCompilerSupplied looks up a pre-built template for the exact state
// key from the host's compiler metadata (§4.5.1.1 — the highest-fidelity,
// zero-heuristic path).
func extractCompilerSupplied(metadata *vnode.TemplateMap, stateKey string) *TemplateRecord {
	if metadata == nil {
		return nil
	}
	if lt, ok := metadata.LoopTemplates[stateKey]; ok {
		return &TemplateRecord{Kind: TemplateKindLoop, Loop: lt, Source: vnode.SuppliedByCompiler}
	}
	if ce, ok := metadata.ConditionalElements[stateKey]; ok {
		return &TemplateRecord{Kind: TemplateKindConditional, Conditional: ce, Source: vnode.SuppliedByCompiler}
	}
	if tp, ok := metadata.Templates[stateKey]; ok {
		return &TemplateRecord{Kind: TemplateKindText, Text: tp, Source: vnode.SuppliedByCompiler}
	}
	return nil
}

// extractFromSinglePatch handles §4.5.1.3: when exactly one UpdateText or
// UpdateProps patch resulted from the change, try to express its new
// content as a template parameterized on the changed state key (and any
// other currently-known state values whose string form appears verbatim in
// the new text/attribute value).
func extractFromSinglePatch(patch vnode.Patch, stateKey string, newValue any, allState map[string]any) (*TemplateRecord, bool) {
	switch patch.Kind {
	case vnode.PatchUpdateText:
		tp, ok := buildTextTemplate(patch.Text, stateKey, newValue, allState)
		if !ok {
			return nil, false
		}
		return &TemplateRecord{Kind: TemplateKindText, Path: patch.Path, Text: tp, Source: vnode.ExtractedAtRuntime}, true
	case vnode.PatchUpdateProps:
		if len(patch.Props) != 1 {
			return nil, false
		}
		for name, val := range patch.Props {
			if val == nil {
				return nil, false
			}
			tp, ok := buildTextTemplate(*val, stateKey, newValue, allState)
			if !ok {
				return nil, false
			}
			return &TemplateRecord{Kind: TemplateKindAttr, Path: patch.Path, AttrName: name, Text: tp, Source: vnode.ExtractedAtRuntime}, true
		}
	}
	return nil, false
}

// buildTextTemplate finds every known state value whose rendered form is a
// substring of rendered, and replaces each occurrence with a `{n}`
// placeholder, recording the binding order. A value with zero matches means
// this text can't be templated (§4.5.1.3.a: a single opaque literal isn't a
// pattern).
func buildTextTemplate(rendered, stateKey string, newValue any, allState map[string]any) (*vnode.TemplatePatch, bool) {
	candidates := map[string]any{stateKey: newValue}
	for k, v := range allState {
		if k != stateKey {
			candidates[k] = v
		}
	}

	type match struct {
		name string
		lit  string
		pos  int
	}
	var matches []match
	for name, v := range candidates {
		lit := renderScalar(v)
		if lit == "" {
			continue
		}
		if pos := strings.Index(rendered, lit); pos >= 0 {
			matches = append(matches, match{name: name, lit: lit, pos: pos})
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	// Earliest-position first, so the template string is built left to
	// right; ties keep map iteration's arbitrary order (flagged below).
	for i := 0; i < len(matches); i++ {
		for j := i + 1; j < len(matches); j++ {
			if matches[j].pos < matches[i].pos {
				matches[i], matches[j] = matches[j], matches[i]
			}
		}
	}

	ambiguous := false
	var b strings.Builder
	var bindings []string
	var slots []int
	cursor := 0
	for _, m := range matches {
		if m.pos < cursor {
			// Overlaps an already-consumed region (e.g. one value's
			// literal is a substring of another's) — skip rather than
			// double-bind the same characters.
			ambiguous = true
			continue
		}
		b.WriteString(rendered[cursor:m.pos])
		bindings = append(bindings, m.name)
		slots = append(slots, b.Len()) // byte offset where the placeholder begins
		b.WriteString("{" + strconv.Itoa(len(bindings)-1) + "}")
		cursor = m.pos + len(m.lit)
	}
	b.WriteString(rendered[cursor:])

	return &vnode.TemplatePatch{
		Template:  b.String(),
		Bindings:  bindings,
		Slots:     slots,
		Ambiguous: ambiguous,
	}, true
}

// buildConditionalTextTemplate finds the common prefix/suffix shared by
// oldText and newText and treats the differing middle chunk as the value
// substituted for stateKey's two boolean states (§8 S5). Returns false when
// the texts are identical or share no static framing at all (both signal
// this isn't a simple ternary-in-text shape).
func buildConditionalTextTemplate(oldText, newText, stateKey string, oldBool, newBool bool) (*vnode.TemplatePatch, bool) {
	if oldText == newText {
		return nil, false
	}

	prefix := commonPrefixLen(oldText, newText)
	suffix := commonSuffixLen(oldText[prefix:], newText[prefix:])

	oldMiddle := oldText[prefix : len(oldText)-suffix]
	newMiddle := newText[prefix : len(newText)-suffix]
	if oldMiddle == newMiddle {
		return nil, false
	}

	template := oldText[:prefix] + "{0}" + oldText[len(oldText)-suffix:]
	return &vnode.TemplatePatch{
		Template:                template,
		Bindings:                []string{stateKey},
		Slots:                   []int{prefix},
		HasConditional:          true,
		ConditionalBindingIndex: 0,
		ConditionalTemplates: map[string]string{
			strconv.FormatBool(oldBool): oldMiddle,
			strconv.FormatBool(newBool): newMiddle,
		},
	}, true
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func renderScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

// extractLoopTemplate handles §4.5.1.2: the new value is an array, and the
// observed patches describe a list of sibling elements/text nodes sharing a
// container path. The per-item structural shape is inferred from the first
// array element's rendered subtree (itemNode) by substituting any scalar
// field of item that appears verbatim in the subtree with a binding; callers
// pass arrayValue starting at the element itemNode was rendered from.
func extractLoopTemplate(stateKey string, arrayValue []any, containerPath []int, itemNode *vnode.VNode, logger *log.Logger) (*TemplateRecord, bool) {
	if len(arrayValue) == 0 {
		return nil, false
	}
	item, ok := arrayValue[0].(map[string]any)
	if !ok {
		return nil, false
	}

	// ambiguous flags (per §9 Open Question 1) already live on the nested
	// ItemTemplate's TextTemplate/PropsTemplates entries; nothing further to
	// record at the loop-template level itself.
	it, _ := buildItemTemplate(itemNode, item, logger)
	if it == nil {
		return nil, false
	}

	lt := &vnode.LoopTemplate{ArrayBinding: stateKey, ItemTemplate: it}
	return &TemplateRecord{
		Kind:   TemplateKindLoop,
		Path:   containerPath,
		Loop:   lt,
		Source: vnode.ExtractedAtRuntime,
	}, true
}

// itemBindingPrefix namespaces bindings resolved from the loop item's own
// fields (as opposed to outer component state), matching the spec's
// "item.field" binding-name convention (§8 S3).
const itemBindingPrefix = "item."

func prefixBindings(tp *vnode.TemplatePatch) *vnode.TemplatePatch {
	for i, b := range tp.Bindings {
		tp.Bindings[i] = itemBindingPrefix + b
	}
	return tp
}

func buildItemTemplate(node *vnode.VNode, item map[string]any, logger *log.Logger) (*vnode.ItemTemplate, bool) {
	if node == nil {
		return nil, false
	}
	if node.IsText() {
		tp, ok := buildTextTemplate(node.Text, "", nil, item)
		if !ok {
			return &vnode.ItemTemplate{Kind: vnode.ItemTemplateText, TextTemplate: &vnode.TemplatePatch{Template: node.Text}}, false
		}
		tp = prefixBindings(tp)
		return &vnode.ItemTemplate{Kind: vnode.ItemTemplateText, TextTemplate: tp}, tp.Ambiguous
	}

	propsTemplates := make(map[string]*vnode.TemplatePatch)
	for name, val := range node.Props {
		if tp, ok := buildTextTemplate(val, "", nil, item); ok {
			propsTemplates[name] = prefixBindings(tp)
		}
	}

	ambiguous := false
	childTemplates := make([]*vnode.ItemTemplate, 0, len(node.Children))
	for _, c := range node.Children {
		if c == nil {
			childTemplates = append(childTemplates, nil)
			continue
		}
		ct, amb := buildItemTemplate(c, item, logger)
		ambiguous = ambiguous || amb
		childTemplates = append(childTemplates, ct)
	}

	keyBinding := itemKeyBinding(node.Key, item, logger)

	return &vnode.ItemTemplate{
		Kind:              vnode.ItemTemplateElement,
		Tag:               node.Tag,
		PropsTemplates:    propsTemplates,
		ChildrenTemplates: childTemplates,
		KeyBinding:        keyBinding,
	}, ambiguous
}

// itemKeyBinding detects which item property's value matches the VNode key
// (§4.5.1.2). Keys are frequently non-string in the item's own data (a JSON
// number, for instance) even though the VNode key itself is always the
// string the reconciler rendered it as, so a direct string-equality match
// will often legitimately find nothing; item.id is the documented fallback,
// logged since it is a guess rather than an observed correspondence.
func itemKeyBinding(key string, item map[string]any, logger *log.Logger) string {
	for name, val := range item {
		if s, ok := val.(string); ok && s == key {
			return itemBindingPrefix + name
		}
	}
	if _, ok := item["id"]; ok {
		if logger != nil {
			logger.Printf("loop item key binding: no property matched VNode key %q, falling back to item.id", key)
		}
		return itemBindingPrefix + "id"
	}
	return ""
}

// extractConditional builds a conditional-element template record from a
// single Create/Remove patch plus the host-declared expression for this
// state key (§4.5.1.4). The simulator fills in PathVariants separately;
// here we only capture the expression, bindings, and authored subtree.
func extractConditional(stateKey, expression string, conditionBindings []string, conditionMapping map[string]string, path []int, authored *vnode.VNode) *TemplateRecord {
	return &TemplateRecord{
		Kind: TemplateKindConditional,
		Path: path,
		Conditional: &vnode.ConditionalElementTemplate{
			ConditionExpression: expression,
			ConditionBindings:   conditionBindings,
			ConditionMapping:    conditionMapping,
		},
		AuthoredNode: authored,
		Source:       vnode.ExtractedAtRuntime,
	}
}
