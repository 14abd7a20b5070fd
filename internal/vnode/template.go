package vnode

// TemplateSource tags where a stored template prediction came from (§3.4).
type TemplateSource int

const (
	ExtractedAtRuntime TemplateSource = iota
	SuppliedByCompiler
	CompilerRefined
)

func (s TemplateSource) String() string {
	switch s {
	case ExtractedAtRuntime:
		return "extracted_at_runtime"
	case SuppliedByCompiler:
		return "supplied_by_compiler"
	case CompilerRefined:
		return "compiler_refined"
	default:
		return "unknown"
	}
}

// TemplatePatch is a parameterized text or attribute template (§3.3).
//
// Invariant: len(Bindings) == len(Slots) == the count of distinct
// placeholders in Template. If ConditionalTemplates is set,
// ConditionalBindingIndex must index a valid binding, and that binding must
// resolve to a value renderable as one of ConditionalTemplates' keys.
type TemplatePatch struct {
	Template string   `json:"template"`
	Bindings []string `json:"bindings"`
	Slots    []int    `json:"slots"`

	ConditionalTemplates    map[string]string `json:"conditional_templates,omitempty"`
	ConditionalBindingIndex int               `json:"conditional_binding_index,omitempty"`
	HasConditional          bool              `json:"has_conditional,omitempty"`

	// Ambiguous records whether the loop-extraction heuristic that produced
	// this template (§4.5.1.3.b, §9 Open Question 1) found more than one
	// array-item property matching the same text position. First match
	// still wins; this only flags the decision for later refinement.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// ItemTemplate is a recursive per-item structure used by LoopTemplate.
// Exactly one of Text/Element fields is meaningful, selected by Kind.
type ItemTemplate struct {
	Kind ItemTemplateKind `json:"kind"`

	// Text variant.
	TextTemplate *TemplatePatch `json:"text_template,omitempty"`

	// Element variant.
	Tag               string                    `json:"tag,omitempty"`
	PropsTemplates     map[string]*TemplatePatch `json:"props_templates,omitempty"`
	ChildrenTemplates  []*ItemTemplate           `json:"children_templates,omitempty"`
	KeyBinding         string                    `json:"key_binding,omitempty"`
}

// ItemTemplateKind discriminates ItemTemplate's two variants.
type ItemTemplateKind int

const (
	ItemTemplateText ItemTemplateKind = iota
	ItemTemplateElement
)

// LoopTemplate is a parameterized list template (§3.3).
type LoopTemplate struct {
	ArrayBinding string        `json:"array_binding"`
	ItemTemplate *ItemTemplate `json:"item_template"`
	IndexVar     string        `json:"index_var,omitempty"`
	Separator    string        `json:"separator,omitempty"`
}

// ConditionalElementTemplate is a parameterized structural template for a
// conditionally-rendered element (§3.3, §4.4).
//
// Invariant: for every combination of booleans enumerated over
// ConditionBindings, PathVariants must contain an entry keyed by that
// combination's canonical signature, whose value is nil iff the element is
// absent from the rendered DOM under that combination.
type ConditionalElementTemplate struct {
	ConditionExpression string            `json:"condition_expression"`
	ConditionBindings   []string          `json:"condition_bindings"`
	ConditionMapping    map[string]string `json:"condition_mapping"`
	ParentTemplate      string            `json:"parent_template,omitempty"`

	// PathVariants maps a canonical state signature (see the simulator
	// package) to a DOM path, or to a nil slice when the element is
	// unreachable under that combination.
	PathVariants map[string][]int `json:"path_variants"`

	// StaticallyEvaluable is false once the Simulator finds a condition
	// expression outside the restricted grammar (§7 Simulator-unreachable-
	// expression); PathVariants is then left unpopulated and the element
	// falls through to reactive reconciliation only.
	StaticallyEvaluable bool `json:"statically_evaluable"`
}

// TemplateMap is the host's component-compiler metadata contract (§6.3).
type TemplateMap struct {
	ComponentName string `json:"component_name" validate:"required"`
	Version       string `json:"version" validate:"required"`
	GeneratedAt   int64  `json:"generated_at" validate:"required"`

	Templates          map[string]*TemplatePatch              `json:"templates,omitempty"`
	ConditionalElements map[string]*ConditionalElementTemplate `json:"conditional_elements,omitempty"`
	LoopTemplates       map[string]*LoopTemplate               `json:"loop_templates,omitempty"`
}
