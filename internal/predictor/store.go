package predictor

import (
	"fmt"
	"sync"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// PatternKey is the coarse identifier grouping observations of "this state
// key changed to a value of this type" (§3.4, §4.5.1 step 2, GLOSSARY).
//
// SPEC_FULL resolves the join operator spec.md leaves unspecified: an ASCII
// unit separator (\x1f), since component IDs and state keys are
// host-controlled and may legitimately contain ':' or '.'.
type PatternKey string

const keySep = "\x1f"

// NewPatternKey derives the pattern key for a state change.
func NewPatternKey(componentID, stateKey string, newValue any) PatternKey {
	return PatternKey(componentID + keySep + stateKey + keySep + typeTag(newValue))
}

func typeTag(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, int, int32, int64, float32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("go:%T", v)
	}
}

// ConcreteRecord is the fallback prediction: the literal patches observed
// the last time this pattern key was learned.
type ConcreteRecord struct {
	Patches                                  []vnode.Patch
	UsageCount, CorrectCount, IncorrectCount int64
}

// TemplateKind discriminates the four template shapes a TemplateRecord can
// hold.
type TemplateKind int

const (
	TemplateKindText TemplateKind = iota
	TemplateKindAttr
	TemplateKindLoop
	TemplateKindConditional
)

// TemplateRecord is a stored, parameterized prediction (§3.4).
type TemplateRecord struct {
	Kind TemplateKind
	Path []int

	Text     *vnode.TemplatePatch // TemplateKindText, TemplateKindAttr
	AttrName string               // TemplateKindAttr

	Loop *vnode.LoopTemplate // TemplateKindLoop

	Conditional     *vnode.ConditionalElementTemplate // TemplateKindConditional
	AuthoredNode    *vnode.VNode                       // captured at learn time, for Create materialization
	LastKnownDOMPath []int                             // for Remove fallback when the element becomes unreachable

	Source                                   vnode.TemplateSource
	UsageCount, CorrectCount, IncorrectCount int64
	Demoted                                  bool
}

type predictionKind int

const (
	predictionNone predictionKind = iota
	predictionTemplate
	predictionConcrete
)

// Store is the per-component pattern store (§3.4). Lifecycle: it lives for
// the life of the component registration and is never automatically
// evicted (eviction is a host policy knob, per §9).
type Store struct {
	mu sync.RWMutex

	concrete  map[PatternKey]*ConcreteRecord
	templates map[PatternKey]*TemplateRecord

	lastKnownValues map[string]any

	// lastPrediction tracks which record type satisfied the most recent
	// Predict call for a key, so Confirm/Refute know where to apply
	// counters without the host having to say which kind it was.
	lastPrediction map[PatternKey]predictionKind
}

// NewStore creates an empty pattern store.
func NewStore() *Store {
	return &Store{
		concrete:        make(map[PatternKey]*ConcreteRecord),
		templates:       make(map[PatternKey]*TemplateRecord),
		lastKnownValues: make(map[string]any),
		lastPrediction:  make(map[PatternKey]predictionKind),
	}
}

func (s *Store) setLastKnownValue(stateKey string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownValues[stateKey] = value
}

// LastKnownValues returns a snapshot of all values observed via learn.
func (s *Store) LastKnownValues() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.lastKnownValues))
	for k, v := range s.lastKnownValues {
		out[k] = v
	}
	return out
}

func (s *Store) storeConcrete(key PatternKey, patches []vnode.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.concrete[key]; ok {
		rec.Patches = patches
		return
	}
	s.concrete[key] = &ConcreteRecord{Patches: patches}
}

// storeTemplate applies the §4.5.1 idempotence rule: a compiler-supplied
// re-extraction replaces a runtime-extracted template, a runtime one never
// replaces a compiler-supplied one, and otherwise a re-extraction replaces
// the stored template when it has at least as many bindings. A replacement
// keeps the usage counters and starts out not demoted.
func (s *Store) storeTemplate(key PatternKey, rec *TemplateRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templates[key]
	if !ok {
		s.templates[key] = rec
		return
	}
	if mergeConditionalTemplates(existing, rec) {
		return
	}
	if subsumes(rec, existing) {
		rec.UsageCount = existing.UsageCount
		rec.CorrectCount = existing.CorrectCount
		rec.IncorrectCount = existing.IncorrectCount
		s.templates[key] = rec
	}
}

// mergeConditionalTemplates handles the case a single boolean pattern key
// has already learned one branch of a ternary-in-text template (§8 S5) and
// a later learn call observes the other branch: rather than replacing the
// stored template, fold the new branch's literal into its
// ConditionalTemplates map so both branches predict correctly afterward.
func mergeConditionalTemplates(existing, candidate *TemplateRecord) bool {
	if existing.Kind != candidate.Kind || (existing.Kind != TemplateKindText && existing.Kind != TemplateKindAttr) {
		return false
	}
	if existing.Text == nil || candidate.Text == nil || !existing.Text.HasConditional || !candidate.Text.HasConditional {
		return false
	}
	if existing.Text.Template != candidate.Text.Template {
		return false
	}
	for k, v := range candidate.Text.ConditionalTemplates {
		existing.Text.ConditionalTemplates[k] = v
	}
	return true
}

func subsumes(candidate, existing *TemplateRecord) bool {
	if candidate.Source == vnode.SuppliedByCompiler && existing.Source != vnode.SuppliedByCompiler {
		return true
	}
	if existing.Source == vnode.SuppliedByCompiler && candidate.Source != vnode.SuppliedByCompiler {
		return false
	}
	return bindingCount(candidate) >= bindingCount(existing)
}

func bindingCount(rec *TemplateRecord) int {
	switch rec.Kind {
	case TemplateKindText, TemplateKindAttr:
		if rec.Text == nil {
			return 0
		}
		return len(rec.Text.Bindings)
	case TemplateKindLoop:
		return 1
	case TemplateKindConditional:
		if rec.Conditional == nil {
			return 0
		}
		return len(rec.Conditional.ConditionBindings)
	default:
		return 0
	}
}

func (s *Store) template(key PatternKey) (*TemplateRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.templates[key]
	return rec, ok
}

func (s *Store) concreteRecord(key PatternKey) (*ConcreteRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.concrete[key]
	return rec, ok
}

func (s *Store) bumpTemplateUsage(key PatternKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.templates[key]; ok {
		rec.UsageCount++
	}
}

func (s *Store) bumpConcreteUsage(key PatternKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.concrete[key]; ok {
		rec.UsageCount++
	}
}

func (s *Store) markPrediction(key PatternKey, kind predictionKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrediction[key] = kind
}

// Confirm records an accurate prediction for key (§4.5.3).
func (s *Store) Confirm(key PatternKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.lastPrediction[key] {
	case predictionTemplate:
		if rec, ok := s.templates[key]; ok {
			rec.CorrectCount++
		}
	case predictionConcrete:
		if rec, ok := s.concrete[key]; ok {
			rec.CorrectCount++
		}
	}
}

// Refute records an inaccurate prediction for key and demotes the template
// (if any) once it crosses the configured error-rate threshold.
func (s *Store) Refute(key PatternKey, demotionRatio float64, minUses int64) (demoted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.lastPrediction[key] {
	case predictionTemplate:
		rec, ok := s.templates[key]
		if !ok {
			return false
		}
		rec.IncorrectCount++
		if rec.UsageCount >= minUses && float64(rec.IncorrectCount)/float64(rec.UsageCount) > demotionRatio {
			rec.Demoted = true
			return true
		}
	case predictionConcrete:
		if rec, ok := s.concrete[key]; ok {
			rec.IncorrectCount++
		}
	}
	return false
}
