package predictor

import (
	"bytes"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/minimact/minimact-sub000/internal/config"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

func textDiv(text string) *vnode.VNode {
	return vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText(text)})
}

// S1: a counter's text template, learned from one observation, predicts
// correctly for a value never seen before.
func TestLearnAndPredictCounterTextTemplate(t *testing.T) {
	p := New(nil, nil)

	old := textDiv("Count: 0")
	next := textDiv("Count: 1")
	change := StateChange{ComponentID: "c1", StateKey: "count", OldValue: float64(0), NewValue: float64(1)}

	patches, err := p.Learn(change, old, next, map[string]any{"count": float64(1)}, nil)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if len(patches) != 1 || patches[0].Kind != vnode.PatchUpdateText || patches[0].Text != "Count: 1" {
		t.Fatalf("unexpected learn output: %+v", patches)
	}

	predictChange := StateChange{ComponentID: "c1", StateKey: "count", NewValue: float64(2)}
	predicted, ok, err := p.Predict(predictChange, map[string]any{"count": float64(2)})
	if err != nil || !ok {
		t.Fatalf("predict: ok=%v err=%v", ok, err)
	}
	if len(predicted) != 1 || predicted[0].Kind != vnode.PatchUpdateText || predicted[0].Text != "Count: 2" {
		t.Fatalf("unexpected prediction: %+v", predicted)
	}
}

// S3: appending to a todo list extracts a loop template, and predicting a
// longer list replays as a single UpdateListTemplate patch.
func TestLearnExtractsLoopTemplate(t *testing.T) {
	p := New(nil, nil)

	list := vnode.NewElement("ul", nil, []*vnode.VNode{
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("A")}, "1"),
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("B")}, "2"),
	})
	old := vnode.NewElement("div", nil, []*vnode.VNode{list})

	nextList := vnode.NewElement("ul", nil, []*vnode.VNode{
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("A")}, "1"),
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("B")}, "2"),
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("C")}, "3"),
	})
	next := vnode.NewElement("div", nil, []*vnode.VNode{nextList})

	oldTodos := []any{
		map[string]any{"id": "1", "text": "A"},
		map[string]any{"id": "2", "text": "B"},
	}
	newTodos := []any{
		map[string]any{"id": "1", "text": "A"},
		map[string]any{"id": "2", "text": "B"},
		map[string]any{"id": "3", "text": "C"},
	}
	change := StateChange{ComponentID: "c1", StateKey: "todos", OldValue: oldTodos, NewValue: newTodos}

	if _, err := p.Learn(change, old, next, map[string]any{"todos": newTodos}, nil); err != nil {
		t.Fatalf("learn: %v", err)
	}

	key := NewPatternKey("c1", "todos", newTodos)
	rec, ok := p.store.template(key)
	if !ok {
		t.Fatalf("expected a stored loop template")
	}
	if rec.Kind != TemplateKindLoop || rec.Loop == nil {
		t.Fatalf("expected loop template, got %+v", rec)
	}
	if rec.Loop.ArrayBinding != "todos" {
		t.Fatalf("expected array binding todos, got %q", rec.Loop.ArrayBinding)
	}
	if rec.Loop.ItemTemplate == nil || rec.Loop.ItemTemplate.Tag != "li" {
		t.Fatalf("expected li item template, got %+v", rec.Loop.ItemTemplate)
	}

	longerTodos := []any{
		map[string]any{"id": "1", "text": "A"},
		map[string]any{"id": "2", "text": "B"},
		map[string]any{"id": "3", "text": "C"},
		map[string]any{"id": "4", "text": "D"},
	}
	predictChange := StateChange{ComponentID: "c1", StateKey: "todos", NewValue: longerTodos}
	predicted, ok, err := p.Predict(predictChange, map[string]any{"todos": longerTodos})
	if err != nil || !ok {
		t.Fatalf("predict: ok=%v err=%v", ok, err)
	}
	if len(predicted) != 1 || predicted[0].Kind != vnode.PatchUpdateListTemplate {
		t.Fatalf("expected a single UpdateListTemplate patch, got %+v", predicted)
	}
}

// A loop item keyed by a JSON-numeric id (so no item property ever
// string-equals the VNode's own string key) falls back to item.id and logs
// a warning, per §4.5.1.2.
func TestLearnExtractsLoopTemplateKeyFallsBackToItemID(t *testing.T) {
	var logs bytes.Buffer
	p := New(config.DefaultConfig(), log.New(&logs, "", 0))

	list := vnode.NewElement("ul", nil, []*vnode.VNode{
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("A")}, "1"),
	})
	old := vnode.NewElement("div", nil, []*vnode.VNode{list})

	nextList := vnode.NewElement("ul", nil, []*vnode.VNode{
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("A")}, "1"),
		vnode.NewKeyedElement("li", nil, []*vnode.VNode{vnode.NewText("B")}, "2"),
	})
	next := vnode.NewElement("div", nil, []*vnode.VNode{nextList})

	// ids decoded from JSON land as float64, never as the string the
	// reconciler keyed the VNode with.
	oldItems := []any{map[string]any{"id": float64(1), "text": "A"}}
	newItems := []any{
		map[string]any{"id": float64(1), "text": "A"},
		map[string]any{"id": float64(2), "text": "B"},
	}
	change := StateChange{ComponentID: "c1", StateKey: "items", OldValue: oldItems, NewValue: newItems}

	if _, err := p.Learn(change, old, next, map[string]any{"items": newItems}, nil); err != nil {
		t.Fatalf("learn: %v", err)
	}

	key := NewPatternKey("c1", "items", newItems)
	rec, ok := p.store.template(key)
	if !ok || rec.Kind != TemplateKindLoop || rec.Loop == nil || rec.Loop.ItemTemplate == nil {
		t.Fatalf("expected a stored loop template, got %+v", rec)
	}
	if got := rec.Loop.ItemTemplate.KeyBinding; got != "item.id" {
		t.Fatalf("expected key binding to fall back to item.id, got %q", got)
	}
	if !strings.Contains(logs.String(), "item.id") {
		t.Fatalf("expected a fallback warning to be logged, got %q", logs.String())
	}
}

// S5: a ternary embedded in static text ("{isOn ? 'Hide' : 'Show'} Details")
// learns a conditional text template from two observations, one per branch.
func TestLearnExtractsConditionalTextTemplate(t *testing.T) {
	p := New(nil, nil)

	showOld := textDiv("Show Details")
	hideNew := textDiv("Hide Details")

	onChange := StateChange{ComponentID: "c1", StateKey: "isOn", OldValue: false, NewValue: true}
	if _, err := p.Learn(onChange, showOld, hideNew, map[string]any{"isOn": true}, nil); err != nil {
		t.Fatalf("learn (on): %v", err)
	}

	offChange := StateChange{ComponentID: "c1", StateKey: "isOn", OldValue: true, NewValue: false}
	if _, err := p.Learn(offChange, hideNew, showOld, map[string]any{"isOn": false}, nil); err != nil {
		t.Fatalf("learn (off): %v", err)
	}

	predictOn, ok, err := p.Predict(StateChange{ComponentID: "c1", StateKey: "isOn", NewValue: true}, map[string]any{"isOn": true})
	if err != nil || !ok {
		t.Fatalf("predict on: ok=%v err=%v", ok, err)
	}
	if len(predictOn) != 1 || predictOn[0].Text != "Hide Details" {
		t.Fatalf("expected %q, got %+v", "Hide Details", predictOn)
	}

	predictOff, ok, err := p.Predict(StateChange{ComponentID: "c1", StateKey: "isOn", NewValue: false}, map[string]any{"isOn": false})
	if err != nil || !ok {
		t.Fatalf("predict off: ok=%v err=%v", ok, err)
	}
	if len(predictOff) != 1 || predictOff[0].Text != "Show Details" {
		t.Fatalf("expected %q, got %+v", "Show Details", predictOff)
	}
}

// S6: a text template that mispredicts 3 times in 10 uses (30%, above the
// default 20% threshold) is demoted; subsequent predictions fall back to
// the concrete replay.
func TestRefuteDemotesOverThreshold(t *testing.T) {
	p := New(config.DefaultConfig(), nil)

	old := textDiv("Count: 0")
	next := textDiv("Count: 1")
	learnChange := StateChange{ComponentID: "c1", StateKey: "count", OldValue: float64(0), NewValue: float64(1)}
	if _, err := p.Learn(learnChange, old, next, map[string]any{"count": float64(1)}, nil); err != nil {
		t.Fatalf("learn: %v", err)
	}

	predictChange := StateChange{ComponentID: "c1", StateKey: "count", NewValue: float64(2)}
	for i := 0; i < 10; i++ {
		if _, ok, err := p.Predict(predictChange, map[string]any{"count": float64(2)}); err != nil || !ok {
			t.Fatalf("predict #%d: ok=%v err=%v", i, ok, err)
		}
	}

	for i := 0; i < 7; i++ {
		p.Confirm(predictChange)
	}

	var demoted bool
	for i := 0; i < 3; i++ {
		demoted = p.Refute(predictChange)
	}
	if !demoted {
		t.Fatalf("expected demotion after 3/10 mispredictions")
	}

	key := NewPatternKey("c1", "count", float64(2))
	rec, ok := p.store.template(key)
	if !ok || !rec.Demoted {
		t.Fatalf("expected template record to be marked demoted, got %+v (ok=%v)", rec, ok)
	}

	// Predict must now serve the concrete fallback, not the demoted template.
	predicted, ok, err := p.Predict(predictChange, map[string]any{"count": float64(2)})
	if err != nil || !ok {
		t.Fatalf("predict after demotion: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(predicted, []vnode.Patch{{Kind: vnode.PatchUpdateText, Path: []int{0}, Text: "Count: 1"}}) {
		t.Fatalf("expected concrete fallback (stuck at the last learned value), got %+v", predicted)
	}
}

func TestConditionalElementCreateAndRemove(t *testing.T) {
	p := New(nil, nil)

	hidden := vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText("brand"), nil})
	shown := vnode.NewElement("div", nil, []*vnode.VNode{
		vnode.NewText("brand"),
		vnode.NewElement("nav", nil, []*vnode.VNode{vnode.NewText("menu")}),
	})

	change := StateChange{ComponentID: "c1", StateKey: "menuOpen", OldValue: false, NewValue: true}
	patches, err := p.Learn(change, hidden, shown, map[string]any{"menuOpen": true}, nil)
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if len(patches) != 1 || patches[0].Kind != vnode.PatchCreate {
		t.Fatalf("expected a single Create patch, got %+v", patches)
	}

	key := NewPatternKey("c1", "menuOpen", true)
	rec, ok := p.store.template(key)
	if !ok || rec.Kind != TemplateKindConditional {
		t.Fatalf("expected a conditional template, got %+v (ok=%v)", rec, ok)
	}
	rec.Conditional.StaticallyEvaluable = true
	rec.Conditional.PathVariants = map[string][]int{
		"menuOpen:true":  {1},
		"menuOpen:false": nil,
	}

	predictOpen, ok, err := p.Predict(StateChange{ComponentID: "c1", StateKey: "menuOpen", NewValue: true}, map[string]any{"menuOpen": true})
	if err != nil || !ok {
		t.Fatalf("predict open: ok=%v err=%v", ok, err)
	}
	if len(predictOpen) != 1 || predictOpen[0].Kind != vnode.PatchCreate {
		t.Fatalf("expected a Create patch, got %+v", predictOpen)
	}

	predictClose, ok, err := p.Predict(StateChange{ComponentID: "c1", StateKey: "menuOpen", NewValue: false}, map[string]any{"menuOpen": false})
	if err != nil || !ok {
		t.Fatalf("predict close: ok=%v err=%v", ok, err)
	}
	if len(predictClose) != 1 || predictClose[0].Kind != vnode.PatchRemove {
		t.Fatalf("expected a Remove patch, got %+v", predictClose)
	}
}
