package minimact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimact/minimact-sub000/internal/simulator"
	"github.com/minimact/minimact-sub000/internal/vnode"
)

func newTestComponent(t *testing.T) *Component {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.RegisterComponentType("counter", nil))
	c, err := e.NewComponent("counter", "c1")
	require.NoError(t, err)
	return c
}

func TestComponentLearnReturnsDOMSpacePatches(t *testing.T) {
	c := newTestComponent(t)

	old := vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText("Count: 0")})
	next := vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText("Count: 1")})
	change := StateChange{ComponentID: "c1", StateKey: "count", OldValue: float64(0), NewValue: float64(1)}

	patches, err := c.Learn(change, old, next, map[string]any{"count": float64(1)}, nil)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, vnode.PatchUpdateText, patches[0].Kind)
}

func TestComponentLearnDropsStalePatches(t *testing.T) {
	c := newTestComponent(t)

	// The patch targets index 1 of a two-child author-space tree whose
	// second slot is null in the render the patch is adjusted against:
	// pathadjust reports it invisible and Learn drops it silently.
	old := vnode.NewElement("div", nil, []*vnode.VNode{
		vnode.NewText("a"),
		vnode.NewText("b"),
	})
	next := vnode.NewElement("div", nil, []*vnode.VNode{
		vnode.NewText("a"),
		nil,
	})
	change := StateChange{ComponentID: "c1", StateKey: "visible", OldValue: true, NewValue: false}

	patches, err := c.Learn(change, old, next, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, patches)
}

func TestComponentPredictConfirmRefute(t *testing.T) {
	c := newTestComponent(t)

	old := vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText("Count: 0")})
	next := vnode.NewElement("div", nil, []*vnode.VNode{vnode.NewText("Count: 1")})
	learned := StateChange{ComponentID: "c1", StateKey: "count", OldValue: float64(0), NewValue: float64(1)}
	_, err := c.Learn(learned, old, next, map[string]any{"count": float64(1)}, nil)
	require.NoError(t, err)

	predicted := StateChange{ComponentID: "c1", StateKey: "count", NewValue: float64(1)}
	patches, ok, err := c.Predict(predicted, map[string]any{"count": float64(1)}, next)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, patches)

	c.Confirm(predicted)
	assert.False(t, c.Refute(predicted), "a single refute should not demote immediately")
}

func TestComponentPredictMissReturnsFalse(t *testing.T) {
	c := newTestComponent(t)

	change := StateChange{ComponentID: "c1", StateKey: "never-learned", NewValue: float64(1)}
	patches, ok, err := c.Predict(change, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, patches)
}

func TestComponentSimulateConditionalPaths(t *testing.T) {
	c := newTestComponent(t)

	canonical := vnode.NewElement("div", nil, []*vnode.VNode{
		vnode.NewElement("span", nil, []*vnode.VNode{vnode.NewText("banner")}),
	})
	sites := []*simulator.Site{
		{
			ID:   "banner",
			Path: []int{0},
			Template: &vnode.ConditionalElementTemplate{
				ConditionExpression: "showBanner",
				ConditionBindings:   []string{"showBanner"},
				ConditionMapping:    map[string]string{"showBanner": "showBanner"},
			},
		},
	}

	require.NoError(t, c.SimulateConditionalPaths(canonical, sites))
	assert.True(t, sites[0].Template.StaticallyEvaluable)
	assert.Len(t, sites[0].Template.PathVariants, 2)
}

func TestDiffStandalone(t *testing.T) {
	old := vnode.NewText("a")
	next := vnode.NewText("b")

	patches, err := Diff(old, next)
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, vnode.PatchUpdateText, patches[0].Kind)
}
