package vnode

import (
	"errors"
	"testing"
)

func TestEqualIgnoresKey(t *testing.T) {
	a := NewKeyedElement("li", nil, []*VNode{NewText("A")}, "1")
	b := NewKeyedElement("li", nil, []*VNode{NewText("A")}, "2")
	if !Equal(a, b) {
		t.Fatalf("expected key to be irrelevant to structural equality")
	}
}

func TestEqualNullSlots(t *testing.T) {
	a := NewElement("div", nil, []*VNode{NewText("x"), nil})
	b := NewElement("div", nil, []*VNode{NewText("x"), nil})
	if !Equal(a, b) {
		t.Fatalf("expected equal trees with matching null slots")
	}

	c := NewElement("div", nil, []*VNode{NewText("x"), NewText("y")})
	if Equal(a, c) {
		t.Fatalf("expected null vs non-null child to compare unequal")
	}
}

func TestPropsMissingVsEmptyEqual(t *testing.T) {
	a := NewElement("input", map[string]string{}, nil)
	b := NewElement("input", map[string]string{"disabled": ""}, nil)
	if !Equal(a, b) {
		t.Fatalf("missing prop and empty-valued prop must compare equal")
	}
}

func TestWalk(t *testing.T) {
	tree := NewElement("div", nil, []*VNode{
		NewElement("h1", nil, []*VNode{NewText("Title")}),
		nil,
		NewElement("footer", nil, []*VNode{NewText("Footer")}),
	})

	got, err := Walk(tree, []int{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "Title" {
		t.Fatalf("expected Title, got %q", got.Text)
	}

	if _, err := Walk(tree, []int{1}); !errors.Is(err, ErrNullTraversal) {
		t.Fatalf("expected ErrNullTraversal, got %v", err)
	}

	if _, err := Walk(tree, []int{5}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}

	if _, err := Walk(tree, []int{0, 0, 0}); !errors.Is(err, ErrNotElement) {
		t.Fatalf("expected ErrNotElement, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	tree := NewElement("div", map[string]string{"class": "card"}, []*VNode{
		NewKeyedElement("span", nil, []*VNode{NewText("hi")}, "k1"),
		nil,
	})

	data, err := Serialize(tree)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	back, err := Construct(data)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	if !Equal(tree, back) {
		t.Fatalf("round trip mismatch: %+v vs %+v", tree, back)
	}
	if back.Children[0].Key != "k1" {
		t.Fatalf("expected key to survive round trip, got %q", back.Children[0].Key)
	}
	if back.Children[1] != nil {
		t.Fatalf("expected null slot to survive round trip")
	}
}

func TestFromHTML(t *testing.T) {
	root, err := FromHTML(`<h1>Title</h1><p class="lead">Hello <b>world</b></p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Tag != "div" || len(root.Children) != 2 {
		t.Fatalf("expected synthetic div wrapper with 2 children, got %+v", root)
	}
	if root.Children[0].Tag != "h1" {
		t.Fatalf("expected first child h1, got %q", root.Children[0].Tag)
	}
	p := root.Children[1]
	if p.Tag != "p" || p.PropOrEmpty("class") != "lead" {
		t.Fatalf("expected p.lead, got %+v", p)
	}
}
