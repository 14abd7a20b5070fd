package vnode

import (
	"encoding/json"
	"testing"
)

func TestPatchJSONRoundTrip(t *testing.T) {
	removed := (*string)(nil)
	newVal := "red"
	p := Patch{
		Kind: PatchUpdateProps,
		Path: []int{0, 1},
		Props: PropsDiff{
			"color":    &newVal,
			"disabled": removed,
		},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Patch
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Kind != PatchUpdateProps {
		t.Fatalf("expected update_props, got %v", back.Kind)
	}
	if len(back.Path) != 2 || back.Path[1] != 1 {
		t.Fatalf("path mismatch: %v", back.Path)
	}
	if back.Props["color"] == nil || *back.Props["color"] != "red" {
		t.Fatalf("expected color=red, got %+v", back.Props)
	}
}

func TestPatchKindWireStrings(t *testing.T) {
	cases := []struct {
		kind PatchKind
		want string
	}{
		{PatchCreate, "create"},
		{PatchReorderChildren, "reorder_children"},
		{PatchUpdateListTemplate, "update_list_template"},
	}
	for _, c := range cases {
		p := Patch{Kind: c.kind, Path: []int{0}}
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal raw: %v", err)
		}
		if decoded["type"] != c.want {
			t.Fatalf("expected type %q, got %v", c.want, decoded["type"])
		}
	}
}
