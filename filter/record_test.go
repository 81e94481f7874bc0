package filter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

func TestToRecord(t *testing.T) {
	tree, ids := sampleTree(t)
	_ = tree.SetAlias(ids["or"], "either")

	got := tree.ToRecord()
	want := Record{
		FilterType: "ROOT",
		Children: []Record{{
			FilterType: "AND",
			Children: []Record{
				{FilterType: "LEAF", Expression: strPtr("a=5")},
				{FilterType: "LEAF", Expression: strPtr("b=6")},
				{
					FilterType: "OR",
					Alias:      strPtr("either"),
					Children: []Record{
						{FilterType: "LEAF", Expression: strPtr("c=7")},
						{FilterType: "LEAF", Expression: strPtr("d=8")},
					},
				},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToRecord mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	tree, _ := sampleTree(t)

	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewTree()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Render() != tree.Render() {
		t.Errorf("render mismatch: %q vs %q", restored.Render(), tree.Render())
	}
	if diff := cmp.Diff(tree.ToRecord(), restored.ToRecord()); diff != "" {
		t.Errorf("record mismatch (-orig +restored):\n%s", diff)
	}
}

func TestFromRecordWorkingRootOnly(t *testing.T) {
	data := []byte(`{
		"filter_type": "OR",
		"alias": "any",
		"children": [
			{"filter_type": "LEAF", "expression": "x = 1"},
			{"expression": "y = 2"}
		]
	}`)

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	tree, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if got := tree.Render(); got != "x = 1 OR y = 2" {
		t.Errorf("render = %q", got)
	}
	if got := tree.Alias(tree.WorkingRoot()); got != "any" {
		t.Errorf("working root alias = %q", got)
	}
	if tree.Kind(tree.Root()) != KindRoot {
		t.Error("missing ROOT wrapper")
	}
}

func TestFromRecordMalformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "leaf with children",
			json: `{"filter_type":"AND","children":[{"filter_type":"LEAF","expression":"x=1","children":[{"filter_type":"LEAF","expression":"y=2"}]}]}`,
		},
		{
			name: "top-level leaf with children",
			json: `{"filter_type":"LEAF","expression":"x=1","children":[{"filter_type":"LEAF","expression":"y=2"}]}`,
		},
		{
			name: "composite with expression",
			json: `{"filter_type":"AND","children":[{"filter_type":"OR","expression":"x=1"}]}`,
		},
		{
			name: "empty leaf expression",
			json: `{"filter_type":"AND","children":[{"filter_type":"LEAF","expression":""}]}`,
		},
		{
			name: "leaf without expression",
			json: `{"filter_type":"AND","children":[{"filter_type":"LEAF"}]}`,
		},
		{
			name: "unknown kind",
			json: `{"filter_type":"XOR","children":[]}`,
		},
		{
			name: "nested root",
			json: `{"filter_type":"AND","children":[{"filter_type":"ROOT","children":[]}]}`,
		},
		{
			name: "root with two groups",
			json: `{"filter_type":"ROOT","children":[{"filter_type":"AND"},{"filter_type":"OR"}]}`,
		},
		{
			name: "root holding a leaf",
			json: `{"filter_type":"ROOT","children":[{"filter_type":"LEAF","expression":"x=1"}]}`,
		},
		{
			name: "no type and no expression",
			json: `{"children":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			if err := json.Unmarshal([]byte(tt.json), &rec); err != nil {
				t.Fatalf("invalid test JSON: %v", err)
			}
			tree, err := FromRecord(rec)
			if !errors.Is(err, ErrMalformedFilter) {
				t.Errorf("expected ErrMalformedFilter, got %v", err)
			}
			if tree != nil {
				t.Error("expected no tree on failure")
			}
		})
	}
}

func TestUnmarshalJSONKeepsTreeOnError(t *testing.T) {
	tree, _ := sampleTree(t)
	before := tree.Render()

	err := json.Unmarshal([]byte(`{"filter_type":"AND","children":[{"filter_type":"LEAF"}]}`), tree)
	if !errors.Is(err, ErrMalformedFilter) {
		t.Fatalf("expected ErrMalformedFilter, got %v", err)
	}
	if tree.Render() != before {
		t.Error("tree modified by failed unmarshal")
	}
}
