package lakeview

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hugr-lab/lakeview/query"
)

// TestStepBuilderBasic tests basic step building functionality.
func TestStepBuilderBasic(t *testing.T) {
	step, err := NewStepBuilder("validated").
		Select("t.*", "v.accepted").
		From("{main_table} t").
		LeftJoin("{user_table} v ON v.id = t.id").
		Where("t.depth > 10").
		OrderBy("t.id").
		Build()
	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}

	want := query.Step{
		Name:    "validated",
		Fields:  []string{"t.*", "v.accepted"},
		From:    "{main_table} t",
		Joins:   []query.Join{{Kind: "LEFT", Clause: "{user_table} v ON v.id = t.id"}},
		Where:   "t.depth > 10",
		OrderBy: []string{"t.id"},
	}
	if diff := cmp.Diff(want, step); diff != "" {
		t.Errorf("step mismatch (-want +got):\n%s", diff)
	}

	text, err := step.Template()
	if err != nil {
		t.Fatal(err)
	}
	wantText := "SELECT t.*, v.accepted FROM {main_table} t LEFT JOIN {user_table} v ON v.id = t.id WHERE t.depth > 10 ORDER BY t.id"
	if text != wantText {
		t.Errorf("template:\n got %q\nwant %q", text, wantText)
	}
}

// TestStepBuilderGrouped tests joins and grouping together.
func TestStepBuilderGrouped(t *testing.T) {
	step, err := NewStepBuilder("per_gene").
		Select("gene", "COUNT(*) AS n").
		InnerJoin("{user_table} v USING (id)").
		Join("genes g USING (gene)").
		GroupBy("gene").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(step.Joins) != 2 || step.Joins[0].Kind != "INNER" || step.Joins[1].Kind != "" {
		t.Errorf("unexpected joins %+v", step.Joins)
	}
}

// TestStepBuilderErrors tests invalid steps.
func TestStepBuilderErrors(t *testing.T) {
	if _, err := NewStepBuilder("").Build(); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewStepBuilder("bad").LeftJoin("").Build(); err == nil {
		t.Error("expected error for empty join clause")
	}

	b := NewStepBuilder("once")
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Error("expected error for second build")
	}
}
