package filter

import "testing"

func TestRenderNested(t *testing.T) {
	tree, _ := sampleTree(t)

	expected := "a=5 AND b=6 AND (c=7 OR d=8)"
	if got := tree.Render(); got != expected {
		t.Errorf("expected '%s', got '%s'", expected, got)
	}
}

func TestRenderEmpty(t *testing.T) {
	tree := NewTree()
	if got := tree.Render(); got != "" {
		t.Errorf("expected empty render, got '%s'", got)
	}
}

func TestRenderSkipsEmptyGroups(t *testing.T) {
	tree := NewTree()
	leaf, _ := tree.NewLeaf("x=1", "")
	empty, _ := tree.NewComposite(KindOr, "")
	_ = tree.AddChild(tree.WorkingRoot(), leaf)
	_ = tree.AddChild(tree.WorkingRoot(), empty)

	if got := tree.Render(); got != "x=1" {
		t.Errorf("expected 'x=1', got '%s'", got)
	}
	if tree.IsEmpty() {
		t.Error("tree with children is not empty")
	}
}

func TestRenderDeepNesting(t *testing.T) {
	tree := NewTree()
	if err := tree.SetKind(tree.WorkingRoot(), KindOr); err != nil {
		t.Fatal(err)
	}
	and, _ := tree.NewComposite(KindAnd, "")
	or, _ := tree.NewComposite(KindOr, "")
	a, _ := tree.NewLeaf("a", "")
	b, _ := tree.NewLeaf("b", "")
	c, _ := tree.NewLeaf("c", "")
	d, _ := tree.NewLeaf("d", "")

	_ = tree.AddChild(tree.WorkingRoot(), a)
	_ = tree.AddChild(tree.WorkingRoot(), and)
	_ = tree.AddChild(and, b)
	_ = tree.AddChild(and, or)
	_ = tree.AddChild(or, c)
	_ = tree.AddChild(or, d)

	expected := "a OR (b AND (c OR d))"
	if got := tree.Render(); got != expected {
		t.Errorf("expected '%s', got '%s'", expected, got)
	}
	if got := tree.RenderNode(or); got != "(c OR d)" {
		t.Errorf("nested group render = '%s'", got)
	}
}

func TestRenderSingleChildGroup(t *testing.T) {
	tree := NewTree()
	or, _ := tree.NewComposite(KindOr, "")
	leaf, _ := tree.NewLeaf("x=1", "")
	_ = tree.AddChild(tree.WorkingRoot(), or)
	_ = tree.AddChild(or, leaf)

	if got := tree.Render(); got != "(x=1)" {
		t.Errorf("expected '(x=1)', got '%s'", got)
	}
}

func TestDisplay(t *testing.T) {
	tree, ids := sampleTree(t)
	_ = tree.SetAlias(ids["b"], "beta")

	tests := []struct {
		id   NodeID
		want string
	}{
		{ids["a"], "a=5"},
		{ids["b"], "beta"},
		{ids["or"], "OR"},
		{tree.WorkingRoot(), "AND"},
		{NoNode, ""},
	}
	for _, tt := range tests {
		if got := tree.Display(tt.id); got != tt.want {
			t.Errorf("Display(%s) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if got := tree.Render(); got != "a=5 AND b=6 AND (c=7 OR d=8)" {
		t.Errorf("alias must not affect render, got %q", got)
	}
}
