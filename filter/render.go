package filter

import "strings"

// Render returns the boolean expression of the whole tree, suitable as the
// body of a WHERE clause. Returns empty string for an empty tree.
func (t *Tree) Render() string {
	return t.RenderNode(t.root)
}

// RenderNode returns the boolean expression of the subtree rooted at id.
//
// LEAF nodes render their expression verbatim. Composite nodes join their
// non-empty child renderings with the operator; the group is wrapped in
// parentheses unless its parent is ROOT (or it has no parent). Child order
// is the only grouping mechanism: there is no operator precedence.
func (t *Tree) RenderNode(id NodeID) string {
	n := t.slot(id)
	if n == nil {
		return ""
	}

	switch n.kind {
	case KindLeaf:
		return n.expression
	case KindRoot:
		if len(n.children) == 0 {
			return ""
		}
		return t.RenderNode(n.children[0])
	case KindAnd, KindOr:
		var parts []string
		for _, c := range n.children {
			if encoded := t.RenderNode(c); encoded != "" {
				parts = append(parts, encoded)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		body := strings.Join(parts, " "+n.kind.String()+" ")
		if p := t.slot(n.parent); p != nil && p.kind != KindRoot {
			return "(" + body + ")"
		}
		return body
	default:
		return ""
	}
}

// Display returns the label shown for id in a list view: the alias when
// set, else the expression of a LEAF, else the operator name.
func (t *Tree) Display(id NodeID) string {
	n := t.slot(id)
	if n == nil {
		return ""
	}
	if n.alias != "" {
		return n.alias
	}
	if n.kind == KindLeaf {
		return n.expression
	}
	return n.kind.String()
}
