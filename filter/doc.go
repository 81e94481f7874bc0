// Package filter provides the boolean filter tree edited by analysts and
// rendered into the WHERE clause of a query.
//
// A Tree stores its nodes in an arena and hands out NodeID handles:
//
//	t := filter.NewTree()                  // ROOT -> AND (working root)
//	a, _ := t.NewLeaf("a = 5", "")
//	b, _ := t.NewLeaf("b = 6", "")
//	or, _ := t.NewComposite(filter.KindOr, "either")
//	_ = t.AddChild(t.WorkingRoot(), a)
//	_ = t.AddChild(t.WorkingRoot(), b)
//	_ = t.AddChild(t.WorkingRoot(), or)
//	...
//	where := t.Render() // "a = 5 AND b = 6 AND (c = 7 OR d = 8)"
//
// # Structure
//
// Every tree has exactly one ROOT whose single child is the AND/OR working
// root. LEAF nodes carry an opaque SQL fragment and never have children;
// AND/OR nodes carry no expression. Nesting is the only way to express
// precedence: every group below the working root is parenthesized.
//
// # Errors
//
// Structural violations while constructing or decoding nodes fail with
// ErrMalformedFilter. Illegal edits (adding under a LEAF, removing the
// working root, moving a node into its own subtree) fail with
// ErrInvalidMutation. Both leave the tree unchanged.
//
// # Serialization
//
// ToRecord and FromRecord convert between a Tree and the nested Record
// shape persisted in session documents. FromRecord validates the whole
// record before returning a tree.
package filter
