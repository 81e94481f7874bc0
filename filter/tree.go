package filter

import (
	"fmt"
	"slices"
)

// Tree is an arena of filter nodes. Parent and child links are NodeIDs into
// the arena, so the parent back-reference never owns anything.
//
// A tree always has a single ROOT whose only child is the AND/OR working
// root. Not safe for concurrent use.
type Tree struct {
	nodes []node
	free  []int32
	root  NodeID
	count int
}

// NewTree returns a tree holding ROOT and an empty AND working root.
func NewTree() *Tree {
	t := &Tree{}
	t.root = t.alloc(KindRoot, "", "")
	work := t.alloc(KindAnd, "", "")
	t.link(t.root, work, 0)
	return t
}

// Root returns the ROOT node.
func (t *Tree) Root() NodeID { return t.root }

// WorkingRoot returns the AND/OR group directly under ROOT.
func (t *Tree) WorkingRoot() NodeID {
	r := t.slot(t.root)
	if r == nil || len(r.children) == 0 {
		return NoNode
	}
	return r.children[0]
}

// Len returns the number of live nodes, detached ones included.
func (t *Tree) Len() int { return t.count }

// Contains reports whether id refers to a live node of this tree.
func (t *Tree) Contains(id NodeID) bool { return t.slot(id) != nil }

// Node returns a snapshot of the node identified by id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	n := t.slot(id)
	if n == nil {
		return Node{}, false
	}
	return Node{
		ID:         id,
		Kind:       n.kind,
		Expression: n.expression,
		Alias:      n.alias,
		Parent:     n.parent,
		Children:   slices.Clone(n.children),
	}, true
}

// Kind returns the kind of id, or 0 when id is not live.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.slot(id); n != nil {
		return n.kind
	}
	return 0
}

// Expression returns the leaf expression of id.
func (t *Tree) Expression(id NodeID) string {
	if n := t.slot(id); n != nil {
		return n.expression
	}
	return ""
}

// Alias returns the display alias of id.
func (t *Tree) Alias(id NodeID) string {
	if n := t.slot(id); n != nil {
		return n.alias
	}
	return ""
}

// Parent returns the parent of id, or NoNode.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.slot(id); n != nil {
		return n.parent
	}
	return NoNode
}

// ChildCount returns the number of children of id.
func (t *Tree) ChildCount(id NodeID) int {
	if n := t.slot(id); n != nil {
		return len(n.children)
	}
	return 0
}

// Child returns the row-th child of id.
func (t *Tree) Child(id NodeID, row int) (NodeID, bool) {
	n := t.slot(id)
	if n == nil || row < 0 || row >= len(n.children) {
		return NoNode, false
	}
	return n.children[row], true
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.slot(id); n != nil {
		return slices.Clone(n.children)
	}
	return nil
}

// Row returns the position of id within its parent's children, or 0 when
// id has no parent.
func (t *Tree) Row(id NodeID) int {
	n := t.slot(id)
	if n == nil {
		return 0
	}
	p := t.slot(n.parent)
	if p == nil {
		return 0
	}
	if i := slices.Index(p.children, id); i >= 0 {
		return i
	}
	return 0
}

// IsEmpty reports whether the working root has no children, i.e. the tree
// expresses no filter at all.
func (t *Tree) IsEmpty() bool {
	return t.ChildCount(t.WorkingRoot()) == 0
}

// IsAncestor reports whether anc is id itself or one of its ancestors.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur.IsValid(); cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// Walk visits id and its descendants depth-first, parents before children.
// Returning false from fn skips the subtree of the visited node.
func (t *Tree) Walk(id NodeID, fn func(id NodeID, depth int) bool) {
	t.walk(id, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	n := t.slot(id)
	if n == nil {
		return
	}
	if !fn(id, depth) {
		return
	}
	for _, c := range slices.Clone(n.children) {
		t.walk(c, depth+1, fn)
	}
}

// NewLeaf creates a detached LEAF node.
func (t *Tree) NewLeaf(expression, alias string) (NodeID, error) {
	if expression == "" {
		return NoNode, fmt.Errorf("%w: leaf filter must have an expression", ErrMalformedFilter)
	}
	return t.alloc(KindLeaf, expression, alias), nil
}

// NewComposite creates a detached AND or OR node.
func (t *Tree) NewComposite(kind Kind, alias string) (NodeID, error) {
	if !kind.IsComposite() {
		return NoNode, fmt.Errorf("%w: %s is not a composite filter type", ErrInvalidMutation, kind)
	}
	return t.alloc(kind, "", alias), nil
}

// Discard frees a detached node and its subtree.
func (t *Tree) Discard(id NodeID) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if n.kind == KindRoot || n.parent.IsValid() {
		return fmt.Errorf("%w: only detached nodes can be discarded", ErrInvalidMutation)
	}
	t.release(id)
	return nil
}

// CheckInsert validates inserting child under parent at row without
// changing the tree. A row of -1 means "append".
func (t *Tree) CheckInsert(parent NodeID, row int, child NodeID) error {
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	c, err := t.lookup(child)
	if err != nil {
		return err
	}
	switch p.kind {
	case KindLeaf:
		return fmt.Errorf("%w: cannot add a child to a LEAF filter", ErrInvalidMutation)
	case KindRoot:
		return fmt.Errorf("%w: ROOT holds only the working root", ErrInvalidMutation)
	case KindAnd, KindOr:
	}
	if c.kind == KindRoot {
		return fmt.Errorf("%w: ROOT cannot become a child", ErrInvalidMutation)
	}
	if c.parent.IsValid() && c.parent != parent {
		return fmt.Errorf("%w: %s already has a parent, move it instead", ErrInvalidMutation, child)
	}
	if t.IsAncestor(child, parent) {
		return fmt.Errorf("%w: %s would become its own descendant", ErrInvalidMutation, child)
	}
	if row != -1 && (row < 0 || row > len(p.children)) {
		return fmt.Errorf("%w: row %d out of range [0, %d]", ErrInvalidMutation, row, len(p.children))
	}
	return nil
}

// AddChild appends child to parent. Adding a node that is already a child
// of parent is a no-op.
func (t *Tree) AddChild(parent, child NodeID) error {
	if err := t.CheckInsert(parent, -1, child); err != nil {
		return err
	}
	if t.Parent(child) == parent {
		return nil
	}
	t.link(parent, child, t.ChildCount(parent))
	return nil
}

// InsertChild inserts child under parent at row. A row of -1 appends.
func (t *Tree) InsertChild(parent NodeID, row int, child NodeID) error {
	if err := t.CheckInsert(parent, row, child); err != nil {
		return err
	}
	if t.Parent(child) == parent {
		return nil
	}
	if row == -1 {
		row = t.ChildCount(parent)
	}
	t.link(parent, child, row)
	return nil
}

// CheckRemove validates removing the row-th child of parent and returns it.
func (t *Tree) CheckRemove(parent NodeID, row int) (NodeID, error) {
	p, err := t.lookup(parent)
	if err != nil {
		return NoNode, err
	}
	if row < 0 || row >= len(p.children) {
		return NoNode, fmt.Errorf("%w: row %d out of range [0, %d)", ErrInvalidMutation, row, len(p.children))
	}
	if p.kind == KindRoot {
		return NoNode, fmt.Errorf("%w: the working root cannot be removed", ErrInvalidMutation)
	}
	return p.children[row], nil
}

// RemoveChild removes and destroys the row-th child of parent.
func (t *Tree) RemoveChild(parent NodeID, row int) error {
	id, err := t.CheckRemove(parent, row)
	if err != nil {
		return err
	}
	t.unlink(id)
	t.release(id)
	return nil
}

// Remove removes and destroys id.
func (t *Tree) Remove(id NodeID) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if !n.parent.IsValid() {
		return fmt.Errorf("%w: %s has no parent", ErrInvalidMutation, id)
	}
	return t.RemoveChild(n.parent, t.Row(id))
}

// Detach unlinks id from its parent without destroying it.
func (t *Tree) Detach(id NodeID) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if !n.parent.IsValid() {
		return fmt.Errorf("%w: %s has no parent", ErrInvalidMutation, id)
	}
	if _, err := t.CheckRemove(n.parent, t.Row(id)); err != nil {
		return err
	}
	t.unlink(id)
	return nil
}

// CheckMove validates moving id under newParent at newRow. newRow is an
// index into newParent's children after id has been detached.
func (t *Tree) CheckMove(id, newParent NodeID, newRow int) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	p, err := t.lookup(newParent)
	if err != nil {
		return err
	}
	if n.kind == KindRoot {
		return fmt.Errorf("%w: ROOT cannot be moved", ErrInvalidMutation)
	}
	if n.parent == t.root {
		return fmt.Errorf("%w: the working root cannot be moved", ErrInvalidMutation)
	}
	switch p.kind {
	case KindLeaf:
		return fmt.Errorf("%w: cannot move into a LEAF filter", ErrInvalidMutation)
	case KindRoot:
		return fmt.Errorf("%w: ROOT holds only the working root", ErrInvalidMutation)
	case KindAnd, KindOr:
	}
	if t.IsAncestor(id, newParent) {
		return fmt.Errorf("%w: %s would become its own descendant", ErrInvalidMutation, id)
	}
	limit := len(p.children)
	if n.parent == newParent {
		limit--
	}
	if newRow < 0 || newRow > limit {
		return fmt.Errorf("%w: row %d out of range [0, %d]", ErrInvalidMutation, newRow, limit)
	}
	return nil
}

// Move reparents id under newParent at newRow in one step.
func (t *Tree) Move(id, newParent NodeID, newRow int) error {
	if err := t.CheckMove(id, newParent, newRow); err != nil {
		return err
	}
	t.unlink(id)
	t.link(newParent, id, newRow)
	return nil
}

// SetKind switches a composite node between AND and OR.
func (t *Tree) SetKind(id NodeID, kind Kind) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	switch n.kind {
	case KindLeaf:
		return fmt.Errorf("%w: the type of a LEAF filter cannot change", ErrInvalidMutation)
	case KindRoot:
		return fmt.Errorf("%w: the type of ROOT cannot change", ErrInvalidMutation)
	case KindAnd, KindOr:
	}
	if !kind.IsComposite() {
		return fmt.Errorf("%w: %s is not a composite filter type", ErrInvalidMutation, kind)
	}
	n.kind = kind
	return nil
}

// SetAlias changes the display label of id.
func (t *Tree) SetAlias(id NodeID, alias string) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	n.alias = alias
	return nil
}

// SetExpression replaces the expression of a LEAF node.
func (t *Tree) SetExpression(id NodeID, expression string) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if n.kind != KindLeaf {
		return fmt.Errorf("%w: only LEAF filters carry an expression", ErrInvalidMutation)
	}
	if expression == "" {
		return fmt.Errorf("%w: leaf filter must have an expression", ErrMalformedFilter)
	}
	n.expression = expression
	return nil
}

func (t *Tree) slot(id NodeID) *node {
	if !id.IsValid() || id.index < 0 || int(id.index) >= len(t.nodes) {
		return nil
	}
	n := &t.nodes[id.index]
	if !n.live || n.gen != id.gen {
		return nil
	}
	return n
}

func (t *Tree) lookup(id NodeID) (*node, error) {
	n := t.slot(id)
	if n == nil {
		return nil, fmt.Errorf("%w: unknown %s", ErrInvalidMutation, id)
	}
	return n, nil
}

func (t *Tree) alloc(kind Kind, expression, alias string) NodeID {
	var idx int32
	if k := len(t.free); k > 0 {
		idx = t.free[k-1]
		t.free = t.free[:k-1]
	} else {
		idx = int32(len(t.nodes))
		t.nodes = append(t.nodes, node{})
	}
	n := &t.nodes[idx]
	gen := n.gen + 1
	if gen == 0 {
		gen = 1
	}
	*n = node{gen: gen, live: true, kind: kind, expression: expression, alias: alias}
	t.count++
	return NodeID{index: idx, gen: gen}
}

func (t *Tree) release(id NodeID) {
	n := t.slot(id)
	if n == nil {
		return
	}
	for _, c := range n.children {
		t.release(c)
	}
	n.live = false
	n.children = nil
	n.parent = NoNode
	t.free = append(t.free, id.index)
	t.count--
}

func (t *Tree) link(parent, child NodeID, row int) {
	p := t.slot(parent)
	p.children = slices.Insert(p.children, row, child)
	t.slot(child).parent = parent
}

func (t *Tree) unlink(id NodeID) {
	n := t.slot(id)
	p := t.slot(n.parent)
	if p != nil {
		if i := slices.Index(p.children, id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	n.parent = NoNode
}
