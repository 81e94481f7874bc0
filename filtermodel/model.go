// Package filtermodel exposes a filter.Tree to hierarchical list views that
// address rows by (row, parent) position.
//
// The invisible ROOT and working root are hidden: the view's top level is
// the working root's children, addressed with the filter.NoNode parent.
// Every structural edit is validated first and then announced with a
// begin/end bracket so attached views can apply an incremental diff.
package filtermodel

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hugr-lab/lakeview/filter"
)

// Op identifies a model notification.
type Op uint8

const (
	// OpBeginInsert precedes the insertion of rows First..Last under Parent.
	OpBeginInsert Op = iota + 1
	// OpEndInsert follows the insertion announced by the last OpBeginInsert.
	OpEndInsert
	// OpBeginRemove precedes the removal of rows First..Last under Parent.
	OpBeginRemove
	// OpEndRemove follows the removal announced by the last OpBeginRemove.
	OpEndRemove
	// OpDataChanged reports a label or operator change of Node.
	OpDataChanged
	// OpReset reports that the whole tree was replaced.
	OpReset
	// OpCommitted follows every successful logical edit, once, after all of
	// its brackets. A move emits two brackets but one OpCommitted.
	OpCommitted
)

func (o Op) String() string {
	switch o {
	case OpBeginInsert:
		return "begin_insert"
	case OpEndInsert:
		return "end_insert"
	case OpBeginRemove:
		return "begin_remove"
	case OpEndRemove:
		return "end_remove"
	case OpDataChanged:
		return "data_changed"
	case OpReset:
		return "reset"
	case OpCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Change is delivered to observers for every model notification.
// Parent is a view handle: filter.NoNode stands for the top level.
type Change struct {
	Op     Op
	Parent filter.NodeID
	First  int
	Last   int
	Node   filter.NodeID
}

type subscriber struct {
	id int
	fn func(Change)
}

// Model adapts a filter.Tree for (row, parent) addressing.
//
// Tree reads and writes go through a locker, so a Model is safe for
// concurrent use. Observers run synchronously on the goroutine performing
// the edit, always with the locker released.
type Model struct {
	logger *slog.Logger

	lock sync.Locker
	tree *filter.Tree

	subsMu sync.Mutex
	subs   []subscriber
	nextID int
}

// New creates a model over tree with a private lock. A nil tree starts
// from filter.NewTree(). A nil logger uses slog.Default().
func New(tree *filter.Tree, logger *slog.Logger) *Model {
	return NewShared(tree, logger, new(sync.Mutex))
}

// NewShared creates a model whose tree access is serialized by lock. An
// owner holding lock may read Tree() without racing model edits; it must
// not call other Model methods while holding it.
func NewShared(tree *filter.Tree, logger *slog.Logger, lock sync.Locker) *Model {
	if tree == nil {
		tree = filter.NewTree()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{tree: tree, logger: logger, lock: lock}
}

// Tree returns the underlying tree. Reads that may overlap edits must hold
// the lock given to NewShared. Structural edits made on it directly bypass
// the brackets; use the Model methods instead.
func (m *Model) Tree() *filter.Tree { return m.tree }

// Render returns the SQL condition of the current tree.
func (m *Model) Render() (where string) {
	m.locked(func() { where = m.tree.Render() })
	return where
}

func (m *Model) locked(fn func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	fn()
}

// Subscribe registers fn for all notifications and returns a function that
// removes it.
func (m *Model) Subscribe(fn func(Change)) (cancel func()) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) emit(c Change) {
	m.subsMu.Lock()
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.subsMu.Unlock()

	for _, s := range subs {
		s.fn(c)
	}
}

// resolve maps a view parent handle to a tree node. Caller holds the lock.
func (m *Model) resolve(parent filter.NodeID) filter.NodeID {
	if !parent.IsValid() {
		return m.tree.WorkingRoot()
	}
	return parent
}

// handle maps a tree node to the handle a view uses for it. Caller holds
// the lock.
func (m *Model) handle(id filter.NodeID) filter.NodeID {
	if id == m.tree.WorkingRoot() || id == m.tree.Root() {
		return filter.NoNode
	}
	return id
}

// Index returns the row-th child of parent.
func (m *Model) Index(row int, parent filter.NodeID) (id filter.NodeID, ok bool) {
	m.locked(func() { id, ok = m.tree.Child(m.resolve(parent), row) })
	return id, ok
}

// HasIndex reports whether Index(row, parent) is valid.
func (m *Model) HasIndex(row int, parent filter.NodeID) bool {
	_, ok := m.Index(row, parent)
	return ok
}

// Parent returns the view handle of h's parent; filter.NoNode for top-level
// rows and unknown handles.
func (m *Model) Parent(h filter.NodeID) (parent filter.NodeID) {
	m.locked(func() {
		parent = filter.NoNode
		if p := m.tree.Parent(h); p.IsValid() {
			parent = m.handle(p)
		}
	})
	return parent
}

// RowCount returns the number of children of parent.
func (m *Model) RowCount(parent filter.NodeID) (n int) {
	m.locked(func() { n = m.tree.ChildCount(m.resolve(parent)) })
	return n
}

// Row returns the position of h within its parent, 0 when parentless.
func (m *Model) Row(h filter.NodeID) (row int) {
	m.locked(func() { row = m.tree.Row(h) })
	return row
}

// Display returns the label of h for list rendering.
func (m *Model) Display(h filter.NodeID) (label string) {
	m.locked(func() { label = m.tree.Display(m.resolve(h)) })
	return label
}

// AddChild appends an existing detached node under parent.
func (m *Model) AddChild(parent, child filter.NodeID) error {
	return m.InsertChild(parent, -1, child)
}

// InsertChild inserts an existing detached node under parent at row. A row
// of -1 appends.
func (m *Model) InsertChild(parent filter.NodeID, row int, child filter.NodeID) error {
	var (
		p, h filter.NodeID
		noop bool
		err  error
	)
	m.locked(func() {
		p = m.resolve(parent)
		if err = m.tree.CheckInsert(p, row, child); err != nil {
			return
		}
		noop = m.tree.Parent(child) == p
		if row == -1 {
			row = m.tree.ChildCount(p)
		}
		h = m.handle(p)
	})
	if err != nil || noop {
		return err
	}

	if err := m.insert(p, h, row, child); err != nil {
		return err
	}
	m.emit(Change{Op: OpCommitted, Node: child})
	return nil
}

// insert links child under p inside an insert bracket. The bracket is
// closed even when the tree changed since validation.
func (m *Model) insert(p, h filter.NodeID, row int, child filter.NodeID) error {
	m.emit(Change{Op: OpBeginInsert, Parent: h, First: row, Last: row})
	var err error
	m.locked(func() { err = m.tree.InsertChild(p, row, child) })
	m.emit(Change{Op: OpEndInsert, Parent: h, First: row, Last: row})
	if err != nil {
		m.logger.Error("Filter insert failed after validation", "parent", p, "row", row, "error", err)
	}
	return err
}

// AddLeaf creates a LEAF and appends it under parent.
func (m *Model) AddLeaf(parent filter.NodeID, expression, alias string) (filter.NodeID, error) {
	return m.create(parent, func(t *filter.Tree) (filter.NodeID, error) {
		return t.NewLeaf(expression, alias)
	})
}

// AddGroup creates an AND/OR group and appends it under parent.
func (m *Model) AddGroup(parent filter.NodeID, kind filter.Kind, alias string) (filter.NodeID, error) {
	return m.create(parent, func(t *filter.Tree) (filter.NodeID, error) {
		return t.NewComposite(kind, alias)
	})
}

func (m *Model) create(parent filter.NodeID, alloc func(*filter.Tree) (filter.NodeID, error)) (filter.NodeID, error) {
	var (
		id  filter.NodeID
		err error
	)
	m.locked(func() { id, err = alloc(m.tree) })
	if err != nil {
		return filter.NoNode, err
	}
	if err := m.AddChild(parent, id); err != nil {
		m.locked(func() { _ = m.tree.Discard(id) })
		return filter.NoNode, err
	}
	return id, nil
}

// RemoveRow removes and destroys the row-th child of parent.
func (m *Model) RemoveRow(parent filter.NodeID, row int) error {
	var (
		p, h, target filter.NodeID
		err          error
	)
	m.locked(func() {
		p = m.resolve(parent)
		h = m.handle(p)
		target, err = m.tree.CheckRemove(p, row)
	})
	if err != nil {
		return err
	}

	m.emit(Change{Op: OpBeginRemove, Parent: h, First: row, Last: row})
	m.locked(func() { err = m.tree.RemoveChild(p, row) })
	m.emit(Change{Op: OpEndRemove, Parent: h, First: row, Last: row})
	if err != nil {
		m.logger.Error("Filter remove failed after validation", "parent", p, "row", row, "error", err)
		return err
	}
	m.emit(Change{Op: OpCommitted, Node: target})
	return nil
}

// Remove removes and destroys h.
func (m *Model) Remove(h filter.NodeID) error {
	var (
		parent filter.NodeID
		row    int
		err    error
	)
	m.locked(func() {
		p := m.tree.Parent(h)
		if !p.IsValid() {
			err = fmt.Errorf("%w: %s has no parent", filter.ErrInvalidMutation, h)
			return
		}
		parent, row = m.handle(p), m.tree.Row(h)
	})
	if err != nil {
		return err
	}
	return m.RemoveRow(parent, row)
}

// MoveRow reparents h under newParent at newRow, newRow being a position in
// newParent's children once h has been taken out. Observers see a remove
// bracket followed by an insert bracket.
func (m *Model) MoveRow(h, newParent filter.NodeID, newRow int) error {
	var (
		np, nh, old, oh filter.NodeID
		oldRow          int
		err             error
	)
	m.locked(func() {
		np = m.resolve(newParent)
		if err = m.tree.CheckMove(h, np, newRow); err != nil {
			return
		}
		nh = m.handle(np)
		if old = m.tree.Parent(h); old.IsValid() {
			oh, oldRow = m.handle(old), m.tree.Row(h)
		}
	})
	if err != nil {
		return err
	}

	if old.IsValid() {
		m.emit(Change{Op: OpBeginRemove, Parent: oh, First: oldRow, Last: oldRow})
		m.locked(func() { err = m.tree.Detach(h) })
		m.emit(Change{Op: OpEndRemove, Parent: oh, First: oldRow, Last: oldRow})
		if err != nil {
			m.logger.Error("Filter detach failed after validation", "node", h, "error", err)
			return err
		}
	}

	if err := m.insert(np, nh, newRow, h); err != nil {
		return err
	}
	m.emit(Change{Op: OpCommitted, Node: h})
	return nil
}

// SetKind switches the operator of a group; filter.NoNode addresses the
// working root.
func (m *Model) SetKind(h filter.NodeID, kind filter.Kind) error {
	return m.edit(h, func(id filter.NodeID) error { return m.tree.SetKind(id, kind) })
}

// SetAlias changes the label of h.
func (m *Model) SetAlias(h filter.NodeID, alias string) error {
	return m.edit(h, func(id filter.NodeID) error { return m.tree.SetAlias(id, alias) })
}

// SetExpression changes the expression of a LEAF.
func (m *Model) SetExpression(h filter.NodeID, expression string) error {
	return m.edit(h, func(id filter.NodeID) error { return m.tree.SetExpression(id, expression) })
}

func (m *Model) edit(h filter.NodeID, fn func(filter.NodeID) error) error {
	var err error
	m.locked(func() { err = fn(m.resolve(h)) })
	if err != nil {
		return err
	}
	m.emit(Change{Op: OpDataChanged, Node: h})
	m.emit(Change{Op: OpCommitted, Node: h})
	return nil
}

// Reset replaces the whole tree. A nil tree starts over from an empty one.
func (m *Model) Reset(tree *filter.Tree) {
	if tree == nil {
		tree = filter.NewTree()
	}
	m.locked(func() { m.tree = tree })
	m.emit(Change{Op: OpReset})
	m.emit(Change{Op: OpCommitted})
}
