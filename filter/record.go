package filter

import (
	"encoding/json"
	"fmt"
)

// Record is the nested, serializable form of a filter tree, persisted as
// part of a session document.
//
//	{"filter_type": "AND", "alias": "main", "children": [
//	    {"filter_type": "LEAF", "expression": "a = 5"},
//	    {"filter_type": "OR", "children": [...]}
//	]}
type Record struct {
	FilterType string   `json:"filter_type,omitempty" msgpack:"filter_type,omitempty"`
	Expression *string  `json:"expression,omitempty" msgpack:"expression,omitempty"`
	Alias      *string  `json:"alias,omitempty" msgpack:"alias,omitempty"`
	Children   []Record `json:"children,omitempty" msgpack:"children,omitempty"`
}

// ToRecord serializes the whole tree starting at ROOT.
func (t *Tree) ToRecord() Record {
	return t.RecordOf(t.root)
}

// RecordOf serializes the subtree rooted at id.
func (t *Tree) RecordOf(id NodeID) Record {
	n := t.slot(id)
	if n == nil {
		return Record{}
	}

	rec := Record{FilterType: n.kind.String()}
	if n.alias != "" && n.kind != KindRoot {
		alias := n.alias
		rec.Alias = &alias
	}
	if n.kind == KindLeaf {
		expr := n.expression
		rec.Expression = &expr
		return rec
	}
	rec.Children = make([]Record, 0, len(n.children))
	for _, c := range n.children {
		rec.Children = append(rec.Children, t.RecordOf(c))
	}
	return rec
}

// FromRecord rebuilds a tree from its record in one pass.
//
// The top-level record is either ROOT with a single AND/OR child, or an
// AND/OR group which becomes the working root of a fresh tree. Leaf records
// written without "filter_type" are accepted as LEAF. Any structural
// violation fails the whole operation with ErrMalformedFilter.
func FromRecord(rec Record) (*Tree, error) {
	kind, err := recordKind(rec)
	if err != nil {
		return nil, err
	}

	top := rec
	switch kind {
	case KindRoot:
		if rec.Expression != nil && *rec.Expression != "" {
			return nil, fmt.Errorf("%w: ROOT filter must not have an expression", ErrMalformedFilter)
		}
		if len(rec.Children) != 1 {
			return nil, fmt.Errorf("%w: ROOT must hold exactly one group, got %d", ErrMalformedFilter, len(rec.Children))
		}
		top = rec.Children[0]
		if kind, err = recordKind(top); err != nil {
			return nil, err
		}
		if !kind.IsComposite() {
			return nil, fmt.Errorf("%w: ROOT must hold an AND or OR group, got %s", ErrMalformedFilter, kind)
		}
	case KindAnd, KindOr:
	case KindLeaf:
		return nil, fmt.Errorf("%w: top-level filter must be ROOT, AND or OR", ErrMalformedFilter)
	}

	if top.Expression != nil && *top.Expression != "" {
		return nil, fmt.Errorf("%w: non-leaf filter must not have an expression", ErrMalformedFilter)
	}

	t := NewTree()
	work := t.slot(t.WorkingRoot())
	work.kind = kind
	if top.Alias != nil {
		work.alias = *top.Alias
	}
	for i, child := range top.Children {
		if err := t.build(t.WorkingRoot(), child); err != nil {
			return nil, fmt.Errorf("filter child %d: %w", i, err)
		}
	}
	return t, nil
}

func (t *Tree) build(parent NodeID, rec Record) error {
	kind, err := recordKind(rec)
	if err != nil {
		return err
	}

	var alias string
	if rec.Alias != nil {
		alias = *rec.Alias
	}

	switch kind {
	case KindRoot:
		return fmt.Errorf("%w: ROOT may only appear at the top", ErrMalformedFilter)
	case KindLeaf:
		if len(rec.Children) > 0 {
			return fmt.Errorf("%w: leaf filter must not have children", ErrMalformedFilter)
		}
		if rec.Expression == nil {
			return fmt.Errorf("%w: leaf filter must have an expression", ErrMalformedFilter)
		}
		id, err := t.NewLeaf(*rec.Expression, alias)
		if err != nil {
			return err
		}
		t.link(parent, id, t.ChildCount(parent))
		return nil
	case KindAnd, KindOr:
		if rec.Expression != nil && *rec.Expression != "" {
			return fmt.Errorf("%w: non-leaf filter must not have an expression", ErrMalformedFilter)
		}
		id := t.alloc(kind, "", alias)
		t.link(parent, id, t.ChildCount(parent))
		for i, child := range rec.Children {
			if err := t.build(id, child); err != nil {
				return fmt.Errorf("filter child %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown filter type %d", ErrMalformedFilter, kind)
	}
}

// recordKind resolves the kind of rec, treating the legacy
// {"expression": "..."} form as LEAF.
func recordKind(rec Record) (Kind, error) {
	if rec.FilterType == "" {
		if rec.Expression != nil {
			return KindLeaf, nil
		}
		return 0, fmt.Errorf("%w: cannot deserialize filter without filter_type or expression", ErrMalformedFilter)
	}
	return ParseKind(rec.FilterType)
}

// MarshalJSON encodes the tree as its Record.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToRecord())
}

// UnmarshalJSON replaces the tree with the one described by data.
// On error the tree is left untouched.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrMalformedFilter, err)
	}
	built, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*t = *built
	return nil
}
