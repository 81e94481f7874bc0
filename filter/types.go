package filter

import (
	"errors"
	"fmt"
)

// Standard errors returned by filter tree operations.
var (
	// ErrMalformedFilter indicates a structural violation while constructing
	// or deserializing a node (LEAF with children, non-LEAF with expression,
	// empty LEAF expression).
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrInvalidMutation indicates an illegal edit of an existing tree.
	// The tree is left unchanged.
	ErrInvalidMutation = errors.New("invalid filter mutation")
)

// Kind identifies the role of a node in the filter tree.
type Kind uint8

const (
	KindRoot Kind = iota + 1
	KindAnd
	KindOr
	KindLeaf
)

// String returns the textual form used in rendering and serialized records.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "ROOT"
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindLeaf:
		return "LEAF"
	default:
		return "UNKNOWN"
	}
}

// IsComposite reports whether nodes of this kind combine children with a
// boolean operator.
func (k Kind) IsComposite() bool {
	switch k {
	case KindAnd, KindOr:
		return true
	case KindRoot, KindLeaf:
		return false
	default:
		return false
	}
}

// ParseKind converts the textual form back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ROOT":
		return KindRoot, nil
	case "AND":
		return KindAnd, nil
	case "OR":
		return KindOr, nil
	case "LEAF":
		return KindLeaf, nil
	default:
		return 0, fmt.Errorf("%w: unknown filter type %q", ErrMalformedFilter, s)
	}
}

// NodeID is a stable handle to a node stored in a Tree.
// It stays valid until the node is removed; reused slots get a new
// generation so stale handles are rejected instead of aliasing.
// The zero value is NoNode.
type NodeID struct {
	index int32
	gen   uint32
}

// NoNode is the sentinel for "no node" (absent parent, invisible root).
var NoNode = NodeID{}

// IsValid reports whether id could refer to a node. It does not check that
// the node is still live in any particular tree.
func (id NodeID) IsValid() bool { return id.gen != 0 }

// String formats the handle for logs.
func (id NodeID) String() string {
	if !id.IsValid() {
		return "node(none)"
	}
	return fmt.Sprintf("node(%d.%d)", id.index, id.gen)
}

// node is one arena slot.
type node struct {
	gen        uint32
	live       bool
	kind       Kind
	expression string
	alias      string
	parent     NodeID
	children   []NodeID
}

// Node is a read-only snapshot of a node's fields.
type Node struct {
	ID         NodeID
	Kind       Kind
	Expression string
	Alias      string
	Parent     NodeID
	Children   []NodeID
}
