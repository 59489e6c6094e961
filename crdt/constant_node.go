package crdt

import "jcrdt/common"

// ConNode is a `con` node: an immutable JSON literal, or a reference to
// another node's id. Once created it is never mutated — `new_con` on an
// id that already exists is a no-op, per the model's create-once rule.
type ConNode struct {
	id      common.Ts
	value   interface{}
	ref     common.Ts
	hasRef  bool
}

// NewConNode creates a constant node holding a JSON literal value.
func NewConNode(id common.Ts, value interface{}) *ConNode {
	return &ConNode{id: id, value: value}
}

// NewConRefNode creates a constant node holding a reference to another
// node's id, rather than a literal.
func NewConRefNode(id common.Ts, ref common.Ts) *ConNode {
	return &ConNode{id: id, ref: ref, hasRef: true}
}

// ID returns the node's identifier.
func (n *ConNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeCon.
func (n *ConNode) Type() common.NodeType { return common.NodeTypeCon }

// IsRef reports whether this node holds a reference rather than a literal.
func (n *ConNode) IsRef() bool { return n.hasRef }

// Ref returns the referenced id. Only meaningful when IsRef is true.
func (n *ConNode) Ref() common.Ts { return n.ref }

// Value returns the literal JSON value. Only meaningful when IsRef is false.
func (n *ConNode) Value() interface{} { return n.value }
