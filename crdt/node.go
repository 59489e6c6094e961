// Package crdt implements the seven JSON CRDT node types and the Document
// runtime that applies operations to them and materialises a JSON view.
package crdt

import "jcrdt/common"

// Node is implemented by every CRDT node shape. Concrete types additionally
// expose shape-specific mutators (Write, Set, InsertAfter, Delete, …); the
// Document dispatches to those through type switches rather than widening
// this interface, since the mutators take different argument shapes.
type Node interface {
	// ID returns the identifier the node was created with.
	ID() common.Ts

	// Type returns the node's CRDT shape.
	Type() common.NodeType
}
