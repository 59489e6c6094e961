package crdt

import "jcrdt/common"

// ArrNode is an `arr` node: an RGA sequence whose atoms are references to
// other nodes (typically ValNode registers), rather than raw values.
type ArrNode struct {
	id   common.Ts
	list rgaList[common.Ts]
}

// NewArrNode creates an empty array node.
func NewArrNode(id common.Ts) *ArrNode {
	return &ArrNode{id: id}
}

// ID returns the node's identifier.
func (n *ArrNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeArr.
func (n *ArrNode) Type() common.NodeType { return common.NodeTypeArr }

// InsertAfter applies an ins_arr op: refs are spliced in after the atom
// identified by after (or at the head if after equals the node's own id).
func (n *ArrNode) InsertAfter(after, start common.Ts, refs []common.Ts) error {
	return n.list.insert(n.id, after, start, refs)
}

// Delete tombstones the atoms named by span.
func (n *ArrNode) Delete(span common.Tss) { n.list.delete(span) }

// Live returns the referenced ids of non-tombstoned elements, in sequence
// order. Resolving each id into a JSON value is the caller's job (the
// Document does this during View).
func (n *ArrNode) Live() []common.Ts {
	return n.list.live()
}

// LiveIDs returns the position id of each live element, parallel to Live()
// — distinct from the element refs Live() returns, since an array's atom
// ids address splice positions, not the value nodes they point to.
func (n *ArrNode) LiveIDs() []common.Ts {
	return n.list.liveIDs()
}

// Atoms returns every element slot, tombstoned or not, in sequence order.
func (n *ArrNode) Atoms() []AtomRecord[common.Ts] { return n.list.all() }

// LoadAtoms replaces the node's sequence wholesale, as recovered from a
// snapshot.
func (n *ArrNode) LoadAtoms(atoms []AtomRecord[common.Ts]) { n.list.load(atoms) }
