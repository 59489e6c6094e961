package crdt

import "jcrdt/common"

// BinNode is a `bin` node: an RGA sequence of bytes.
type BinNode struct {
	id   common.Ts
	list rgaList[byte]
}

// NewBinNode creates an empty binary node.
func NewBinNode(id common.Ts) *BinNode {
	return &BinNode{id: id}
}

// ID returns the node's identifier.
func (n *BinNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeBin.
func (n *BinNode) Type() common.NodeType { return common.NodeTypeBin }

// InsertAfter applies an ins_bin op, analogous to StrNode.InsertAfter.
func (n *BinNode) InsertAfter(after, start common.Ts, data []byte) error {
	return n.list.insert(n.id, after, start, data)
}

// Delete tombstones the atoms named by span.
func (n *BinNode) Delete(span common.Tss) { n.list.delete(span) }

// View materialises the live bytes, in sequence order.
func (n *BinNode) View() []byte {
	return n.list.live()
}

// LiveIDs returns the atom id of each live byte, parallel to View().
func (n *BinNode) LiveIDs() []common.Ts { return n.list.liveIDs() }

// Atoms returns every byte slot, tombstoned or not, in sequence order.
func (n *BinNode) Atoms() []AtomRecord[byte] { return n.list.all() }

// LoadAtoms replaces the node's sequence wholesale, as recovered from a
// snapshot.
func (n *BinNode) LoadAtoms(atoms []AtomRecord[byte]) { n.list.load(atoms) }
