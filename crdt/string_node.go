package crdt

import (
	"strings"

	"jcrdt/common"
)

// StrNode is a `str` node: an RGA sequence of Unicode code points. Slot
// width is codepoints, not UTF-16 units — see spec design note on text
// slot width.
type StrNode struct {
	id   common.Ts
	list rgaList[rune]
}

// NewStrNode creates an empty string node.
func NewStrNode(id common.Ts) *StrNode {
	return &StrNode{id: id}
}

// ID returns the node's identifier.
func (n *StrNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeStr.
func (n *StrNode) Type() common.NodeType { return common.NodeTypeStr }

// InsertAfter applies an ins_str op: text is spliced in after the atom
// identified by after (or at the head if after equals the node's own id),
// with atom ids start, start.Tick(1), … one per rune.
func (n *StrNode) InsertAfter(after, start common.Ts, text string) error {
	return n.list.insert(n.id, after, start, []rune(text))
}

// Delete tombstones the atoms named by span.
func (n *StrNode) Delete(span common.Tss) { n.list.delete(span) }

// View materialises the live (non-tombstoned) text, in sequence order.
func (n *StrNode) View() string {
	var b strings.Builder
	for _, r := range n.list.live() {
		b.WriteRune(r)
	}
	return b.String()
}

// LiveIDs returns the atom id of each live rune, parallel to View(), so
// callers that need to tombstone individual runes (e.g. diff) can address
// them without reaching into the node's internal list.
func (n *StrNode) LiveIDs() []common.Ts { return n.list.liveIDs() }

// Atoms returns every rune slot, tombstoned or not, in sequence order — the
// full fidelity form the snapshot codecs serialise.
func (n *StrNode) Atoms() []AtomRecord[rune] { return n.list.all() }

// LoadAtoms replaces the node's sequence wholesale, as recovered from a
// snapshot.
func (n *StrNode) LoadAtoms(atoms []AtomRecord[rune]) { n.list.load(atoms) }
