package crdt

import "jcrdt/common"

// ValNode is a `val` node: an LWW register holding the id of another node
// (a ConNode or any other shape). Writes apply only when the incoming
// target id strictly exceeds the current one under the (time, sid) total
// order — see common.Ts.Compare.
type ValNode struct {
	id     common.Ts
	target common.Ts
}

// NewValNode creates a register initialised to common.Undefined.
func NewValNode(id common.Ts) *ValNode {
	return &ValNode{id: id, target: common.Undefined}
}

// ID returns the node's identifier.
func (n *ValNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeVal.
func (n *ValNode) Type() common.NodeType { return common.NodeTypeVal }

// Target returns the id the register currently points at.
func (n *ValNode) Target() common.Ts { return n.target }

// Write applies an ins_val write: the register advances to ref only if ref
// sorts strictly after the current target. Returns whether the write took
// effect, which callers may use for tracing.
func (n *ValNode) Write(ref common.Ts) bool {
	if ref.Compare(n.target) > 0 {
		n.target = ref
		return true
	}
	return false
}

// LoadTarget sets the register's target unconditionally, as recovered from
// a snapshot.
func (n *ValNode) LoadTarget(target common.Ts) { n.target = target }
