package crdt

import "jcrdt/common"

// objEntry is one LWW slot: the id of the op that last wrote it, and the
// id of the node it currently points at.
type objEntry struct {
	writer common.Ts
	target common.Ts
}

// ObjNode is an `obj` node: an unordered string-keyed map where each key is
// an independent LWW slot.
type ObjNode struct {
	id     common.Ts
	fields map[string]objEntry
}

// NewObjNode creates an empty object node.
func NewObjNode(id common.Ts) *ObjNode {
	return &ObjNode{id: id, fields: make(map[string]objEntry)}
}

// ID returns the node's identifier.
func (n *ObjNode) ID() common.Ts { return n.id }

// Type returns common.NodeTypeObj.
func (n *ObjNode) Type() common.NodeType { return common.NodeTypeObj }

// Set applies one ins_obj entry: writer dominates the key's current writer
// only if writer sorts strictly after it.
func (n *ObjNode) Set(writer common.Ts, key string, target common.Ts) bool {
	cur, ok := n.fields[key]
	if !ok || writer.Compare(cur.writer) > 0 {
		n.fields[key] = objEntry{writer: writer, target: target}
		return true
	}
	return false
}

// Get returns the current target for key, if set.
func (n *ObjNode) Get(key string) (common.Ts, bool) {
	e, ok := n.fields[key]
	return e.target, ok
}

// Keys returns the object's keys in no particular order; callers that need
// a stable order (e.g. View) should sort the result.
func (n *ObjNode) Keys() []string {
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	return keys
}

// FieldRecord is one key's full LWW state — the writer id and current
// target — as the snapshot codecs need it to stay mergeable after reload.
type FieldRecord struct {
	Key    string
	Writer common.Ts
	Target common.Ts
}

// Fields returns every key's writer and target, in no particular order.
func (n *ObjNode) Fields() []FieldRecord {
	out := make([]FieldRecord, 0, len(n.fields))
	for k, e := range n.fields {
		out = append(out, FieldRecord{Key: k, Writer: e.writer, Target: e.target})
	}
	return out
}

// LoadFields replaces the object's fields wholesale, as recovered from a
// snapshot, bypassing the LWW dominance check since the snapshot already
// reflects the winning writer for each key.
func (n *ObjNode) LoadFields(fields []FieldRecord) {
	n.fields = make(map[string]objEntry, len(fields))
	for _, f := range fields {
		n.fields[f.Key] = objEntry{writer: f.Writer, target: f.Target}
	}
}
