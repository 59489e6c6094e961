package crdt

import (
	"sort"

	"go.uber.org/zap"

	"jcrdt/common"
)

// Document is the model runtime: an arena of nodes keyed by id, rooted at
// common.Origin, plus the local session's clock. It has no suspension
// points — every method here is synchronous, matching the single-threaded
// cooperative scheduling model the engine assumes.
type Document struct {
	sid    common.SessionID
	clock  uint64
	nodes  map[common.Ts]Node
	logger *zap.Logger
}

// Option configures a Document at construction time.
type Option func(*Document)

// WithLogger attaches a logger for apply-decision tracing. The default is
// zap.NewNop(), so logging is always safe to call without a nil check.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDocument creates an empty document for the given local session,
// seeded with the root register at common.Origin.
func NewDocument(sid common.SessionID, opts ...Option) *Document {
	d := &Document{
		sid:    sid,
		clock:  1,
		nodes:  make(map[common.Ts]Node),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.nodes[common.Origin] = NewValNode(common.Origin)
	return d
}

// SessionID returns the document's local session id.
func (d *Document) SessionID() common.SessionID { return d.sid }

// NextTime allocates span consecutive identifiers in the local session and
// advances the local clock past them.
func (d *Document) NextTime(span uint64) common.Ts {
	t := common.Ts{Sid: d.sid, Time: d.clock}
	d.clock += span
	return t
}

// Observe advances the local clock past id's span without allocating it
// locally — used when replaying a remote patch so that subsequently
// locally-generated ids never collide with observed ones.
func (d *Document) Observe(sid common.SessionID, time, span uint64) {
	if sid == d.sid && time+span > d.clock {
		d.clock = time + span
	}
}

// Node returns the node with the given id, or ErrNodeNotFound.
func (d *Document) Node(id common.Ts) (Node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, common.ErrNodeNotFound{ID: id}
	}
	return n, nil
}

// Walk calls fn for every node in the arena, in no particular order. Used
// by the snapshot codecs to enumerate the full node graph.
func (d *Document) Walk(fn func(common.Ts, Node)) {
	for id, n := range d.nodes {
		fn(id, n)
	}
}

// Len returns the number of nodes in the arena.
func (d *Document) Len() int { return len(d.nodes) }

// LoadNode inserts n at id unconditionally, overwriting whatever was there —
// used by the snapshot codecs to restore a node graph directly, where
// create-if-absent semantics don't apply because the graph isn't being
// replayed op by op.
func (d *Document) LoadNode(id common.Ts, n Node) {
	d.nodes[id] = n
}

// Clock returns the document's local clock value — the time the next
// locally-allocated id will use.
func (d *Document) Clock() uint64 { return d.clock }

// SetClock sets the document's local clock directly, used when restoring a
// document from a snapshot that recorded the clock explicitly rather than
// leaving it to be inferred one Observe call at a time.
func (d *Document) SetClock(clock uint64) { d.clock = clock }

// --- Creator ops (new_*): create-if-absent, idempotent. ---

func (d *Document) create(id common.Ts, build func() Node) {
	if _, exists := d.nodes[id]; exists {
		return
	}
	d.nodes[id] = build()
}

// CreateCon applies new_con with a literal JSON value.
func (d *Document) CreateCon(id common.Ts, value interface{}) {
	d.create(id, func() Node { return NewConNode(id, value) })
}

// CreateConRef applies new_con with a reference payload.
func (d *Document) CreateConRef(id common.Ts, ref common.Ts) {
	d.create(id, func() Node { return NewConRefNode(id, ref) })
}

// CreateVal applies new_val.
func (d *Document) CreateVal(id common.Ts) {
	d.create(id, func() Node { return NewValNode(id) })
}

// CreateObj applies new_obj.
func (d *Document) CreateObj(id common.Ts) {
	d.create(id, func() Node { return NewObjNode(id) })
}

// CreateVec applies new_vec.
func (d *Document) CreateVec(id common.Ts) {
	d.create(id, func() Node { return NewVecNode(id) })
}

// CreateStr applies new_str.
func (d *Document) CreateStr(id common.Ts) {
	d.create(id, func() Node { return NewStrNode(id) })
}

// CreateBin applies new_bin.
func (d *Document) CreateBin(id common.Ts) {
	d.create(id, func() Node { return NewBinNode(id) })
}

// CreateArr applies new_arr.
func (d *Document) CreateArr(id common.Ts) {
	d.create(id, func() Node { return NewArrNode(id) })
}

// --- Container mutators. ---

// WriteVal applies ins_val: obj must name a ValNode.
func (d *Document) WriteVal(obj common.Ts, ref common.Ts) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	val, ok := node.(*ValNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeVal, Actual: node.Type()}
	}
	applied := val.Write(ref)
	d.logger.Debug("ins_val",
		zap.Stringer("obj", obj), zap.Stringer("ref", ref),
		zap.Bool("applied", applied))
	return nil
}

// WriteObj applies ins_obj: obj must name an ObjNode. writer is the op's
// own id, shared by every entry in a single ins_obj.
func (d *Document) WriteObj(obj common.Ts, writer common.Ts, entries map[string]common.Ts) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	o, ok := node.(*ObjNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeObj, Actual: node.Type()}
	}
	for key, ref := range entries {
		o.Set(writer, key, ref)
	}
	return nil
}

// WriteVec applies ins_vec: obj must name a VecNode.
func (d *Document) WriteVec(obj common.Ts, writer common.Ts, entries map[uint8]common.Ts) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	v, ok := node.(*VecNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeVec, Actual: node.Type()}
	}
	for idx, ref := range entries {
		v.Set(writer, idx, ref)
	}
	return nil
}

// InsertStr applies ins_str: obj must name a StrNode.
func (d *Document) InsertStr(obj, after, start common.Ts, text string) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	s, ok := node.(*StrNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeStr, Actual: node.Type()}
	}
	return s.InsertAfter(after, start, text)
}

// InsertBin applies ins_bin: obj must name a BinNode.
func (d *Document) InsertBin(obj, after, start common.Ts, data []byte) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	b, ok := node.(*BinNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeBin, Actual: node.Type()}
	}
	return b.InsertAfter(after, start, data)
}

// InsertArr applies ins_arr: obj must name an ArrNode.
func (d *Document) InsertArr(obj, after, start common.Ts, refs []common.Ts) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	a, ok := node.(*ArrNode)
	if !ok {
		return common.ErrTypeMismatch{Expected: common.NodeTypeArr, Actual: node.Type()}
	}
	return a.InsertAfter(after, start, refs)
}

// Delete applies del: obj must name an RGA-shaped node (str/bin/arr).
func (d *Document) Delete(obj common.Ts, spans []common.Tss) error {
	node, err := d.Node(obj)
	if err != nil {
		return err
	}
	switch n := node.(type) {
	case *StrNode:
		for _, s := range spans {
			n.Delete(s)
		}
	case *BinNode:
		for _, s := range spans {
			n.Delete(s)
		}
	case *ArrNode:
		for _, s := range spans {
			n.Delete(s)
		}
	default:
		return common.ErrTypeMismatch{Expected: common.NodeTypeStr, Actual: node.Type()}
	}
	return nil
}

// --- View materialisation (spec §4.4). ---

// View walks the node graph from common.Origin and returns the JSON value
// it describes. A root register still pointing at common.Undefined
// produces nil.
func (d *Document) View() (interface{}, error) {
	root, err := d.Node(common.Origin)
	if err != nil {
		return nil, err
	}
	val, ok := root.(*ValNode)
	if !ok {
		return nil, common.ErrTypeMismatch{Expected: common.NodeTypeVal, Actual: root.Type()}
	}
	if val.Target() == common.Undefined {
		return nil, nil
	}
	return d.resolve(val.Target())
}

// Resolve materialises the JSON value rooted at id — the same
// reconstruction View performs for common.Origin, exposed for callers that
// need the view of an arbitrary subtree (e.g. diff).
func (d *Document) Resolve(id common.Ts) (interface{}, error) {
	return d.resolve(id)
}

func (d *Document) resolve(id common.Ts) (interface{}, error) {
	node, err := d.Node(id)
	if err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case *ConNode:
		if n.IsRef() {
			return d.resolve(n.Ref())
		}
		return n.Value(), nil
	case *ValNode:
		if n.Target() == common.Undefined {
			return nil, nil
		}
		return d.resolve(n.Target())
	case *ObjNode:
		keys := n.Keys()
		sort.Strings(keys)
		out := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			target, _ := n.Get(key)
			v, err := d.resolve(target)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case *VecNode:
		indices := n.Indices()
		out := make([]interface{}, 0, len(indices))
		for _, idx := range indices {
			target, _ := n.Get(idx)
			v, err := d.resolve(target)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *StrNode:
		return n.View(), nil
	case *BinNode:
		return n.View(), nil
	case *ArrNode:
		refs := n.Live()
		out := make([]interface{}, 0, len(refs))
		for _, ref := range refs {
			v, err := d.resolve(ref)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, common.ErrInvalidOperation{Message: "unknown node shape in graph"}
	}
}
