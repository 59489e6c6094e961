// Package crdtsnapshot encodes and decodes whole-document snapshots (spec
// §6): structural binary, structural verbose/compact, indexed binary and
// sidecar binary. Unlike the patch codecs in crdtpatch, a snapshot carries
// the full node graph — including tombstoned RGA atoms and each LWW slot's
// winning writer id — so a reloaded document stays mergeable with replicas
// that never snapshotted.
package crdtsnapshot

import (
	"sort"

	"github.com/ugorji/go/codec"

	"jcrdt/common"
	"jcrdt/crdt"
)

var cborHandle codec.CborHandle

// tsRecord is the wire shape of a common.Ts: named fields, so every
// structural codec (JSON or CBOR) serialises it identically.
type tsRecord struct {
	Sid  uint64 `codec:"sid" json:"sid"`
	Time uint64 `codec:"time" json:"time"`
}

func toTsRecord(t common.Ts) tsRecord { return tsRecord{Sid: uint64(t.Sid), Time: t.Time} }
func fromTsRecord(r tsRecord) common.Ts {
	return common.Ts{Sid: common.SessionID(r.Sid), Time: r.Time}
}

func tsLess(a, b tsRecord) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.Sid < b.Sid
}

type fieldRecord struct {
	Key    string   `codec:"key" json:"key"`
	Writer tsRecord `codec:"writer" json:"writer"`
	Target tsRecord `codec:"target" json:"target"`
}

type slotRecord struct {
	Index  uint8    `codec:"index" json:"index"`
	Writer tsRecord `codec:"writer" json:"writer"`
	Target tsRecord `codec:"target" json:"target"`
}

type runeAtomRecord struct {
	ID        tsRecord `codec:"id" json:"id"`
	R         rune     `codec:"r" json:"r"`
	Tombstone bool     `codec:"del,omitempty" json:"del,omitempty"`
}

type byteAtomRecord struct {
	ID        tsRecord `codec:"id" json:"id"`
	B         byte     `codec:"b" json:"b"`
	Tombstone bool     `codec:"del,omitempty" json:"del,omitempty"`
}

type refAtomRecord struct {
	ID        tsRecord `codec:"id" json:"id"`
	Ref       tsRecord `codec:"ref" json:"ref"`
	Tombstone bool     `codec:"del,omitempty" json:"del,omitempty"`
}

// nodeRecord is the complete serialisable state of one node, tagged by
// Kind; only the fields relevant to that kind are populated.
type nodeRecord struct {
	ID   tsRecord `codec:"id" json:"id"`
	Kind string   `codec:"kind" json:"kind"`

	Value interface{} `codec:"value,omitempty" json:"value,omitempty"`
	IsRef bool         `codec:"is_ref,omitempty" json:"is_ref,omitempty"`
	Ref   tsRecord     `codec:"ref,omitempty" json:"ref,omitempty"`

	Target tsRecord `codec:"target,omitempty" json:"target,omitempty"`

	Fields []fieldRecord `codec:"fields,omitempty" json:"fields,omitempty"`
	Slots  []slotRecord  `codec:"slots,omitempty" json:"slots,omitempty"`

	Runes []runeAtomRecord `codec:"runes,omitempty" json:"runes,omitempty"`
	Bytes []byteAtomRecord `codec:"bytes,omitempty" json:"bytes,omitempty"`
	Refs  []refAtomRecord  `codec:"refs,omitempty" json:"refs,omitempty"`
}

// model is the document-wide payload every structural codec serialises:
// the local session id and clock (to resume allocating fresh ids after
// reload) plus the root register's target and every other node.
type model struct {
	Sid   uint64       `codec:"sid" json:"sid"`
	Clock uint64       `codec:"clock" json:"clock"`
	Root  tsRecord     `codec:"root" json:"root"`
	Nodes []nodeRecord `codec:"nodes" json:"nodes"`
}

func cborMarshal(v interface{}) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, &cborHandle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func cborUnmarshal(data []byte, v interface{}) error {
	if err := codec.NewDecoderBytes(data, &cborHandle).Decode(v); err != nil {
		return common.ErrInvalidPayload{Message: "snapshot: " + err.Error()}
	}
	return nil
}

// captureNode converts one live node into its wire record.
func captureNode(id common.Ts, n crdt.Node) (nodeRecord, error) {
	rec := nodeRecord{ID: toTsRecord(id), Kind: string(n.Type())}
	switch v := n.(type) {
	case *crdt.ConNode:
		if v.IsRef() {
			rec.IsRef = true
			rec.Ref = toTsRecord(v.Ref())
		} else {
			rec.Value = v.Value()
		}
	case *crdt.ValNode:
		rec.Target = toTsRecord(v.Target())
	case *crdt.ObjNode:
		for _, f := range v.Fields() {
			rec.Fields = append(rec.Fields, fieldRecord{
				Key: f.Key, Writer: toTsRecord(f.Writer), Target: toTsRecord(f.Target),
			})
		}
	case *crdt.VecNode:
		for _, s := range v.Slots() {
			rec.Slots = append(rec.Slots, slotRecord{
				Index: s.Index, Writer: toTsRecord(s.Writer), Target: toTsRecord(s.Target),
			})
		}
	case *crdt.StrNode:
		for _, a := range v.Atoms() {
			rec.Runes = append(rec.Runes, runeAtomRecord{ID: toTsRecord(a.ID), R: a.Value, Tombstone: a.Tombstone})
		}
	case *crdt.BinNode:
		for _, a := range v.Atoms() {
			rec.Bytes = append(rec.Bytes, byteAtomRecord{ID: toTsRecord(a.ID), B: a.Value, Tombstone: a.Tombstone})
		}
	case *crdt.ArrNode:
		for _, a := range v.Atoms() {
			rec.Refs = append(rec.Refs, refAtomRecord{ID: toTsRecord(a.ID), Ref: toTsRecord(a.Value), Tombstone: a.Tombstone})
		}
	default:
		return nodeRecord{}, common.ErrInvalidOperation{Message: "snapshot: unknown node shape in graph"}
	}
	return rec, nil
}

// restoreNode rebuilds a node from its wire record.
func restoreNode(id common.Ts, rec nodeRecord) (crdt.Node, error) {
	switch common.NodeType(rec.Kind) {
	case common.NodeTypeCon:
		if rec.IsRef {
			return crdt.NewConRefNode(id, fromTsRecord(rec.Ref)), nil
		}
		return crdt.NewConNode(id, rec.Value), nil
	case common.NodeTypeVal:
		n := crdt.NewValNode(id)
		n.LoadTarget(fromTsRecord(rec.Target))
		return n, nil
	case common.NodeTypeObj:
		n := crdt.NewObjNode(id)
		fields := make([]crdt.FieldRecord, len(rec.Fields))
		for i, f := range rec.Fields {
			fields[i] = crdt.FieldRecord{Key: f.Key, Writer: fromTsRecord(f.Writer), Target: fromTsRecord(f.Target)}
		}
		n.LoadFields(fields)
		return n, nil
	case common.NodeTypeVec:
		n := crdt.NewVecNode(id)
		slots := make([]crdt.SlotRecord, len(rec.Slots))
		for i, s := range rec.Slots {
			slots[i] = crdt.SlotRecord{Index: s.Index, Writer: fromTsRecord(s.Writer), Target: fromTsRecord(s.Target)}
		}
		n.LoadSlots(slots)
		return n, nil
	case common.NodeTypeStr:
		n := crdt.NewStrNode(id)
		atoms := make([]crdt.AtomRecord[rune], len(rec.Runes))
		for i, a := range rec.Runes {
			atoms[i] = crdt.AtomRecord[rune]{ID: fromTsRecord(a.ID), Value: a.R, Tombstone: a.Tombstone}
		}
		n.LoadAtoms(atoms)
		return n, nil
	case common.NodeTypeBin:
		n := crdt.NewBinNode(id)
		atoms := make([]crdt.AtomRecord[byte], len(rec.Bytes))
		for i, a := range rec.Bytes {
			atoms[i] = crdt.AtomRecord[byte]{ID: fromTsRecord(a.ID), Value: a.B, Tombstone: a.Tombstone}
		}
		n.LoadAtoms(atoms)
		return n, nil
	case common.NodeTypeArr:
		n := crdt.NewArrNode(id)
		atoms := make([]crdt.AtomRecord[common.Ts], len(rec.Refs))
		for i, a := range rec.Refs {
			atoms[i] = crdt.AtomRecord[common.Ts]{ID: fromTsRecord(a.ID), Value: fromTsRecord(a.Ref), Tombstone: a.Tombstone}
		}
		n.LoadAtoms(atoms)
		return n, nil
	default:
		return nil, common.ErrInvalidOperation{Message: "snapshot: unknown node kind " + rec.Kind}
	}
}

// capture walks doc's full node graph into a model, in ascending id order
// so every structural codec produces a deterministic byte stream.
func capture(doc *crdt.Document) (*model, error) {
	root, err := doc.Node(common.Origin)
	if err != nil {
		return nil, err
	}
	val, ok := root.(*crdt.ValNode)
	if !ok {
		return nil, common.ErrTypeMismatch{Expected: common.NodeTypeVal, Actual: root.Type()}
	}

	var nodes []nodeRecord
	var walkErr error
	doc.Walk(func(id common.Ts, n crdt.Node) {
		if walkErr != nil || id == common.Origin {
			return
		}
		rec, err := captureNode(id, n)
		if err != nil {
			walkErr = err
			return
		}
		nodes = append(nodes, rec)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Slice(nodes, func(i, j int) bool { return tsLess(nodes[i].ID, nodes[j].ID) })

	return &model{
		Sid:   uint64(doc.SessionID()),
		Clock: doc.Clock(),
		Root:  toTsRecord(val.Target()),
		Nodes: nodes,
	}, nil
}

// restore rebuilds a Document from a captured model.
func restore(m *model) (*crdt.Document, error) {
	doc := crdt.NewDocument(common.SessionID(m.Sid))
	for _, rec := range m.Nodes {
		id := fromTsRecord(rec.ID)
		n, err := restoreNode(id, rec)
		if err != nil {
			return nil, err
		}
		doc.LoadNode(id, n)
	}

	root, err := doc.Node(common.Origin)
	if err != nil {
		return nil, err
	}
	val, ok := root.(*crdt.ValNode)
	if !ok {
		return nil, common.ErrTypeMismatch{Expected: common.NodeTypeVal, Actual: root.Type()}
	}
	val.LoadTarget(fromTsRecord(m.Root))
	doc.SetClock(m.Clock)
	return doc, nil
}
