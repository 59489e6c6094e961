// Package crdtdiff synthesises a patch that turns a document's current view
// into a target JSON value (spec §4.7), recursing into unchanged containers
// and touching only the positions that actually differ.
package crdtdiff

import (
	"reflect"

	"jcrdt/common"
	"jcrdt/crdt"
	"jcrdt/crdtpatch"
)

// Diff returns a patch which, applied to doc, makes its view equal target.
// It never mutates doc's node graph; it only reserves the clock span the
// returned patch will consume, via Document.Observe, so a second call to
// Diff before the first patch is applied won't reissue the same ids.
func Diff(doc *crdt.Document, target interface{}) (*crdtpatch.Patch, error) {
	start := doc.NextTime(0).Time
	b := crdtpatch.NewPatchBuilder(doc.SessionID(), start)

	root, err := doc.Node(common.Origin)
	if err != nil {
		return nil, err
	}
	val, ok := root.(*crdt.ValNode)
	if !ok {
		return nil, common.ErrTypeMismatch{Expected: common.NodeTypeVal, Actual: root.Type()}
	}

	hasRef := val.Target() != common.Undefined
	cur := val.Target()

	if target != nil || hasRef {
		if err := diffSlot(doc, b, cur, hasRef, target, func(newRef common.Ts) {
			b.InsVal(common.Origin, newRef)
		}); err != nil {
			return nil, err
		}
	}

	p := b.Build()
	if p != nil {
		doc.Observe(doc.SessionID(), start, p.Span())
	}
	return p, nil
}

// diffSlot reconciles one value position (a register, an object entry, a
// vector slot, or an array element) against target. When the existing node
// at ref can represent target's shape, it is mutated in place and rewrite
// is never called. Otherwise a fresh subtree is built and rewrite is called
// with its id, so the caller can point its own container entry at it.
func diffSlot(doc *crdt.Document, b *crdtpatch.PatchBuilder, ref common.Ts, hasRef bool, target interface{}, rewrite func(common.Ts)) error {
	if !hasRef {
		newRef, err := instantiate(doc, b, target)
		if err != nil {
			return err
		}
		rewrite(newRef)
		return nil
	}

	node, err := doc.Node(ref)
	if err != nil {
		newRef, ierr := instantiate(doc, b, target)
		if ierr != nil {
			return ierr
		}
		rewrite(newRef)
		return nil
	}

	switch n := node.(type) {
	case *crdt.ObjNode:
		if m, ok := target.(map[string]interface{}); ok {
			return diffObject(doc, b, n, m)
		}
	case *crdt.ArrNode:
		if a, ok := target.([]interface{}); ok {
			return diffArray(doc, b, n, a)
		}
	case *crdt.StrNode:
		if s, ok := target.(string); ok {
			return diffString(b, n, s)
		}
	case *crdt.BinNode:
		if data, ok := target.([]byte); ok {
			return diffBinary(b, n, data)
		}
	default:
		current, err := doc.Resolve(ref)
		if err != nil {
			return err
		}
		if reflect.DeepEqual(current, target) {
			return nil
		}
	}

	// Shape mismatch, or a leaf whose value changed: replace wholesale.
	newRef, err := instantiate(doc, b, target)
	if err != nil {
		return err
	}
	rewrite(newRef)
	return nil
}

func diffObject(doc *crdt.Document, b *crdtpatch.PatchBuilder, n *crdt.ObjNode, target map[string]interface{}) error {
	var entries []crdtpatch.ObjEntry
	for key, tval := range target {
		cur, hasRef := n.Get(key)
		if err := diffSlot(doc, b, cur, hasRef, tval, func(newRef common.Ts) {
			entries = append(entries, crdtpatch.ObjEntry{Key: key, Ref: newRef})
		}); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		b.InsObj(n.ID(), entries)
	}
	return nil
}

func diffArray(doc *crdt.Document, b *crdtpatch.PatchBuilder, n *crdt.ArrNode, target []interface{}) error {
	liveIDs := n.LiveIDs()
	liveRefs := n.Live()

	current := make([]interface{}, len(liveRefs))
	for i, ref := range liveRefs {
		v, err := doc.Resolve(ref)
		if err != nil {
			return err
		}
		current[i] = v
	}

	p := 0
	for p < len(current) && p < len(target) && reflect.DeepEqual(current[p], target[p]) {
		p++
	}
	s := 0
	maxSuffix := minInt(len(current)-p, len(target)-p)
	for s < maxSuffix && reflect.DeepEqual(current[len(current)-1-s], target[len(target)-1-s]) {
		s++
	}

	middleOldIDs := liveIDs[p : len(liveIDs)-s]
	middleNewVals := target[p : len(target)-s]

	if len(middleOldIDs) > 0 {
		spans := make([]common.Tss, len(middleOldIDs))
		for i, id := range middleOldIDs {
			spans[i] = common.Tss{Sid: id.Sid, Time: id.Time, Span: 1}
		}
		b.Del(n.ID(), spans)
	}

	if len(middleNewVals) > 0 {
		refs := make([]common.Ts, len(middleNewVals))
		for i, v := range middleNewVals {
			ref, err := instantiate(doc, b, v)
			if err != nil {
				return err
			}
			refs[i] = ref
		}
		anchor := n.ID()
		if p > 0 {
			anchor = liveIDs[p-1]
		}
		b.InsArr(n.ID(), anchor, refs)
	}
	return nil
}

func diffString(b *crdtpatch.PatchBuilder, n *crdt.StrNode, target string) error {
	cur := []rune(n.View())
	ids := n.LiveIDs()
	tgt := []rune(target)

	p := commonPrefixRunes(cur, tgt)
	s := commonSuffixRunes(cur, tgt, p)

	middleOldIDs := ids[p : len(ids)-s]
	if len(middleOldIDs) > 0 {
		spans := make([]common.Tss, len(middleOldIDs))
		for i, id := range middleOldIDs {
			spans[i] = common.Tss{Sid: id.Sid, Time: id.Time, Span: 1}
		}
		b.Del(n.ID(), spans)
	}

	middleNew := tgt[p : len(tgt)-s]
	if len(middleNew) > 0 {
		anchor := n.ID()
		if p > 0 {
			anchor = ids[p-1]
		}
		b.InsStr(n.ID(), anchor, string(middleNew))
	}
	return nil
}

func diffBinary(b *crdtpatch.PatchBuilder, n *crdt.BinNode, target []byte) error {
	cur := n.View()
	ids := n.LiveIDs()

	p := commonPrefixBytes(cur, target)
	s := commonSuffixBytes(cur, target, p)

	middleOldIDs := ids[p : len(ids)-s]
	if len(middleOldIDs) > 0 {
		spans := make([]common.Tss, len(middleOldIDs))
		for i, id := range middleOldIDs {
			spans[i] = common.Tss{Sid: id.Sid, Time: id.Time, Span: 1}
		}
		b.Del(n.ID(), spans)
	}

	middleNew := target[p : len(target)-s]
	if len(middleNew) > 0 {
		anchor := n.ID()
		if p > 0 {
			anchor = ids[p-1]
		}
		b.InsBin(n.ID(), anchor, middleNew)
	}
	return nil
}

// instantiate builds a brand-new subtree representing target and returns
// its root id. Scalars become con nodes; maps, slices and byte slices
// become obj/arr/bin nodes populated with one insert op apiece.
func instantiate(doc *crdt.Document, b *crdtpatch.PatchBuilder, target interface{}) (common.Ts, error) {
	switch t := target.(type) {
	case map[string]interface{}:
		id := b.NewObj()
		var entries []crdtpatch.ObjEntry
		for key, v := range t {
			ref, err := instantiate(doc, b, v)
			if err != nil {
				return common.Ts{}, err
			}
			entries = append(entries, crdtpatch.ObjEntry{Key: key, Ref: ref})
		}
		if len(entries) > 0 {
			b.InsObj(id, entries)
		}
		return id, nil
	case []interface{}:
		id := b.NewArr()
		refs := make([]common.Ts, len(t))
		for i, v := range t {
			ref, err := instantiate(doc, b, v)
			if err != nil {
				return common.Ts{}, err
			}
			refs[i] = ref
		}
		if len(refs) > 0 {
			b.InsArr(id, id, refs)
		}
		return id, nil
	case []byte:
		id := b.NewBin()
		if len(t) > 0 {
			b.InsBin(id, id, t)
		}
		return id, nil
	case nil:
		return b.NewCon(nil), nil
	case string, bool, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return b.NewCon(t), nil
	default:
		return common.Ts{}, common.ErrInvalidOperation{Message: "diff: unsupported target value type"}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func commonPrefixRunes(a, b []rune) int {
	n := minInt(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixRunes(a, b []rune, prefix int) int {
	max := minInt(len(a)-prefix, len(b)-prefix)
	i := 0
	for i < max && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func commonPrefixBytes(a, b []byte) int {
	n := minInt(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixBytes(a, b []byte, prefix int) int {
	max := minInt(len(a)-prefix, len(b)-prefix)
	i := 0
	for i < max && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}
