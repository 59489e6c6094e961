package crdtpatch

import "jcrdt/common"

// Compact merges adjacent operations where legal (spec §4.8): consecutive
// ins_str/ins_bin/ins_arr ops against the same container, where the second
// insert's anchor is the first insert's last produced atom, combine into
// one wider insert; consecutive del ops against the same container combine
// into one del carrying both span lists. Compaction must preserve
// view(apply(patch)) byte-for-byte; it only removes redundant op framing.
func (p *Patch) Compact() *Patch {
	out := NewPatch(p.id)
	for k, v := range p.metadata {
		out.metadata[k] = v
	}

	for _, op := range p.operations {
		if len(out.operations) == 0 {
			out.AddOperation(op)
			continue
		}
		last := out.operations[len(out.operations)-1]
		if merged, ok := mergeAdjacent(last, op); ok {
			out.operations[len(out.operations)-1] = merged
			continue
		}
		out.AddOperation(op)
	}
	return out
}

// lastAtom returns the id of the span-th (last) identifier an operation
// produced, used to test whether a following insert chains directly onto it.
func lastAtom(op Operation) common.Ts {
	id := op.ID()
	return id.Tick(op.Span() - 1)
}

func mergeAdjacent(last, next Operation) (Operation, bool) {
	switch l := last.(type) {
	case InsStrOp:
		n, ok := next.(InsStrOp)
		if !ok || n.Obj != l.Obj || n.After != lastAtom(l) {
			return nil, false
		}
		l.Text += n.Text
		return l, true
	case InsBinOp:
		n, ok := next.(InsBinOp)
		if !ok || n.Obj != l.Obj || n.After != lastAtom(l) {
			return nil, false
		}
		l.Data = append(append([]byte{}, l.Data...), n.Data...)
		return l, true
	case InsArrOp:
		n, ok := next.(InsArrOp)
		if !ok || n.Obj != l.Obj || n.After != lastAtom(l) {
			return nil, false
		}
		l.Refs = append(append([]common.Ts{}, l.Refs...), n.Refs...)
		return l, true
	case DelOp:
		n, ok := next.(DelOp)
		if !ok || n.Obj != l.Obj {
			return nil, false
		}
		l.Spans = append(append([]common.Tss{}, l.Spans...), n.Spans...)
		return l, true
	default:
		return nil, false
	}
}
